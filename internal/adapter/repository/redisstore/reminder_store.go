package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/simaogato/finops-backend/internal/domain"
)

// appendScript claims the natural key and writes the snapshot in one step
// KEYS: natural key marker, record history list, latest hash
// ARGV: snapshot JSON, stream key
var appendScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], '1') == 0 then
	return 0
end
redis.call('RPUSH', KEYS[2], ARGV[1])
redis.call('HSET', KEYS[3], ARGV[2], ARGV[1])
return 1
`)

// ReminderStore implements domain.ReminderRepository on Redis
type ReminderStore struct {
	client *redis.Client
	prefix string
}

// NewReminderStore creates a new Redis backed reminder store
func NewReminderStore(client *redis.Client, prefix string) *ReminderStore {
	if prefix == "" {
		prefix = "finops"
	}
	return &ReminderStore{client: client, prefix: prefix}
}

// NewClient connects to Redis at addr and checks the connection
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (s *ReminderStore) stepKey(naturalKey string) string {
	return s.prefix + ":reminder:step:" + naturalKey
}

func (s *ReminderStore) historyKey(recordID string) string {
	return s.prefix + ":reminder:history:" + recordID
}

func (s *ReminderStore) latestKey() string {
	return s.prefix + ":reminder:latest"
}

func (s *ReminderStore) escalationKey(recordID string) string {
	return s.prefix + ":escalated:" + recordID
}

func (s *ReminderStore) dispatchKey(naturalKey string) string {
	return s.prefix + ":reminder:dispatched:" + naturalKey
}

type attemptJSON struct {
	ID              uuid.UUID  `json:"id"`
	RecordID        string     `json:"record_id"`
	Channel         string     `json:"channel"`
	DueDate         time.Time  `json:"due_date"`
	ScheduledDate   *time.Time `json:"scheduled_date,omitempty"`
	Status          string     `json:"status"`
	AttemptCount    int        `json:"attempt_count"`
	LastAttemptDate *time.Time `json:"last_attempt_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func encodeAttempt(a *domain.ReminderAttempt) (string, error) {
	data, err := json.Marshal(attemptJSON{
		ID:              a.ID,
		RecordID:        a.RecordID,
		Channel:         string(a.Channel),
		DueDate:         a.DueDate,
		ScheduledDate:   a.ScheduledDate,
		Status:          string(a.Status),
		AttemptCount:    a.AttemptCount,
		LastAttemptDate: a.LastAttemptDate,
		CreatedAt:       a.CreatedAt,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeAttempt(raw string) (domain.ReminderAttempt, error) {
	var v attemptJSON
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return domain.ReminderAttempt{}, fmt.Errorf("failed to decode reminder attempt: %w", err)
	}
	return domain.ReminderAttempt{
		ID:              v.ID,
		RecordID:        v.RecordID,
		Channel:         domain.Channel(v.Channel),
		DueDate:         v.DueDate,
		ScheduledDate:   v.ScheduledDate,
		Status:          domain.AttemptStatus(v.Status),
		AttemptCount:    v.AttemptCount,
		LastAttemptDate: v.LastAttemptDate,
		CreatedAt:       v.CreatedAt,
	}, nil
}

// Append stores a snapshot unless its natural key was already stored
func (s *ReminderStore) Append(ctx context.Context, attempt *domain.ReminderAttempt) (bool, error) {
	payload, err := encodeAttempt(attempt)
	if err != nil {
		return false, fmt.Errorf("failed to encode reminder attempt: %w", err)
	}

	keys := []string{s.stepKey(attempt.NaturalKey()), s.historyKey(attempt.RecordID), s.latestKey()}
	stored, err := appendScript.Run(ctx, s.client, keys, payload, attempt.StreamKey()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to append reminder attempt: %w", err)
	}
	return stored == 1, nil
}

// Latest retrieves the newest snapshot for a record and channel
func (s *ReminderStore) Latest(ctx context.Context, recordID string, channel domain.Channel) (*domain.ReminderAttempt, error) {
	probe := domain.ReminderAttempt{RecordID: recordID, Channel: channel}

	raw, err := s.client.HGet(ctx, s.latestKey(), probe.StreamKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("reminder state for %s on %s %w", recordID, channel, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder state: %w", err)
	}

	attempt, err := decodeAttempt(raw)
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ListLatest retrieves the newest snapshot of every stream, ordered by record and channel
func (s *ReminderStore) ListLatest(ctx context.Context) ([]domain.ReminderAttempt, error) {
	all, err := s.client.HGetAll(ctx, s.latestKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder state: %w", err)
	}

	keys := make([]string, 0, len(all))
	for key := range all {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	attempts := make([]domain.ReminderAttempt, 0, len(keys))
	for _, key := range keys {
		attempt, err := decodeAttempt(all[key])
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// History retrieves every snapshot of a record, oldest first
func (s *ReminderStore) History(ctx context.Context, recordID string) ([]domain.ReminderAttempt, error) {
	raws, err := s.client.LRange(ctx, s.historyKey(recordID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read reminder history: %w", err)
	}

	attempts := make([]domain.ReminderAttempt, 0, len(raws))
	for _, raw := range raws {
		attempt, err := decodeAttempt(raw)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, attempt)
	}
	return attempts, nil
}

// MarkEscalated sets the escalation marker of a record if absent
func (s *ReminderStore) MarkEscalated(ctx context.Context, recordID string, at time.Time) (bool, error) {
	marked, err := s.client.SetNX(ctx, s.escalationKey(recordID), at.UTC().Format(time.RFC3339Nano), 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s escalated: %w", recordID, err)
	}
	return marked, nil
}

// EscalatedAt retrieves the escalation marker of a record
func (s *ReminderStore) EscalatedAt(ctx context.Context, recordID string) (*time.Time, error) {
	raw, err := s.client.Get(ctx, s.escalationKey(recordID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation marker: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse escalation marker of %s: %w", recordID, err)
	}
	return &at, nil
}

// MarkDispatched sets the hand-off marker of a step if absent
func (s *ReminderStore) MarkDispatched(ctx context.Context, naturalKey string, at time.Time) (bool, error) {
	marked, err := s.client.SetNX(ctx, s.dispatchKey(naturalKey), at.UTC().Format(time.RFC3339Nano), 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s dispatched: %w", naturalKey, err)
	}
	return marked, nil
}

// DispatchedAt retrieves the hand-off marker of a step
func (s *ReminderStore) DispatchedAt(ctx context.Context, naturalKey string) (*time.Time, error) {
	raw, err := s.client.Get(ctx, s.dispatchKey(naturalKey)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hand-off marker: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hand-off marker of %s: %w", naturalKey, err)
	}
	return &at, nil
}
