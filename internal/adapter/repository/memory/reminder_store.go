package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/simaogato/finops-backend/internal/domain"
)

// ReminderStore implements domain.ReminderRepository in memory
type ReminderStore struct {
	mu        sync.Mutex
	keys      map[string]bool
	history   map[string][]domain.ReminderAttempt // By record ID
	latest    map[string]domain.ReminderAttempt   // By stream key
	escalated map[string]time.Time
	handedOff map[string]time.Time // By natural key
}

// NewReminderStore creates a new empty reminder store
func NewReminderStore() *ReminderStore {
	return &ReminderStore{
		keys:      make(map[string]bool),
		history:   make(map[string][]domain.ReminderAttempt),
		latest:    make(map[string]domain.ReminderAttempt),
		escalated: make(map[string]time.Time),
		handedOff: make(map[string]time.Time),
	}
}

// Append stores a snapshot unless its natural key was already stored
func (s *ReminderStore) Append(ctx context.Context, attempt *domain.ReminderAttempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attempt.NaturalKey()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	s.history[attempt.RecordID] = append(s.history[attempt.RecordID], *attempt)
	s.latest[attempt.StreamKey()] = *attempt
	return true, nil
}

// Latest retrieves the newest snapshot for a record and channel
func (s *ReminderStore) Latest(ctx context.Context, recordID string, channel domain.Channel) (*domain.ReminderAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	probe := domain.ReminderAttempt{RecordID: recordID, Channel: channel}
	attempt, ok := s.latest[probe.StreamKey()]
	if !ok {
		return nil, fmt.Errorf("reminder state for %s on %s %w", recordID, channel, domain.ErrNotFound)
	}
	return &attempt, nil
}

// ListLatest retrieves the newest snapshot of every stream, ordered by record and channel
func (s *ReminderStore) ListLatest(ctx context.Context) ([]domain.ReminderAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.latest))
	for key := range s.latest {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	attempts := make([]domain.ReminderAttempt, 0, len(keys))
	for _, key := range keys {
		attempts = append(attempts, s.latest[key])
	}
	return attempts, nil
}

// History retrieves every snapshot of a record, oldest first
func (s *ReminderStore) History(ctx context.Context, recordID string) ([]domain.ReminderAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]domain.ReminderAttempt, len(s.history[recordID]))
	copy(history, s.history[recordID])
	return history, nil
}

// MarkEscalated sets the escalation marker of a record if absent
func (s *ReminderStore) MarkEscalated(ctx context.Context, recordID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.escalated[recordID]; ok {
		return false, nil
	}
	s.escalated[recordID] = at
	return true, nil
}

// EscalatedAt retrieves the escalation marker of a record
func (s *ReminderStore) EscalatedAt(ctx context.Context, recordID string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.escalated[recordID]
	if !ok {
		return nil, nil
	}
	return &at, nil
}

// MarkDispatched sets the hand-off marker of a step if absent
func (s *ReminderStore) MarkDispatched(ctx context.Context, naturalKey string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.handedOff[naturalKey]; ok {
		return false, nil
	}
	s.handedOff[naturalKey] = at
	return true, nil
}

// DispatchedAt retrieves the hand-off marker of a step
func (s *ReminderStore) DispatchedAt(ctx context.Context, naturalKey string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.handedOff[naturalKey]
	if !ok {
		return nil, nil
	}
	return &at, nil
}
