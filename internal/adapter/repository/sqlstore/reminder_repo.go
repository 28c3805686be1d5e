package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/finops-backend/internal/domain"
)

// reminderRepository implements domain.ReminderRepository
// The history is append-only; the unique natural_key column makes Append idempotent.
type reminderRepository struct {
	db *DB
}

// NewReminderRepository creates a new reminder history repository
func NewReminderRepository(db *DB) domain.ReminderRepository {
	return &reminderRepository{db: db}
}

const attemptColumns = `id, record_id, channel, due_date, scheduled_date, status, attempt_count, last_attempt_date, created_at`

func scanAttempt(row rowScanner) (*domain.ReminderAttempt, error) {
	var (
		attempt                  domain.ReminderAttempt
		idStr, dueStr, createdAt string
		scheduled, lastAttempt   sql.NullString
	)

	err := row.Scan(
		&idStr,
		&attempt.RecordID,
		&attempt.Channel,
		&dueStr,
		&scheduled,
		&attempt.Status,
		&attempt.AttemptCount,
		&lastAttempt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if attempt.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("failed to parse attempt id: %w", err)
	}
	if attempt.DueDate, err = parseDate(dueStr); err != nil {
		return nil, fmt.Errorf("failed to parse attempt due date: %w", err)
	}
	if attempt.ScheduledDate, err = parseTimestamp(scheduled); err != nil {
		return nil, fmt.Errorf("failed to parse scheduled date: %w", err)
	}
	if attempt.LastAttemptDate, err = parseTimestamp(lastAttempt); err != nil {
		return nil, fmt.Errorf("failed to parse last attempt date: %w", err)
	}
	created, err := time.Parse(timestampLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created at: %w", err)
	}
	attempt.CreatedAt = created

	return &attempt, nil
}

func (r *reminderRepository) list(ctx context.Context, query string, args ...any) ([]domain.ReminderAttempt, error) {
	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]domain.ReminderAttempt, 0)
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder attempt: %w", err)
		}
		attempts = append(attempts, *attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder attempts: %w", err)
	}

	return attempts, nil
}

// Append stores a snapshot unless its natural key was already stored
func (r *reminderRepository) Append(ctx context.Context, attempt *domain.ReminderAttempt) (bool, error) {
	query := `
		INSERT INTO reminder_attempts (natural_key, ` + attemptColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (natural_key) DO NOTHING
	`

	result, err := r.db.exec(ctx, query,
		attempt.NaturalKey(),
		attempt.ID.String(),
		attempt.RecordID,
		string(attempt.Channel),
		formatDate(attempt.DueDate),
		formatTimestamp(attempt.ScheduledDate),
		string(attempt.Status),
		attempt.AttemptCount,
		formatTimestamp(attempt.LastAttemptDate),
		attempt.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return false, fmt.Errorf("failed to append reminder attempt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to append reminder attempt: %w", err)
	}

	return affected == 1, nil
}

// Latest retrieves the newest snapshot for a record and channel
func (r *reminderRepository) Latest(ctx context.Context, recordID string, channel domain.Channel) (*domain.ReminderAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM reminder_attempts
		WHERE record_id = ? AND channel = ?
		ORDER BY seq DESC
		LIMIT 1
	`

	attempt, err := scanAttempt(r.db.queryRow(ctx, query, recordID, string(channel)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reminder state for %s on %s %w", recordID, channel, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get reminder state: %w", err)
	}

	return attempt, nil
}

// ListLatest retrieves the newest snapshot of every stream, ordered by record and channel
func (r *reminderRepository) ListLatest(ctx context.Context) ([]domain.ReminderAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM reminder_attempts a
		WHERE a.seq = (
			SELECT MAX(b.seq) FROM reminder_attempts b
			WHERE b.record_id = a.record_id AND b.channel = a.channel
		)
		ORDER BY a.record_id ASC, a.channel ASC
	`

	return r.list(ctx, query)
}

// History retrieves every snapshot of a record, oldest first
func (r *reminderRepository) History(ctx context.Context, recordID string) ([]domain.ReminderAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM reminder_attempts
		WHERE record_id = ?
		ORDER BY seq ASC
	`

	return r.list(ctx, query, recordID)
}

// MarkEscalated sets the escalation marker of a record if absent
func (r *reminderRepository) MarkEscalated(ctx context.Context, recordID string, at time.Time) (bool, error) {
	query := `
		INSERT INTO escalations (record_id, escalated_at)
		VALUES (?, ?)
		ON CONFLICT (record_id) DO NOTHING
	`

	result, err := r.db.exec(ctx, query, recordID, at.UTC().Format(timestampLayout))
	if err != nil {
		return false, fmt.Errorf("failed to mark %s escalated: %w", recordID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s escalated: %w", recordID, err)
	}

	return affected == 1, nil
}

// EscalatedAt retrieves the escalation marker of a record
func (r *reminderRepository) EscalatedAt(ctx context.Context, recordID string) (*time.Time, error) {
	var at sql.NullString
	err := r.db.queryRow(ctx, `SELECT escalated_at FROM escalations WHERE record_id = ?`, recordID).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get escalation marker: %w", err)
	}

	return parseTimestamp(at)
}

// MarkDispatched sets the hand-off marker of a step if absent
func (r *reminderRepository) MarkDispatched(ctx context.Context, naturalKey string, at time.Time) (bool, error) {
	query := `
		INSERT INTO dispatches (natural_key, dispatched_at)
		VALUES (?, ?)
		ON CONFLICT (natural_key) DO NOTHING
	`

	result, err := r.db.exec(ctx, query, naturalKey, at.UTC().Format(timestampLayout))
	if err != nil {
		return false, fmt.Errorf("failed to mark %s dispatched: %w", naturalKey, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark %s dispatched: %w", naturalKey, err)
	}

	return affected == 1, nil
}

// DispatchedAt retrieves the hand-off marker of a step
func (r *reminderRepository) DispatchedAt(ctx context.Context, naturalKey string) (*time.Time, error) {
	var at sql.NullString
	err := r.db.queryRow(ctx, `SELECT dispatched_at FROM dispatches WHERE natural_key = ?`, naturalKey).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get hand-off marker: %w", err)
	}

	return parseTimestamp(at)
}
