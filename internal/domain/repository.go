package domain

import (
	"context"
	"time"
)

// RecordRepository defines the interface for sourcing financial records
type RecordRepository interface {
	// List retrieves all records of a ledger
	// If ledger is empty, returns records of every ledger
	List(ctx context.Context, ledger Ledger) ([]FinancialRecord, error)

	// Save creates or replaces a record
	Save(ctx context.Context, record *FinancialRecord) error
}

// RuleRepository defines the interface for automation rule persistence operations
type RuleRepository interface {
	// List retrieves every rule in creation order
	List(ctx context.Context) ([]AutomationRule, error)

	// GetByID retrieves a rule by its ID
	// Returns an error wrapping ErrNotFound when the rule does not exist
	GetByID(ctx context.Context, id string) (*AutomationRule, error)

	// Save creates or replaces a rule
	Save(ctx context.Context, rule *AutomationRule) error

	// Delete removes a rule
	Delete(ctx context.Context, id string) error
}

// ReminderRepository defines the interface for the append-only reminder history
type ReminderRepository interface {
	// Append stores a snapshot unless one with the same natural key already exists
	// Returns true if the snapshot was stored
	// Implementations must make the natural key check atomic
	Append(ctx context.Context, attempt *ReminderAttempt) (bool, error)

	// Latest retrieves the newest snapshot for a record and channel
	// Returns an error wrapping ErrNotFound when no snapshot exists
	Latest(ctx context.Context, recordID string, channel Channel) (*ReminderAttempt, error)

	// ListLatest retrieves the newest snapshot of every record and channel pair
	ListLatest(ctx context.Context) ([]ReminderAttempt, error)

	// History retrieves every snapshot of a record, oldest first
	History(ctx context.Context, recordID string) ([]ReminderAttempt, error)

	// MarkEscalated records the escalation marker for a record if absent
	// Returns true only for the call that set the marker
	MarkEscalated(ctx context.Context, recordID string, at time.Time) (bool, error)

	// EscalatedAt retrieves the escalation marker, nil if the record was never escalated
	EscalatedAt(ctx context.Context, recordID string) (*time.Time, error)

	// MarkDispatched records the hand-off of a scheduled step, keyed by its natural key, if absent
	// Returns true only for the call that set the marker
	MarkDispatched(ctx context.Context, naturalKey string, at time.Time) (bool, error)

	// DispatchedAt retrieves the hand-off marker of a step, nil if it was never handed off
	DispatchedAt(ctx context.Context, naturalKey string) (*time.Time, error)
}
