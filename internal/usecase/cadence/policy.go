package cadence

import (
	"time"

	"github.com/simaogato/finops-backend/internal/domain"
)

const day = 24 * time.Hour

// Policy holds the reminder cadence settings
type Policy struct {
	FirstReminderOffset time.Duration  // After the due date
	FollowUpInterval    time.Duration  // Between attempts
	MaxAttempts         int            // Before manual handling is required
	EscalationAfterDays int            // Escalate once daysOverdue exceeds this
	DefaultChannel      domain.Channel // Channel used for rule-triggered reminders
	HandOffTimeout      time.Duration  // How long a handed-off step waits for its outcome before it counts as failed
}

// DefaultPolicy returns the standard cadence: first reminder 7 days after due,
// follow-ups every 7 days, 3 attempts, escalation after 21 days overdue.
// A handed-off reminder with no reported outcome after a day counts as failed.
func DefaultPolicy() Policy {
	return Policy{
		FirstReminderOffset: 7 * day,
		FollowUpInterval:    7 * day,
		MaxAttempts:         3,
		EscalationAfterDays: 21,
		DefaultChannel:      domain.ChannelEmail,
		HandOffTimeout:      day,
	}
}

// Validate ensures the policy is usable
func (p Policy) Validate() error {
	if p.FirstReminderOffset < 0 {
		return &domain.ConfigurationError{Subject: "cadence", Reason: "first reminder offset cannot be negative"}
	}
	if p.FollowUpInterval <= 0 {
		return &domain.ConfigurationError{Subject: "cadence", Reason: "follow-up interval must be positive"}
	}
	if p.MaxAttempts <= 0 {
		return &domain.ConfigurationError{Subject: "cadence", Reason: "max attempts must be positive"}
	}
	if p.EscalationAfterDays < 0 {
		return &domain.ConfigurationError{Subject: "cadence", Reason: "escalation threshold cannot be negative"}
	}
	if p.HandOffTimeout <= 0 {
		return &domain.ConfigurationError{Subject: "cadence", Reason: "hand-off timeout must be positive"}
	}
	if !p.DefaultChannel.Valid() {
		return &domain.ConfigurationError{Subject: "cadence", Reason: "unknown channel " + string(p.DefaultChannel)}
	}
	return nil
}
