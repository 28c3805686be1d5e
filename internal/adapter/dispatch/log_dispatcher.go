package dispatch

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/simaogato/finops-backend/internal/domain"
)

// LogDispatcher writes due reminders to the log instead of a provider.
// Used for local runs; pair it with cadence.Service.ConfirmOnHandOff.
type LogDispatcher struct {
	log zerolog.Logger
}

// NewLogDispatcher creates a new LogDispatcher
func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

// Dispatch logs the reminder
func (d *LogDispatcher) Dispatch(ctx context.Context, attempt domain.ReminderAttempt) error {
	d.log.Info().
		Str("record_id", attempt.RecordID).
		Str("channel", string(attempt.Channel)).
		Int("attempt_number", attempt.AttemptCount+1).
		Msg("Reminder dispatched")
	return nil
}
