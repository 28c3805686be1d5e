package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/simaogato/finops-backend/internal/domain"
)

// msgPublisher is the part of *nats.Conn the publisher uses
type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSPublisher hands due reminders to the messaging providers over NATS
//
// Subject convention: <prefix>.<channel>, e.g. reminders.email
//
// Each message carries the attempt's natural key as Nats-Msg-Id, so a JetStream stream
// bound to the subject drops a re-dispatch of the same cadence step.
type NATSPublisher struct {
	conn   msgPublisher
	prefix string
	log    zerolog.Logger
}

// ReminderEvent is the JSON schema published to NATS
type ReminderEvent struct {
	AttemptID     string    `json:"attempt_id"`
	RecordID      string    `json:"record_id"`
	Channel       string    `json:"channel"`
	AttemptNumber int       `json:"attempt_number"`
	DueDate       string    `json:"due_date"`
	ScheduledDate time.Time `json:"scheduled_date"`
}

// Connect opens a NATS connection for reminder dispatch
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return conn, nil
}

// NewNATSPublisher creates a publisher backed by the given NATS connection
func NewNATSPublisher(conn *nats.Conn, prefix string, log zerolog.Logger) *NATSPublisher {
	return newNATSPublisher(conn, prefix, log)
}

func newNATSPublisher(conn msgPublisher, prefix string, log zerolog.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = "reminders"
	}
	return &NATSPublisher{conn: conn, prefix: prefix, log: log}
}

// Dispatch publishes one reminder event
func (p *NATSPublisher) Dispatch(ctx context.Context, attempt domain.ReminderAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	event := ReminderEvent{
		AttemptID:     attempt.ID.String(),
		RecordID:      attempt.RecordID,
		Channel:       string(attempt.Channel),
		AttemptNumber: attempt.AttemptCount + 1,
		DueDate:       attempt.DueDate.Format("2006-01-02"),
	}
	if attempt.ScheduledDate != nil {
		event.ScheduledDate = *attempt.ScheduledDate
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder event: %w", err)
	}

	msg := nats.NewMsg(fmt.Sprintf("%s.%s", p.prefix, attempt.Channel))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, attempt.NaturalKey())

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish reminder event: %w", err)
	}

	p.log.Debug().
		Str("subject", msg.Subject).
		Str("record_id", attempt.RecordID).
		Int("attempt_number", event.AttemptNumber).
		Msg("Reminder event published")

	return nil
}
