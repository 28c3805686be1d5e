package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Channel is the medium a reminder is sent through
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelCall     Channel = "call"
)

// Valid reports whether c is a known channel
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelCall:
		return true
	}
	return false
}

// AttemptStatus is a state of the reminder attempt state machine
type AttemptStatus string

const (
	AttemptNotSent   AttemptStatus = "not_sent"
	AttemptScheduled AttemptStatus = "scheduled"
	AttemptSent      AttemptStatus = "sent"
	AttemptFailed    AttemptStatus = "failed"
)

// Outcome drives a transition of the reminder attempt state machine
type Outcome string

const (
	OutcomeSchedule Outcome = "schedule"
	OutcomeSent     Outcome = "sent"
	OutcomeFailed   Outcome = "failed"
)

// ReminderAttempt is one snapshot in the append-only reminder history of a record and channel.
// The newest snapshot per (RecordID, Channel) is the current state.
type ReminderAttempt struct {
	ID              uuid.UUID
	RecordID        string
	Channel         Channel
	DueDate         time.Time // Due date of the underlying record, anchors the first reminder
	ScheduledDate   *time.Time
	Status          AttemptStatus
	AttemptCount    int
	LastAttemptDate *time.Time
	CreatedAt       time.Time
}

// stepOutcome is the natural key token shared by sent and failed snapshots
const stepOutcome = "outcome"

// NaturalKey identifies the cadence step this snapshot represents.
// Two snapshots with the same key describe the same step and must not both be appended.
// Sent and failed share one token, so a step keeps only the first outcome reported for it.
func (a *ReminderAttempt) NaturalKey() string {
	step := string(a.Status)
	if a.Status == AttemptSent || a.Status == AttemptFailed {
		step = stepOutcome
	}
	return a.RecordID + "|" + string(a.Channel) + "|" + step + "|" + strconv.Itoa(a.AttemptCount)
}

// StreamKey identifies the record and channel pair the snapshot belongs to
func (a *ReminderAttempt) StreamKey() string {
	return a.RecordID + "|" + string(a.Channel)
}

// NewReminderAttempt opens a fresh not_sent attempt for a record
func NewReminderAttempt(recordID string, channel Channel, dueDate, now time.Time) ReminderAttempt {
	return ReminderAttempt{
		ID:        uuid.New(),
		RecordID:  recordID,
		Channel:   channel,
		DueDate:   Day(dueDate),
		Status:    AttemptNotSent,
		CreatedAt: now,
	}
}
