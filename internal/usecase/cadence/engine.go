package cadence

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/simaogato/finops-backend/internal/domain"
)

var (
	// ErrInvalidTransition is returned for an outcome the current state does not accept
	ErrInvalidTransition = errors.New("invalid reminder state transition")

	// ErrAttemptsExhausted is returned when a retry would exceed the maximum attempts.
	// The attempt needs manual handling.
	ErrAttemptsExhausted = errors.New("reminder attempts exhausted, action required")
)

// Engine evaluates automation rules and advances reminder attempts.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	policy Policy
	log    zerolog.Logger
}

// NewEngine creates a new Engine instance
func NewEngine(policy Policy, log zerolog.Logger) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: policy, log: log}, nil
}

// Policy returns the cadence policy of the engine
func (e *Engine) Policy() Policy {
	return e.policy
}

// EvaluateRules returns the actions triggered for a record
// Logic:
//   - The rule list is copied on entry, later edits do not affect this pass
//   - Disabled rules are skipped
//   - Invalid rules never match and are logged as configuration warnings
//   - Every matching rule fires, deduplicated by (recordID, action)
//   - daysOverdue above the escalation threshold adds an escalate action
//   - Escalate actions are suppressed once the record carries an escalation marker
func (e *Engine) EvaluateRules(facts domain.RecordFacts, rules []domain.AutomationRule, now time.Time) []domain.TriggeredAction {
	snapshot := make([]domain.AutomationRule, len(rules))
	copy(snapshot, rules)

	actions := make([]domain.TriggeredAction, 0)
	fired := make(map[domain.Action]bool)

	fire := func(action domain.Action, ruleID string) {
		if fired[action] {
			return
		}
		if action == domain.ActionEscalate && facts.EscalatedAt != nil {
			return
		}
		fired[action] = true
		actions = append(actions, domain.TriggeredAction{
			RecordID:    facts.RecordID,
			Action:      action,
			RuleID:      ruleID,
			TriggeredAt: now,
		})
	}

	for _, rule := range snapshot {
		if !rule.Enabled {
			continue
		}

		if err := rule.Validate(); err != nil {
			e.log.Warn().
				Err(err).
				Str("rule_id", rule.ID).
				Str("record_id", facts.RecordID).
				Msg("Skipping invalid automation rule")
			continue
		}

		value, ok := facts.Value(rule.Field)
		if !ok {
			continue
		}

		if rule.Compare(value) {
			fire(rule.Action, rule.ID)
		}
	}

	if facts.DaysOverdue > e.policy.EscalationAfterDays {
		fire(domain.ActionEscalate, "")
	}

	return actions
}

// AdvanceReminderState applies an outcome to an attempt and returns the next snapshot
// Transitions:
//   - not_sent  + schedule -> scheduled at max(due + first offset, now)
//   - failed    + schedule -> scheduled at now + follow-up interval, while attempts remain
//   - sent      + schedule -> scheduled at last attempt + follow-up interval, while attempts remain
//   - scheduled + sent     -> sent, attempt count and last attempt date updated
//   - scheduled + failed   -> failed, attempt count updated, scheduled date cleared
//
// The input attempt is never modified. The returned snapshot carries a new ID so it can be
// appended to the history next to its predecessor.
func (e *Engine) AdvanceReminderState(attempt domain.ReminderAttempt, outcome domain.Outcome, now time.Time) (domain.ReminderAttempt, error) {
	next := attempt
	next.ID = uuid.New()
	next.CreatedAt = now

	switch {
	case outcome == domain.OutcomeSchedule && attempt.Status == domain.AttemptNotSent:
		scheduled := latest(attempt.DueDate.Add(e.policy.FirstReminderOffset), now)
		next.Status = domain.AttemptScheduled
		next.ScheduledDate = &scheduled

	case outcome == domain.OutcomeSchedule && attempt.Status == domain.AttemptFailed:
		if e.Exhausted(attempt) {
			return attempt, fmt.Errorf("record %s on %s: %w", attempt.RecordID, attempt.Channel, ErrAttemptsExhausted)
		}
		scheduled := now.Add(e.policy.FollowUpInterval)
		next.Status = domain.AttemptScheduled
		next.ScheduledDate = &scheduled

	case outcome == domain.OutcomeSchedule && attempt.Status == domain.AttemptSent:
		if e.Exhausted(attempt) {
			return attempt, fmt.Errorf("record %s on %s: %w", attempt.RecordID, attempt.Channel, ErrAttemptsExhausted)
		}
		base := now
		if attempt.LastAttemptDate != nil {
			base = *attempt.LastAttemptDate
		}
		scheduled := latest(base.Add(e.policy.FollowUpInterval), now)
		next.Status = domain.AttemptScheduled
		next.ScheduledDate = &scheduled

	case outcome == domain.OutcomeSent && attempt.Status == domain.AttemptScheduled:
		next.Status = domain.AttemptSent
		next.AttemptCount = attempt.AttemptCount + 1
		next.LastAttemptDate = &now

	case outcome == domain.OutcomeFailed && attempt.Status == domain.AttemptScheduled:
		next.Status = domain.AttemptFailed
		next.AttemptCount = attempt.AttemptCount + 1
		next.LastAttemptDate = &now
		next.ScheduledDate = nil

	default:
		return attempt, fmt.Errorf("%w: %s on %s attempt", ErrInvalidTransition, outcome, attempt.Status)
	}

	return next, nil
}

// Exhausted reports whether the attempt has used all allowed sends
func (e *Engine) Exhausted(attempt domain.ReminderAttempt) bool {
	return attempt.AttemptCount >= e.policy.MaxAttempts
}

// ActionRequired reports whether the attempt failed and cannot be retried automatically
func (e *Engine) ActionRequired(attempt domain.ReminderAttempt) bool {
	return attempt.Status == domain.AttemptFailed && e.Exhausted(attempt)
}

// Due reports whether a scheduled attempt should be dispatched at now
func (e *Engine) Due(attempt domain.ReminderAttempt, now time.Time) bool {
	return attempt.Status == domain.AttemptScheduled &&
		attempt.ScheduledDate != nil &&
		!attempt.ScheduledDate.After(now)
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
