package cadence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/simaogato/finops-backend/internal/domain"
)

// Dispatcher hands a due reminder to a messaging provider.
// Dispatch only reports hand-off failures; delivery outcomes come back through ReportOutcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, attempt domain.ReminderAttempt) error
}

// CycleResult summarises one evaluation pass
type CycleResult struct {
	Actions        []domain.TriggeredAction
	Escalated      []string                 // Record IDs escalated by this pass
	EscalatedPrior []string                 // Record IDs escalated by an earlier pass
	Appended       []domain.ReminderAttempt // Snapshots this pass added to the history
	ActionRequired []domain.ReminderAttempt // Attempts that need manual handling
}

// Service runs reminder cycles against the rule and reminder stores
type Service struct {
	Engine       *Engine
	RuleRepo     domain.RuleRepository
	ReminderRepo domain.ReminderRepository
	Dispatcher   Dispatcher

	// ConfirmOnHandOff folds a successful hand-off in as a sent outcome right away,
	// for dispatchers that deliver synchronously
	ConfirmOnHandOff bool

	log zerolog.Logger
}

// NewService creates a new Service instance
func NewService(
	engine *Engine,
	ruleRepo domain.RuleRepository,
	reminderRepo domain.ReminderRepository,
	dispatcher Dispatcher,
	log zerolog.Logger,
) *Service {
	return &Service{
		Engine:       engine,
		RuleRepo:     ruleRepo,
		ReminderRepo: reminderRepo,
		Dispatcher:   dispatcher,
		log:          log,
	}
}

// FactsFor builds rule inputs for every classified record currently displayed as overdue
func FactsFor(records []domain.ClassifiedRecord) []domain.RecordFacts {
	facts := make([]domain.RecordFacts, 0, len(records))
	for _, record := range records {
		if record.DisplayStatus != domain.StatusOverdue {
			continue
		}
		facts = append(facts, domain.RecordFacts{
			RecordID:    record.ID,
			DueDate:     record.DueDate,
			DaysOverdue: record.DaysPastDue,
			Amount:      record.Amount,
			RiskScore:   record.RiskScore,
		})
	}
	return facts
}

// RunCycle evaluates every record against the current rules
// Logic:
//  1. Read the rule list once; edits made during the pass apply to the next one
//  2. Load each record's escalation marker and evaluate the rules
//  3. Escalate actions set the marker; a pass that loses the race drops the action
//  4. Send reminder actions open or advance the record's reminder cadence
//  5. Exhausted attempts are reported as action required
//
// Every history write goes through the natural-key Append, so concurrent passes over
// the same record never add the same cadence step twice.
func (s *Service) RunCycle(ctx context.Context, records []domain.RecordFacts, now time.Time) (*CycleResult, error) {
	rules, err := s.RuleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list automation rules: %w", err)
	}

	result := &CycleResult{
		Actions:        make([]domain.TriggeredAction, 0),
		Escalated:      make([]string, 0),
		EscalatedPrior: make([]string, 0),
		Appended:       make([]domain.ReminderAttempt, 0),
		ActionRequired: make([]domain.ReminderAttempt, 0),
	}

	for _, facts := range records {
		if facts.EscalatedAt == nil {
			escalatedAt, err := s.ReminderRepo.EscalatedAt(ctx, facts.RecordID)
			if err != nil {
				return nil, fmt.Errorf("failed to load escalation marker for %s: %w", facts.RecordID, err)
			}
			facts.EscalatedAt = escalatedAt
		}
		if facts.EscalatedAt != nil {
			result.EscalatedPrior = append(result.EscalatedPrior, facts.RecordID)
		}

		for _, action := range s.Engine.EvaluateRules(facts, rules, now) {
			switch action.Action {
			case domain.ActionEscalate:
				marked, err := s.ReminderRepo.MarkEscalated(ctx, facts.RecordID, now)
				if err != nil {
					return nil, fmt.Errorf("failed to mark %s escalated: %w", facts.RecordID, err)
				}
				if !marked {
					continue
				}
				result.Escalated = append(result.Escalated, facts.RecordID)

			case domain.ActionSendReminder:
				if err := s.advanceCadence(ctx, facts, now, result); err != nil {
					return nil, err
				}
			}

			result.Actions = append(result.Actions, action)
		}
	}

	s.log.Info().
		Int("records", len(records)).
		Int("rules", len(rules)).
		Int("actions", len(result.Actions)).
		Int("escalated", len(result.Escalated)).
		Int("appended", len(result.Appended)).
		Int("action_required", len(result.ActionRequired)).
		Msg("Reminder cycle completed")

	return result, nil
}

// advanceCadence opens the record's reminder stream if needed and schedules its next step
func (s *Service) advanceCadence(ctx context.Context, facts domain.RecordFacts, now time.Time, result *CycleResult) error {
	channel := s.Engine.Policy().DefaultChannel

	current, err := s.ReminderRepo.Latest(ctx, facts.RecordID, channel)
	if errors.Is(err, domain.ErrNotFound) {
		opened := domain.NewReminderAttempt(facts.RecordID, channel, facts.DueDate, now)
		if err := s.append(ctx, opened, result); err != nil {
			return err
		}
		current = &opened
	} else if err != nil {
		return fmt.Errorf("failed to load reminder state for %s: %w", facts.RecordID, err)
	}

	switch current.Status {
	case domain.AttemptScheduled:
		return nil
	case domain.AttemptFailed, domain.AttemptSent:
		if s.Engine.Exhausted(*current) {
			if s.Engine.ActionRequired(*current) {
				result.ActionRequired = append(result.ActionRequired, *current)
			}
			return nil
		}
	}

	next, err := s.Engine.AdvanceReminderState(*current, domain.OutcomeSchedule, now)
	if err != nil {
		return err
	}
	return s.append(ctx, next, result)
}

func (s *Service) append(ctx context.Context, attempt domain.ReminderAttempt, result *CycleResult) error {
	stored, err := s.ReminderRepo.Append(ctx, &attempt)
	if err != nil {
		return fmt.Errorf("failed to append reminder snapshot %s: %w", attempt.NaturalKey(), err)
	}
	if stored {
		result.Appended = append(result.Appended, attempt)
	}
	return nil
}

// DispatchDue hands every due scheduled reminder to the dispatcher
// Logic:
//  1. Each due step is claimed with a hand-off marker before it is dispatched
//  2. A step already handed off is skipped until its outcome is reported
//  3. A step whose outcome has not arrived within the hand-off timeout counts as failed
//  4. A hand-off failure is folded in as a failed outcome so the retry policy applies
//
// Returns the attempts that were handed off by this call.
func (s *Service) DispatchDue(ctx context.Context, now time.Time) ([]domain.ReminderAttempt, error) {
	attempts, err := s.ReminderRepo.ListLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder state: %w", err)
	}

	dispatched := make([]domain.ReminderAttempt, 0)
	for _, attempt := range attempts {
		if !s.Engine.Due(attempt, now) {
			continue
		}

		key := attempt.NaturalKey()
		handedOffAt, err := s.ReminderRepo.DispatchedAt(ctx, key)
		if err != nil {
			return dispatched, fmt.Errorf("failed to load hand-off marker for %s: %w", key, err)
		}
		if handedOffAt != nil {
			if now.Sub(*handedOffAt) < s.Engine.Policy().HandOffTimeout {
				continue
			}
			s.log.Warn().
				Str("record_id", attempt.RecordID).
				Int("attempt_count", attempt.AttemptCount).
				Time("handed_off_at", *handedOffAt).
				Msg("Reminder outcome not reported in time")
			if err := s.fold(ctx, attempt, domain.OutcomeFailed, now); err != nil {
				return dispatched, err
			}
			continue
		}

		claimed, err := s.ReminderRepo.MarkDispatched(ctx, key, now)
		if err != nil {
			return dispatched, fmt.Errorf("failed to mark %s dispatched: %w", key, err)
		}
		if !claimed {
			continue
		}

		if err := s.Dispatcher.Dispatch(ctx, attempt); err != nil {
			dispatchErr := &domain.TransientDispatchError{RecordID: attempt.RecordID, Channel: attempt.Channel, Err: err}
			s.log.Warn().
				Err(dispatchErr).
				Str("record_id", attempt.RecordID).
				Int("attempt_count", attempt.AttemptCount).
				Msg("Reminder dispatch failed")

			if err := s.fold(ctx, attempt, domain.OutcomeFailed, now); err != nil {
				return dispatched, err
			}
			continue
		}

		dispatched = append(dispatched, attempt)

		if s.ConfirmOnHandOff {
			if err := s.fold(ctx, attempt, domain.OutcomeSent, now); err != nil {
				return dispatched, err
			}
		}
	}

	return dispatched, nil
}

// fold reports an outcome on behalf of the dispatcher; an outcome reported concurrently wins
func (s *Service) fold(ctx context.Context, attempt domain.ReminderAttempt, outcome domain.Outcome, now time.Time) error {
	_, err := s.ReportOutcome(ctx, attempt.RecordID, attempt.Channel, outcome, now)
	if errors.Is(err, ErrInvalidTransition) {
		s.log.Debug().
			Err(err).
			Str("record_id", attempt.RecordID).
			Msg("Reminder outcome already reported")
		return nil
	}
	return err
}

// ReportOutcome folds a delivery outcome into the latest snapshot of a record and channel
// Only the first outcome reported for a cadence step is kept; a later one fails with ErrInvalidTransition.
func (s *Service) ReportOutcome(
	ctx context.Context,
	recordID string,
	channel domain.Channel,
	outcome domain.Outcome,
	now time.Time,
) (*domain.ReminderAttempt, error) {
	current, err := s.ReminderRepo.Latest(ctx, recordID, channel)
	if err != nil {
		return nil, err
	}

	next, err := s.Engine.AdvanceReminderState(*current, outcome, now)
	if err != nil {
		return nil, err
	}

	stored, err := s.ReminderRepo.Append(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("failed to append reminder snapshot %s: %w", next.NaturalKey(), err)
	}
	if !stored {
		return nil, fmt.Errorf("%w: outcome already reported for %s attempt %d",
			ErrInvalidTransition, recordID, next.AttemptCount)
	}

	return &next, nil
}

// ActionRequired lists every reminder stream that needs manual handling
func (s *Service) ActionRequired(ctx context.Context) ([]domain.ReminderAttempt, error) {
	attempts, err := s.ReminderRepo.ListLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder state: %w", err)
	}

	required := make([]domain.ReminderAttempt, 0)
	for _, attempt := range attempts {
		if s.Engine.ActionRequired(attempt) {
			required = append(required, attempt)
		}
	}
	return required, nil
}
