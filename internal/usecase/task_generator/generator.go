package task_generator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/finops-backend/internal/domain"
	"github.com/simaogato/finops-backend/internal/usecase/cadence"
)

// TaskKind is the follow-up a collector has to perform
type TaskKind string

const (
	TaskCallCustomer   TaskKind = "call_customer"
	TaskResolveFailure TaskKind = "resolve_failed_reminder"
	TaskReviewAtRisk   TaskKind = "review_at_risk"
)

// priority orders task kinds, lower first
var priority = map[TaskKind]int{
	TaskCallCustomer:   0,
	TaskResolveFailure: 1,
	TaskReviewAtRisk:   2,
}

// CollectionTask is a manual follow-up generated by a reminder cycle
type CollectionTask struct {
	ID          uuid.UUID
	RecordID    string
	Kind        TaskKind
	Detail      string
	Destination domain.Destination
	CreatedAt   time.Time
}

// GenerateTasks analyzes a cycle result and generates the CollectionTasks a person has to handle.
//
// Logic:
//   - Records escalated by this pass -> call the customer
//   - Attempts that exhausted their retries -> resolve the failed reminder
//   - Records marked at risk -> review the account, unless the record was escalated
//     by this pass or an earlier one, since a collector was already told to call
//   - At most one task per (record, kind)
//
// Counterparty and amount come from the receivables ledger. Returns an error if the lookup fails.
func GenerateTasks(ctx context.Context, result *cadence.CycleResult, recordRepo domain.RecordRepository, now time.Time) ([]CollectionTask, error) {
	if result == nil || (len(result.Escalated) == 0 && len(result.ActionRequired) == 0 && len(result.Actions) == 0) {
		return []CollectionTask{}, nil
	}

	receivables, err := recordRepo.List(ctx, domain.LedgerReceivable)
	if err != nil {
		return nil, fmt.Errorf("failed to list receivables: %w", err)
	}
	records := make(map[string]domain.FinancialRecord, len(receivables))
	for _, record := range receivables {
		records[record.ID] = record
	}

	describe := func(recordID string) string {
		record, ok := records[recordID]
		if !ok {
			return recordID
		}
		return fmt.Sprintf("%s (%s, %s)", recordID, record.CounterpartyName, record.Amount.StringFixed(2))
	}

	tasks := make([]CollectionTask, 0)
	created := make(map[string]bool)

	add := func(recordID string, kind TaskKind, detail string, destination domain.Destination) {
		key := recordID + "|" + string(kind)
		if created[key] {
			return
		}
		created[key] = true
		tasks = append(tasks, CollectionTask{
			ID:          uuid.New(),
			RecordID:    recordID,
			Kind:        kind,
			Detail:      detail,
			Destination: destination,
			CreatedAt:   now,
		})
	}

	for _, recordID := range result.Escalated {
		add(recordID, TaskCallCustomer,
			"Call the customer about "+describe(recordID)+", escalated after repeated reminders.",
			domain.DestinationAROutstanding)
	}

	for _, attempt := range result.ActionRequired {
		add(attempt.RecordID, TaskResolveFailure,
			fmt.Sprintf("Resolve %d failed %s reminders for %s and retry manually.", attempt.AttemptCount, attempt.Channel, describe(attempt.RecordID)),
			domain.DestinationReminders)
	}

	called := make(map[string]bool, len(result.Escalated)+len(result.EscalatedPrior))
	for _, recordID := range result.Escalated {
		called[recordID] = true
	}
	for _, recordID := range result.EscalatedPrior {
		called[recordID] = true
	}

	for _, action := range result.Actions {
		if action.Action != domain.ActionMarkAtRisk {
			continue
		}
		// A call covers the review
		if called[action.RecordID] {
			continue
		}
		add(action.RecordID, TaskReviewAtRisk,
			"Review "+describe(action.RecordID)+", marked at risk by rule "+action.RuleID+".",
			domain.DestinationAROutstanding)
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Kind != tasks[j].Kind {
			return priority[tasks[i].Kind] < priority[tasks[j].Kind]
		}
		return tasks[i].RecordID < tasks[j].RecordID
	})

	return tasks, nil
}
