package cadence

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
)

// HistoryEntry is one reminder snapshot joined with the record it chases
type HistoryEntry struct {
	domain.ReminderAttempt
	CounterpartyName string
	Amount           decimal.Decimal
}

// History lists the reminder history of every record matching query
// query matches record IDs and counterparty names, case-insensitively; an empty query matches everything.
// Records are ordered by ID, each record's snapshots oldest first.
// Snapshots of records missing from records are kept and matched by ID only.
func (s *Service) History(ctx context.Context, records []domain.FinancialRecord, query string) ([]HistoryEntry, error) {
	streams, err := s.ReminderRepo.ListLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder state: %w", err)
	}

	byID := make(map[string]domain.FinancialRecord, len(records))
	for _, record := range records {
		byID[record.ID] = record
	}

	query = strings.ToLower(strings.TrimSpace(query))
	matches := func(recordID string) bool {
		if query == "" || strings.Contains(strings.ToLower(recordID), query) {
			return true
		}
		record, ok := byID[recordID]
		return ok && strings.Contains(strings.ToLower(record.CounterpartyName), query)
	}

	seen := make(map[string]bool)
	recordIDs := make([]string, 0)
	for _, stream := range streams {
		if seen[stream.RecordID] || !matches(stream.RecordID) {
			continue
		}
		seen[stream.RecordID] = true
		recordIDs = append(recordIDs, stream.RecordID)
	}
	sort.Strings(recordIDs)

	entries := make([]HistoryEntry, 0)
	for _, recordID := range recordIDs {
		history, err := s.ReminderRepo.History(ctx, recordID)
		if err != nil {
			return nil, fmt.Errorf("failed to load reminder history for %s: %w", recordID, err)
		}

		record := byID[recordID]
		for _, attempt := range history {
			entries = append(entries, HistoryEntry{
				ReminderAttempt:  attempt,
				CounterpartyName: record.CounterpartyName,
				Amount:           record.Amount,
			})
		}
	}

	return entries, nil
}
