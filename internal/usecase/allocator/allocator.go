package allocator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
)

var (
	ErrNonPositivePayment = fmt.Errorf("%w: payment amount must be positive", domain.ErrValidation)
	ErrNoRecordsSelected  = fmt.Errorf("%w: at least one record must be selected", domain.ErrValidation)
)

// Allocation is the part of a payment applied to one record
type Allocation struct {
	RecordID string
	Amount   decimal.Decimal
	Balance  decimal.Decimal // Open balance left after the allocation
}

// Payment is the outcome of applying a payment
type Payment struct {
	Total       decimal.Decimal
	Applied     decimal.Decimal
	Unapplied   decimal.Decimal // Left on account
	Allocations []Allocation
}

// CalculateAllocation applies a payment across the selected records
// Logic:
//  1. Sort records by due date (Oldest = First), then by ID
//  2. Skip paid and void records and records without an open balance
//  3. Apply min(balance, remaining) to each record until the payment runs out
//  4. Whatever is left stays unapplied
//
// Safety: Ensures applied + unapplied equals the payment exactly (no penny lost)
func CalculateAllocation(total decimal.Decimal, records []domain.FinancialRecord) (*Payment, error) {
	if !total.IsPositive() {
		return nil, ErrNonPositivePayment
	}

	if len(records) == 0 {
		return nil, ErrNoRecordsSelected
	}

	// Create a copy of records to avoid mutating the original slice
	sorted := make([]domain.FinancialRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].DueDate.Equal(sorted[j].DueDate) {
			return sorted[i].DueDate.Before(sorted[j].DueDate)
		}
		return sorted[i].ID < sorted[j].ID
	})

	payment := &Payment{
		Total:       total,
		Applied:     decimal.Zero,
		Allocations: make([]Allocation, 0, len(sorted)),
	}
	remaining := total

	for _, record := range sorted {
		if !remaining.IsPositive() {
			break
		}
		if record.Status == domain.StatusPaid || record.Status == domain.StatusVoid || !record.Amount.IsPositive() {
			continue
		}

		applied := decimal.Min(record.Amount, remaining)
		remaining = remaining.Sub(applied)
		payment.Applied = payment.Applied.Add(applied)

		payment.Allocations = append(payment.Allocations, Allocation{
			RecordID: record.ID,
			Amount:   applied,
			Balance:  record.Amount.Sub(applied),
		})
	}

	payment.Unapplied = remaining

	// Safety check: Ensure nothing was created or lost
	if !payment.Applied.Add(payment.Unapplied).Equal(total) {
		return nil, errors.New("applied and unapplied amounts do not equal the payment")
	}

	return payment, nil
}

// Service applies customer payments to open receivables
type Service struct {
	RecordRepo domain.RecordRepository
}

// NewService creates a new Service instance
func NewService(recordRepo domain.RecordRepository) *Service {
	return &Service{RecordRepo: recordRepo}
}

// ApplyPayment allocates a payment across the selected receivables and stores their new balances
// A record whose balance reaches zero is marked paid.
// Returns an error wrapping ErrNotFound if a selected record is not an existing receivable.
func (s *Service) ApplyPayment(ctx context.Context, total decimal.Decimal, recordIDs []string) (*Payment, error) {
	if len(recordIDs) == 0 {
		return nil, ErrNoRecordsSelected
	}

	receivables, err := s.RecordRepo.List(ctx, domain.LedgerReceivable)
	if err != nil {
		return nil, fmt.Errorf("failed to list receivables: %w", err)
	}

	byID := make(map[string]domain.FinancialRecord, len(receivables))
	for _, record := range receivables {
		byID[record.ID] = record
	}

	selected := make([]domain.FinancialRecord, 0, len(recordIDs))
	seen := make(map[string]bool, len(recordIDs))
	for _, id := range recordIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		record, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("receivable %s: %w", id, domain.ErrNotFound)
		}
		selected = append(selected, record)
	}

	payment, err := CalculateAllocation(total, selected)
	if err != nil {
		return nil, err
	}

	for _, allocation := range payment.Allocations {
		record := byID[allocation.RecordID]
		record.Amount = allocation.Balance
		if record.Amount.IsZero() {
			record.Status = domain.StatusPaid
		}
		if err := s.RecordRepo.Save(ctx, &record); err != nil {
			return nil, fmt.Errorf("failed to save receivable %s: %w", record.ID, err)
		}
	}

	return payment, nil
}
