package aging

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
)

// Result is the output of ClassifyAndFilter
type Result struct {
	Bucketed  []domain.ClassifiedRecord // Every valid record, annotated
	Filtered  []domain.ClassifiedRecord // Records matching the criteria, sorted by amount
	Aggregate domain.AggregateResult    // Totals over Filtered
	Skipped   []domain.SkippedRecord    // Records rejected by validation
}

// ClassifyBucket computes the aging bucket of a record at referenceDate
// Logic:
//   - daysPastDue = floor((referenceDate - dueDate) / 1 day), clamped to >= 0
//   - The first boundary with daysPastDue <= boundary wins, else the overflow bucket
//
// Returns a *domain.ConfigurationError if boundaries are not strictly increasing.
func ClassifyBucket(record domain.FinancialRecord, referenceDate time.Time, boundaries domain.Boundaries) (domain.AgingBucket, error) {
	if err := boundaries.Validate(); err != nil {
		return "", err
	}
	return boundaries.Bucket(DaysPastDue(record, referenceDate)), nil
}

// DaysPastDue returns how many whole days the record is past due at referenceDate, never negative
func DaysPastDue(record domain.FinancialRecord, referenceDate time.Time) int {
	if record.DueDate.IsZero() {
		return 0
	}
	days := domain.DaysBetween(record.DueDate, referenceDate)
	if days < 0 {
		return 0
	}
	return days
}

// Classify annotates a record with its aging data. Assumes boundaries are valid.
func Classify(record domain.FinancialRecord, referenceDate time.Time, boundaries domain.Boundaries) domain.ClassifiedRecord {
	days := DaysPastDue(record, referenceDate)
	return domain.ClassifiedRecord{
		FinancialRecord: record,
		DaysPastDue:     days,
		Bucket:          boundaries.Bucket(days),
		DisplayStatus:   record.DisplayStatus(referenceDate),
	}
}

// ApplyFilters returns the records matching every constrained option of criteria.
// The predicates are combined with unordered AND semantics: they commute, so the
// result does not depend on evaluation order. The input slice is not modified.
func ApplyFilters(records []domain.ClassifiedRecord, criteria domain.FilterCriteria) []domain.ClassifiedRecord {
	query := strings.ToLower(strings.TrimSpace(criteria.SearchText))

	filtered := make([]domain.ClassifiedRecord, 0, len(records))
	for _, record := range records {
		if criteria.BucketConstrained() && record.Bucket != criteria.Bucket {
			continue
		}
		if criteria.CounterpartyConstrained() && record.CounterpartyName != criteria.Counterparty {
			continue
		}
		if criteria.StatusConstrained() && record.DisplayStatus != criteria.Status {
			continue
		}
		if criteria.IncludeFlagged != nil && !*criteria.IncludeFlagged && record.Flagged() {
			continue
		}
		if query != "" && !matchesSearch(record.FinancialRecord, query) {
			continue
		}
		filtered = append(filtered, record)
	}
	return filtered
}

// matchesSearch reports whether the lowercased query occurs in the id, counterparty or source
func matchesSearch(record domain.FinancialRecord, query string) bool {
	return strings.Contains(strings.ToLower(record.ID), query) ||
		strings.Contains(strings.ToLower(record.CounterpartyName), query) ||
		strings.Contains(strings.ToLower(record.SourceSystem), query)
}

// Aggregate sums a record set
// Overdue uses the derived display status; flagged covers disputed and on-hold records.
// An empty set yields a zero aggregate.
func Aggregate(records []domain.ClassifiedRecord) domain.AggregateResult {
	result := domain.AggregateResult{
		TotalAmount:   decimal.Zero,
		OverdueAmount: decimal.Zero,
		FlaggedAmount: decimal.Zero,
	}

	for _, record := range records {
		result.TotalAmount = result.TotalAmount.Add(record.Amount)
		if record.DisplayStatus == domain.StatusOverdue {
			result.OverdueAmount = result.OverdueAmount.Add(record.Amount)
		}
		if record.Flagged() {
			result.FlaggedAmount = result.FlaggedAmount.Add(record.Amount)
		}
	}
	result.Count = len(records)

	return result
}

// SortByAmount orders records by amount descending, ties broken by id ascending
func SortByAmount(records []domain.ClassifiedRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if cmp := records[i].Amount.Cmp(records[j].Amount); cmp != 0 {
			return cmp > 0
		}
		return records[i].ID < records[j].ID
	})
}

// ClassifyAndFilter runs the whole aging pipeline over a record set
// Logic:
//  1. Validate boundaries (fatal)
//  2. Validate every record; invalid ones are skipped and reported, not fatal
//  3. Classify the remaining records
//  4. Filter, sort by amount and aggregate
func ClassifyAndFilter(
	records []domain.FinancialRecord,
	referenceDate time.Time,
	criteria domain.FilterCriteria,
	boundaries domain.Boundaries,
) (*Result, error) {
	if err := boundaries.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		Bucketed: make([]domain.ClassifiedRecord, 0, len(records)),
		Skipped:  make([]domain.SkippedRecord, 0),
	}

	for _, record := range records {
		if err := record.Validate(); err != nil {
			result.Skipped = append(result.Skipped, domain.SkippedRecord{RecordID: record.ID, Err: err})
			continue
		}
		result.Bucketed = append(result.Bucketed, Classify(record, referenceDate, boundaries))
	}

	result.Filtered = ApplyFilters(result.Bucketed, criteria)
	SortByAmount(result.Filtered)
	result.Aggregate = Aggregate(result.Filtered)

	return result, nil
}
