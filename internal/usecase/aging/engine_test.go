package aging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referenceDate = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertAmount(t *testing.T, expected int64, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.NewFromInt(expected).Equal(actual), "expected %d, got %s", expected, actual)
}

func ids(records []domain.ClassifiedRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

// receivables mirrors the AR Outstanding page data set
func receivables() []domain.FinancialRecord {
	return []domain.FinancialRecord{
		{ID: "INV-2026-1201", CounterpartyName: "Acme Corp", IssueDate: day(2026, 1, 15), DueDate: day(2026, 2, 14), Amount: decimal.NewFromInt(225000), Status: domain.StatusOpen, SourceSystem: "Invoice Center"},
		{ID: "INV-2026-1184", CounterpartyName: "MegaMart", IssueDate: day(2025, 11, 20), DueDate: day(2025, 12, 20), Amount: decimal.NewFromInt(340000), Status: domain.StatusOverdue, Disputed: true, SourceSystem: "Invoice Center"},
		{ID: "INV-2026-1192", CounterpartyName: "Northwind LLC", IssueDate: day(2025, 12, 10), DueDate: day(2026, 1, 9), Amount: decimal.NewFromInt(280000), Status: domain.StatusOverdue, SourceSystem: "Invoice Center"},
		{ID: "INV-2026-1210", CounterpartyName: "Initech", IssueDate: day(2026, 1, 3), DueDate: day(2026, 2, 2), Amount: decimal.NewFromInt(95000), Status: domain.StatusOverdue, SourceSystem: "Collections"},
		{ID: "INV-2026-1168", CounterpartyName: "Globex", IssueDate: day(2025, 12, 1), DueDate: day(2025, 12, 31), Amount: decimal.NewFromInt(129999), Status: domain.StatusOverdue, SourceSystem: "Collections"},
		{ID: "INV-2026-1215", CounterpartyName: "RetailHub", IssueDate: day(2026, 1, 22), DueDate: day(2026, 2, 21), Amount: decimal.NewFromInt(150000), Status: domain.StatusOpen, SourceSystem: "Invoice Center"},
	}
}

func classifyAll(t *testing.T, records []domain.FinancialRecord) []domain.ClassifiedRecord {
	t.Helper()
	result, err := ClassifyAndFilter(records, referenceDate, domain.FilterCriteria{}, domain.DefaultBoundaries())
	require.NoError(t, err)
	return result.Bucketed
}

func TestClassifyBucket(t *testing.T) {
	boundaries := domain.DefaultBoundaries()

	tests := []struct {
		name     string
		dueDate  time.Time
		expected domain.AgingBucket
	}{
		{name: "due on reference date", dueDate: referenceDate, expected: domain.Bucket0To30},
		{name: "not yet due", dueDate: referenceDate.AddDate(0, 0, 12), expected: domain.Bucket0To30},
		{name: "30 days past due", dueDate: referenceDate.AddDate(0, 0, -30), expected: domain.Bucket0To30},
		{name: "31 days past due", dueDate: referenceDate.AddDate(0, 0, -31), expected: domain.Bucket31To60},
		{name: "40 days past due", dueDate: referenceDate.AddDate(0, 0, -40), expected: domain.Bucket31To60},
		{name: "90 days past due", dueDate: referenceDate.AddDate(0, 0, -90), expected: domain.Bucket61To90},
		{name: "91 days past due", dueDate: referenceDate.AddDate(0, 0, -91), expected: domain.Bucket90Plus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := domain.FinancialRecord{ID: "r", DueDate: tt.dueDate, Amount: decimal.NewFromInt(1), Status: domain.StatusOpen}
			bucket, err := ClassifyBucket(record, referenceDate, boundaries)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, bucket)
		})
	}
}

func TestClassifyBucket_InvalidBoundaries(t *testing.T) {
	record := domain.FinancialRecord{ID: "r", DueDate: referenceDate, Status: domain.StatusOpen}

	_, err := ClassifyBucket(record, referenceDate, domain.Boundaries{60, 30})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestClassifyBucket_IgnoresTimeOfDay(t *testing.T) {
	record := domain.FinancialRecord{ID: "r", DueDate: time.Date(2026, 1, 11, 23, 30, 0, 0, time.UTC), Status: domain.StatusOpen}
	ref := time.Date(2026, 2, 10, 1, 0, 0, 0, time.UTC)

	assert.Equal(t, 30, DaysPastDue(record, ref))
	bucket, err := ClassifyBucket(record, ref, domain.DefaultBoundaries())
	assert.NoError(t, err)
	assert.Equal(t, domain.Bucket0To30, bucket)
}

func TestClassifyAndFilter_ScenarioA(t *testing.T) {
	day0 := referenceDate
	records := []domain.FinancialRecord{
		{ID: "a", DueDate: day0, Amount: decimal.NewFromInt(100), Status: domain.StatusOpen},
		{ID: "b", DueDate: day0.AddDate(0, 0, -40), Amount: decimal.NewFromInt(50), Status: domain.StatusOverdue},
	}

	result, err := ClassifyAndFilter(records, day0, domain.FilterCriteria{}, domain.Boundaries{30, 60, 90})
	require.NoError(t, err)

	require.Len(t, result.Bucketed, 2)
	assert.Equal(t, domain.Bucket0To30, result.Bucketed[0].Bucket)
	assert.Equal(t, domain.Bucket31To60, result.Bucketed[1].Bucket)
	assert.Equal(t, domain.StatusOpen, result.Bucketed[0].DisplayStatus, "due today is not overdue")

	assertAmount(t, 150, result.Aggregate.TotalAmount)
	assertAmount(t, 50, result.Aggregate.OverdueAmount)
	assertAmount(t, 0, result.Aggregate.FlaggedAmount)
	assert.Equal(t, 2, result.Aggregate.Count)
}

func TestClassifyAndFilter_ReceivablesPage(t *testing.T) {
	result, err := ClassifyAndFilter(receivables(), referenceDate, domain.FilterCriteria{}, domain.DefaultBoundaries())
	require.NoError(t, err)

	assert.Empty(t, result.Skipped)
	assert.Equal(t, []string{
		"INV-2026-1184", "INV-2026-1192", "INV-2026-1201", "INV-2026-1215", "INV-2026-1168", "INV-2026-1210",
	}, ids(result.Filtered), "default order is amount descending")

	assertAmount(t, 1219999, result.Aggregate.TotalAmount)
	assertAmount(t, 844999, result.Aggregate.OverdueAmount)
	assertAmount(t, 340000, result.Aggregate.FlaggedAmount)
	assert.Equal(t, 6, result.Aggregate.Count)
}

func TestClassifyAndFilter_SkipsInvalidRecords(t *testing.T) {
	records := append(receivables(),
		domain.FinancialRecord{ID: "BAD-1", Amount: decimal.NewFromInt(-10), Status: domain.StatusOpen},
		domain.FinancialRecord{ID: "BAD-2", IssueDate: day(2026, 2, 1), DueDate: day(2026, 1, 1), Amount: decimal.NewFromInt(10), Status: domain.StatusOpen},
	)

	result, err := ClassifyAndFilter(records, referenceDate, domain.FilterCriteria{}, domain.DefaultBoundaries())
	require.NoError(t, err, "invalid records must not abort the batch")

	require.Len(t, result.Skipped, 2)
	assert.Equal(t, "BAD-1", result.Skipped[0].RecordID)
	assert.True(t, errors.Is(result.Skipped[0].Err, domain.ErrValidation))
	assert.Equal(t, "BAD-2", result.Skipped[1].RecordID)
	assert.Len(t, result.Bucketed, 6)
	assertAmount(t, 1219999, result.Aggregate.TotalAmount)
}

func TestClassifyAndFilter_InvalidBoundaries(t *testing.T) {
	_, err := ClassifyAndFilter(receivables(), referenceDate, domain.FilterCriteria{}, domain.Boundaries{30, 30})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestApplyFilters(t *testing.T) {
	bucketed := classifyAll(t, receivables())

	tests := []struct {
		name     string
		criteria domain.FilterCriteria
		expected []string
	}{
		{
			name:     "no constraint",
			criteria: domain.FilterCriteria{Bucket: domain.BucketAll, Counterparty: "all", Status: "all"},
			expected: []string{"INV-2026-1201", "INV-2026-1184", "INV-2026-1192", "INV-2026-1210", "INV-2026-1168", "INV-2026-1215"},
		},
		{
			name:     "bucket 31-60",
			criteria: domain.FilterCriteria{Bucket: domain.Bucket31To60},
			expected: []string{"INV-2026-1184", "INV-2026-1192", "INV-2026-1168"},
		},
		{
			name:     "counterparty exact match",
			criteria: domain.FilterCriteria{Counterparty: "Globex"},
			expected: []string{"INV-2026-1168"},
		},
		{
			name:     "counterparty is case sensitive",
			criteria: domain.FilterCriteria{Counterparty: "globex"},
			expected: []string{},
		},
		{
			name:     "overdue status",
			criteria: domain.FilterCriteria{Status: domain.StatusOverdue},
			expected: []string{"INV-2026-1184", "INV-2026-1192", "INV-2026-1210", "INV-2026-1168"},
		},
		{
			name:     "exclude flagged",
			criteria: domain.FilterCriteria{IncludeFlagged: domain.Bool(false)},
			expected: []string{"INV-2026-1201", "INV-2026-1192", "INV-2026-1210", "INV-2026-1168", "INV-2026-1215"},
		},
		{
			name:     "include flagged",
			criteria: domain.FilterCriteria{IncludeFlagged: domain.Bool(true), Bucket: domain.Bucket31To60},
			expected: []string{"INV-2026-1184", "INV-2026-1192", "INV-2026-1168"},
		},
		{
			name:     "search source system, case insensitive",
			criteria: domain.FilterCriteria{SearchText: "  COLLECT "},
			expected: []string{"INV-2026-1210", "INV-2026-1168"},
		},
		{
			name:     "search id",
			criteria: domain.FilterCriteria{SearchText: "1215"},
			expected: []string{"INV-2026-1215"},
		},
		{
			name:     "search counterparty",
			criteria: domain.FilterCriteria{SearchText: "acme"},
			expected: []string{"INV-2026-1201"},
		},
		{
			name:     "combined constraints",
			criteria: domain.FilterCriteria{Bucket: domain.Bucket31To60, Status: domain.StatusOverdue, IncludeFlagged: domain.Bool(false), SearchText: "invoice"},
			expected: []string{"INV-2026-1192"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(ApplyFilters(bucketed, tt.criteria)))
		})
	}
}

func TestApplyFilters_Idempotent(t *testing.T) {
	bucketed := classifyAll(t, receivables())
	criteria := domain.FilterCriteria{Status: domain.StatusOverdue, IncludeFlagged: domain.Bool(false)}

	once := ApplyFilters(bucketed, criteria)
	twice := ApplyFilters(once, criteria)

	assert.Equal(t, once, twice)
	assert.Equal(t, Aggregate(once), Aggregate(twice))
}

func TestApplyFilters_PredicatesCommute(t *testing.T) {
	bucketed := classifyAll(t, receivables())
	byBucket := domain.FilterCriteria{Bucket: domain.Bucket0To30}
	byStatus := domain.FilterCriteria{Status: domain.StatusOpen}

	bucketThenStatus := ApplyFilters(ApplyFilters(bucketed, byBucket), byStatus)
	statusThenBucket := ApplyFilters(ApplyFilters(bucketed, byStatus), byBucket)
	combined := ApplyFilters(bucketed, domain.FilterCriteria{Bucket: domain.Bucket0To30, Status: domain.StatusOpen})

	assert.Equal(t, ids(bucketThenStatus), ids(statusThenBucket))
	assert.Equal(t, ids(combined), ids(bucketThenStatus))
	assert.Equal(t, []string{"INV-2026-1201", "INV-2026-1215"}, ids(combined))
}

func TestApplyFilters_DoesNotMutateInput(t *testing.T) {
	bucketed := classifyAll(t, receivables())
	before := ids(bucketed)

	_ = ApplyFilters(bucketed, domain.FilterCriteria{Bucket: domain.Bucket31To60})

	assert.Equal(t, before, ids(bucketed))
}

func TestAggregate_Empty(t *testing.T) {
	result := Aggregate(nil)

	assertAmount(t, 0, result.TotalAmount)
	assertAmount(t, 0, result.OverdueAmount)
	assertAmount(t, 0, result.FlaggedAmount)
	assert.Equal(t, 0, result.Count)
}

func TestAggregate_DisputedStatusCountsAsFlagged(t *testing.T) {
	records := []domain.ClassifiedRecord{
		{FinancialRecord: domain.FinancialRecord{ID: "a", Amount: decimal.NewFromInt(40), Status: domain.StatusDisputed}, DisplayStatus: domain.StatusDisputed},
		{FinancialRecord: domain.FinancialRecord{ID: "b", Amount: decimal.NewFromInt(60), Status: domain.StatusOverdue}, DisplayStatus: domain.StatusOverdue},
	}

	result := Aggregate(records)
	assertAmount(t, 100, result.TotalAmount)
	assertAmount(t, 60, result.OverdueAmount)
	assertAmount(t, 40, result.FlaggedAmount)
}

func TestSortByAmount_TiesBrokenByID(t *testing.T) {
	records := []domain.ClassifiedRecord{
		{FinancialRecord: domain.FinancialRecord{ID: "c", Amount: decimal.NewFromInt(10)}},
		{FinancialRecord: domain.FinancialRecord{ID: "b", Amount: decimal.NewFromInt(50)}},
		{FinancialRecord: domain.FinancialRecord{ID: "a", Amount: decimal.NewFromInt(50)}},
	}

	SortByAmount(records)

	assert.Equal(t, []string{"a", "b", "c"}, ids(records))
}

func TestClassifyAndFilter_ConcurrentCallers(t *testing.T) {
	records := receivables()
	criteria := domain.FilterCriteria{Status: domain.StatusOverdue}

	var wg sync.WaitGroup
	results := make([]*Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := ClassifyAndFilter(records, referenceDate, criteria, domain.DefaultBoundaries())
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	for _, result := range results {
		assert.Equal(t, results[0].Aggregate, result.Aggregate)
	}
}
