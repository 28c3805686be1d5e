package cashflow

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referenceDate = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// receipts mirrors the Cash In page data set
func receipts() []domain.FinancialRecord {
	receipt := func(id string, date time.Time, customer, method string, status domain.Status, amount, source string) domain.FinancialRecord {
		return domain.FinancialRecord{
			ID:               id,
			CounterpartyName: customer,
			IssueDate:        date,
			DueDate:          date,
			Amount:           decimal.RequireFromString(amount),
			Status:           status,
			SourceSystem:     source,
			Ledger:           domain.LedgerCashIn,
			Method:           method,
		}
	}
	return []domain.FinancialRecord{
		receipt("RCPT-10091", day(2026, 2, 3), "Acme Corp", "ACH", domain.StatusPosted, "24850.00", "Receipts"),
		receipt("RCPT-10092", day(2026, 2, 4), "Northwind LLC", "Wire", domain.StatusPosted, "80500.00", "Bank Feed"),
		receipt("RCPT-10093", day(2026, 2, 6), "Globex", "Card", domain.StatusPending, "1299.99", "Payments"),
		receipt("RCPT-10094", day(2026, 1, 21), "Acme Corp", "ACH", domain.StatusPosted, "15000.00", "Receipts"),
		receipt("RCPT-10095", day(2026, 1, 28), "Initech", "Check", domain.StatusPosted, "4200.00", "Receipts"),
	}
}

func ids(records []domain.FinancialRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestPeriodStart(t *testing.T) {
	tests := []struct {
		period   Period
		ref      time.Time
		expected time.Time
	}{
		{PeriodMonthToDate, referenceDate, day(2026, 2, 1)},
		{PeriodQuarterToDate, referenceDate, day(2026, 1, 1)},
		{PeriodQuarterToDate, day(2026, 6, 30), day(2026, 4, 1)},
		{PeriodQuarterToDate, day(2026, 12, 1), day(2026, 10, 1)},
		{PeriodAll, referenceDate, time.Time{}},
	}

	for _, tt := range tests {
		start, err := tt.period.Start(tt.ref)
		require.NoError(t, err)
		assert.True(t, tt.expected.Equal(start), "%s from %s: got %s", tt.period, tt.ref, start)
	}

	_, err := Period("ytd").Start(referenceDate)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestFilter_MonthToDatePostedOnly(t *testing.T) {
	result, err := Filter(receipts(), referenceDate, Criteria{Period: PeriodMonthToDate, PostedOnly: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"RCPT-10092", "RCPT-10091"}, ids(result.Rows))
	assert.True(t, result.Summary.PostedAmount.Equal(decimal.RequireFromString("105350")))
	assert.True(t, result.Summary.PendingAmount.IsZero())
	assert.Equal(t, 2, result.Summary.Count)
	assert.Equal(t, []string{"ACH", "Card", "Check", "Wire"}, result.Methods)
	assert.Equal(t, []string{"Acme Corp", "Globex", "Initech", "Northwind LLC"}, result.Counterparties)
}

func TestFilter_QuarterToDateWithPending(t *testing.T) {
	result, err := Filter(receipts(), referenceDate, Criteria{Period: PeriodQuarterToDate})

	require.NoError(t, err)
	assert.Equal(t, []string{"RCPT-10093", "RCPT-10092", "RCPT-10091", "RCPT-10095", "RCPT-10094"}, ids(result.Rows))
	assert.True(t, result.Summary.PendingAmount.Equal(decimal.RequireFromString("1299.99")))
	assert.Equal(t, 4, result.Summary.PostedCount)
	assert.Equal(t, 5, result.Summary.Count)
}

func TestFilter_CounterpartyMethodAndSearch(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		expected []string
	}{
		{"counterparty", Criteria{Period: PeriodQuarterToDate, Counterparty: "Acme Corp"}, []string{"RCPT-10091", "RCPT-10094"}},
		{"method", Criteria{Period: PeriodQuarterToDate, Method: "Wire"}, []string{"RCPT-10092"}},
		{"all method", Criteria{Period: PeriodMonthToDate, Method: "all"}, []string{"RCPT-10093", "RCPT-10092", "RCPT-10091"}},
		{"search source", Criteria{Period: PeriodAll, SearchText: "  bank feed "}, []string{"RCPT-10092"}},
		{"search id", Criteria{SearchText: "10095"}, []string{"RCPT-10095"}},
		{"no match", Criteria{SearchText: "umbrella"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Filter(receipts(), referenceDate, tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(result.Rows))
		})
	}
}

func TestFilter_UnknownPeriod(t *testing.T) {
	result, err := Filter(receipts(), referenceDate, Criteria{Period: "ytd"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)

	assert.True(t, summary.PostedAmount.IsZero())
	assert.True(t, summary.PendingAmount.IsZero())
	assert.Zero(t, summary.Count)
}
