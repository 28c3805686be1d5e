package cashflow

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
)

// Period selects the reporting window ending at the reference date
type Period string

const (
	PeriodMonthToDate   Period = "mtd"
	PeriodQuarterToDate Period = "qtd"
	PeriodAll           Period = "all"
)

// Start returns the first day of the period containing ref
func (p Period) Start(ref time.Time) (time.Time, error) {
	ref = domain.Day(ref)
	switch p {
	case PeriodMonthToDate:
		return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case PeriodQuarterToDate:
		quarterStart := time.Month((int(ref.Month())-1)/3*3 + 1)
		return time.Date(ref.Year(), quarterStart, 1, 0, 0, 0, 0, time.UTC), nil
	case PeriodAll, "":
		return time.Time{}, nil
	}
	return time.Time{}, &domain.ConfigurationError{Subject: "period", Reason: "unknown period " + string(p)}
}

// Criteria narrows a cash movement list. Empty fields apply no constraint.
type Criteria struct {
	Period       Period
	PostedOnly   bool
	Counterparty string // Exact match, "all" for none
	Method       string // Exact match, "all" for none
	SearchText   string
}

// Summary totals a filtered cash movement list
type Summary struct {
	PostedAmount  decimal.Decimal
	PendingAmount decimal.Decimal
	Count         int
	PostedCount   int
}

// Result of one cash page evaluation
type Result struct {
	Rows           []domain.FinancialRecord
	Summary        Summary
	Counterparties []string // Distinct values across the unfiltered input
	Methods        []string // Distinct values across the unfiltered input
}

func unconstrained(v string) bool {
	return v == "" || strings.EqualFold(v, "all")
}

// Filter selects the cash movements matching criteria, newest first.
// Movements are dated by DueDate, the posting date for bank feed records.
func Filter(records []domain.FinancialRecord, ref time.Time, criteria Criteria) (*Result, error) {
	start, err := criteria.Period.Start(ref)
	if err != nil {
		return nil, err
	}
	end := domain.Day(ref)
	query := strings.ToLower(strings.TrimSpace(criteria.SearchText))

	rows := make([]domain.FinancialRecord, 0, len(records))
	for _, record := range records {
		date := domain.Day(record.DueDate)
		if !start.IsZero() && (date.Before(start) || date.After(end)) {
			continue
		}
		if criteria.PostedOnly && record.Status != domain.StatusPosted {
			continue
		}
		if !unconstrained(criteria.Counterparty) && record.CounterpartyName != criteria.Counterparty {
			continue
		}
		if !unconstrained(criteria.Method) && record.Method != criteria.Method {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(record.ID), query) &&
			!strings.Contains(strings.ToLower(record.CounterpartyName), query) &&
			!strings.Contains(strings.ToLower(record.SourceSystem), query) {
			continue
		}
		rows = append(rows, record)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].DueDate.Equal(rows[j].DueDate) {
			return rows[i].DueDate.After(rows[j].DueDate)
		}
		return rows[i].ID < rows[j].ID
	})

	return &Result{
		Rows:           rows,
		Summary:        Summarize(rows),
		Counterparties: distinct(records, func(r domain.FinancialRecord) string { return r.CounterpartyName }),
		Methods:        distinct(records, func(r domain.FinancialRecord) string { return r.Method }),
	}, nil
}

// Summarize splits the total into posted and not yet posted amounts
func Summarize(records []domain.FinancialRecord) Summary {
	summary := Summary{PostedAmount: decimal.Zero, PendingAmount: decimal.Zero}
	for _, record := range records {
		summary.Count++
		if record.Status == domain.StatusPosted {
			summary.PostedCount++
			summary.PostedAmount = summary.PostedAmount.Add(record.Amount)
			continue
		}
		summary.PendingAmount = summary.PendingAmount.Add(record.Amount)
	}
	return summary
}

func distinct(records []domain.FinancialRecord, key func(domain.FinancialRecord) string) []string {
	seen := make(map[string]bool)
	values := make([]string, 0)
	for _, record := range records {
		v := key(record)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
