package margin

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Row is one customer's contribution inputs for the period
type Row struct {
	ID       string
	Customer string
	Segment  string // enterprise, midmarket, smb
	Revenue  decimal.Decimal
	COGS     decimal.Decimal
	Opex     decimal.Decimal
	Pending  bool // Revenue not yet recognised
}

// Contribution is a row with its derived profit and margin
type Contribution struct {
	Row
	Profit    decimal.Decimal
	MarginPct decimal.Decimal // Rounded to one decimal place
}

// Totals aggregate the selected contributions
type Totals struct {
	Revenue   decimal.Decimal
	COGS      decimal.Decimal
	Opex      decimal.Decimal
	Profit    decimal.Decimal
	MarginPct decimal.Decimal
}

// Criteria narrows the contribution table
type Criteria struct {
	Segment        string // "all" or empty for every segment
	IncludePending bool
	SearchText     string // Matches customer or id
}

// marginPct returns profit as a percentage of revenue, 0 when there is no revenue
func marginPct(profit, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(hundred).Round(1)
}

// Contribute derives profit and margin for a row
func Contribute(row Row) Contribution {
	profit := row.Revenue.Sub(row.COGS).Sub(row.Opex)
	return Contribution{Row: row, Profit: profit, MarginPct: marginPct(profit, row.Revenue)}
}

// Contributions selects the rows matching criteria, highest margin first, and totals them
func Contributions(rows []Row, criteria Criteria) ([]Contribution, Totals) {
	query := strings.ToLower(strings.TrimSpace(criteria.SearchText))
	allSegments := criteria.Segment == "" || strings.EqualFold(criteria.Segment, "all")

	selected := make([]Contribution, 0, len(rows))
	for _, row := range rows {
		if row.Pending && !criteria.IncludePending {
			continue
		}
		if !allSegments && row.Segment != criteria.Segment {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(row.Customer), query) &&
			!strings.Contains(strings.ToLower(row.ID), query) {
			continue
		}
		selected = append(selected, Contribute(row))
	}

	sort.SliceStable(selected, func(i, j int) bool {
		if !selected[i].MarginPct.Equal(selected[j].MarginPct) {
			return selected[i].MarginPct.GreaterThan(selected[j].MarginPct)
		}
		return selected[i].ID < selected[j].ID
	})

	totals := Totals{Revenue: decimal.Zero, COGS: decimal.Zero, Opex: decimal.Zero}
	for _, c := range selected {
		totals.Revenue = totals.Revenue.Add(c.Revenue)
		totals.COGS = totals.COGS.Add(c.COGS)
		totals.Opex = totals.Opex.Add(c.Opex)
	}
	totals.Profit = totals.Revenue.Sub(totals.COGS).Sub(totals.Opex)
	totals.MarginPct = marginPct(totals.Profit, totals.Revenue)

	return selected, totals
}

// BelowThreshold returns the contributions whose margin is under thresholdPct
func BelowThreshold(contributions []Contribution, thresholdPct decimal.Decimal) []Contribution {
	below := make([]Contribution, 0)
	for _, c := range contributions {
		if c.MarginPct.LessThan(thresholdPct) {
			below = append(below, c)
		}
	}
	return below
}
