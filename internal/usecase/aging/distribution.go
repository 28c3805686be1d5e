package aging

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
)

// BucketSummary is one slice of the aging distribution
type BucketSummary struct {
	Bucket  domain.AgingBucket
	Amount  decimal.Decimal
	Count   int
	Percent decimal.Decimal // Share of the total amount, 0-100, rounded to one decimal
}

// Distribution groups classified records by bucket, in ascending bucket order.
// Every bucket of the boundary set is present, even when empty.
func Distribution(records []domain.ClassifiedRecord, boundaries domain.Boundaries) []BucketSummary {
	labels := boundaries.Labels()
	summaries := make([]BucketSummary, len(labels))
	index := make(map[domain.AgingBucket]int, len(labels))
	for i, label := range labels {
		summaries[i] = BucketSummary{Bucket: label, Amount: decimal.Zero, Percent: decimal.Zero}
		index[label] = i
	}

	total := decimal.Zero
	for _, record := range records {
		i, ok := index[record.Bucket]
		if !ok {
			continue
		}
		summaries[i].Amount = summaries[i].Amount.Add(record.Amount)
		summaries[i].Count++
		total = total.Add(record.Amount)
	}

	if total.IsPositive() {
		hundred := decimal.NewFromInt(100)
		for i := range summaries {
			summaries[i].Percent = summaries[i].Amount.Mul(hundred).Div(total).Round(1)
		}
	}

	return summaries
}

// Counterparties returns the distinct counterparty names of a record set, sorted
func Counterparties(records []domain.FinancialRecord) []string {
	seen := make(map[string]bool)
	names := make([]string, 0)
	for _, record := range records {
		if record.CounterpartyName == "" || seen[record.CounterpartyName] {
			continue
		}
		seen[record.CounterpartyName] = true
		names = append(names, record.CounterpartyName)
	}
	sort.Strings(names)
	return names
}
