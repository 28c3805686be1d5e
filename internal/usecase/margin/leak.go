package margin

import "github.com/shopspring/decimal"

// LeakModel estimates the expected profit lost to a payment that is daysLate days late
type LeakModel func(expectedProfit decimal.Decimal, daysLate int) decimal.Decimal

// DailyRateLeak loses Rate of the expected profit per late day, up to Cap of it.
// The default rate and cap are a product heuristic, not a derived figure.
type DailyRateLeak struct {
	Rate decimal.Decimal // Fraction per day
	Cap  decimal.Decimal // Fraction of expected profit
}

// DefaultLeak returns the 1% per day model capped at the full expected profit
func DefaultLeak() DailyRateLeak {
	return DailyRateLeak{
		Rate: decimal.RequireFromString("0.01"),
		Cap:  decimal.NewFromInt(1),
	}
}

// Leak implements LeakModel
func (m DailyRateLeak) Leak(expectedProfit decimal.Decimal, daysLate int) decimal.Decimal {
	if daysLate <= 0 || !expectedProfit.IsPositive() {
		return decimal.Zero
	}

	leak := expectedProfit.Mul(m.Rate).Mul(decimal.NewFromInt(int64(daysLate)))
	ceiling := expectedProfit.Mul(m.Cap)
	if leak.GreaterThan(ceiling) {
		leak = ceiling
	}
	return leak.Round(2)
}
