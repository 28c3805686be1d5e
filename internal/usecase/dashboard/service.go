package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
	"github.com/simaogato/finops-backend/internal/usecase/aging"
	"github.com/simaogato/finops-backend/internal/usecase/cashflow"
	"github.com/simaogato/finops-backend/internal/usecase/margin"
)

// ActionRequiredLister lists the reminder streams that need manual handling
type ActionRequiredLister interface {
	ActionRequired(ctx context.Context) ([]domain.ReminderAttempt, error)
}

// LedgerSummary is the aging picture of one outstanding ledger
type LedgerSummary struct {
	Aggregate    domain.AggregateResult
	Distribution []aging.BucketSummary
	Skipped      []domain.SkippedRecord
}

// Signal is an alert the overview raises, pointing at the page that resolves it
type Signal struct {
	ID          string
	Title       string
	Detail      string
	Severity    int // 1 (info) to 5 (critical)
	Destination domain.Destination
}

// Overview is the dashboard state at a reference date
type Overview struct {
	ReferenceDate  time.Time
	Receivables    LedgerSummary
	Payables       LedgerSummary
	CashIn         cashflow.Summary // Month to date
	CashOut        cashflow.Summary // Month to date
	ActionRequired int
	ProfitLeak     decimal.Decimal // Expected profit lost to overdue receivables
	Signals        []Signal
}

// DashboardService handles dashboard-related operations
type DashboardService struct {
	RecordRepo     domain.RecordRepository
	Reminders      ActionRequiredLister // Optional
	Boundaries     domain.Boundaries
	Leak           margin.LeakModel
	ExpectedMargin decimal.Decimal // Share of a receivable expected as profit
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(
	recordRepo domain.RecordRepository,
	reminders ActionRequiredLister,
	boundaries domain.Boundaries,
) *DashboardService {
	return &DashboardService{
		RecordRepo:     recordRepo,
		Reminders:      reminders,
		Boundaries:     boundaries,
		Leak:           margin.DefaultLeak().Leak,
		ExpectedMargin: decimal.RequireFromString("0.25"),
	}
}

// GetOverview builds the dashboard at referenceDate
// Logic:
//   - AR and AP: aging aggregate and distribution over outstanding records (paid and void excluded)
//   - Cash in and cash out: month to date posted and pending totals
//   - Action required: reminder streams that exhausted their retries
//   - Profit leak: leak model applied to the expected profit of every overdue receivable
//   - Signals derived from the above, most severe first
func (s *DashboardService) GetOverview(ctx context.Context, referenceDate time.Time) (*Overview, error) {
	overview := &Overview{
		ReferenceDate: domain.Day(referenceDate),
		ProfitLeak:    decimal.Zero,
	}

	// 1. Outstanding ledgers
	receivables, err := s.ledger(ctx, domain.LedgerReceivable, referenceDate)
	if err != nil {
		return nil, err
	}
	overview.Receivables = receivables.summary

	payables, err := s.ledger(ctx, domain.LedgerPayable, referenceDate)
	if err != nil {
		return nil, err
	}
	overview.Payables = payables.summary

	// 2. Cash movements
	if overview.CashIn, err = s.cash(ctx, domain.LedgerCashIn, referenceDate); err != nil {
		return nil, err
	}
	if overview.CashOut, err = s.cash(ctx, domain.LedgerCashOut, referenceDate); err != nil {
		return nil, err
	}

	// 3. Reminder streams needing a person
	if s.Reminders != nil {
		required, err := s.Reminders.ActionRequired(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list action required reminders: %w", err)
		}
		overview.ActionRequired = len(required)
	}

	// 4. Profit leak
	if s.Leak != nil {
		for _, record := range receivables.records {
			if record.DisplayStatus != domain.StatusOverdue {
				continue
			}
			expected := record.Amount.Mul(s.ExpectedMargin)
			overview.ProfitLeak = overview.ProfitLeak.Add(s.Leak(expected, record.DaysPastDue))
		}
	}

	overview.Signals = s.signals(overview)

	return overview, nil
}

type ledgerResult struct {
	summary LedgerSummary
	records []domain.ClassifiedRecord
}

func (s *DashboardService) ledger(ctx context.Context, ledger domain.Ledger, referenceDate time.Time) (*ledgerResult, error) {
	records, err := s.RecordRepo.List(ctx, ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", ledger, err)
	}

	outstanding := make([]domain.FinancialRecord, 0, len(records))
	for _, record := range records {
		if record.Status == domain.StatusPaid || record.Status == domain.StatusVoid {
			continue
		}
		outstanding = append(outstanding, record)
	}

	result, err := aging.ClassifyAndFilter(outstanding, referenceDate, domain.FilterCriteria{}, s.Boundaries)
	if err != nil {
		return nil, err
	}

	return &ledgerResult{
		summary: LedgerSummary{
			Aggregate:    result.Aggregate,
			Distribution: aging.Distribution(result.Bucketed, s.Boundaries),
			Skipped:      result.Skipped,
		},
		records: result.Bucketed,
	}, nil
}

func (s *DashboardService) cash(ctx context.Context, ledger domain.Ledger, referenceDate time.Time) (cashflow.Summary, error) {
	records, err := s.RecordRepo.List(ctx, ledger)
	if err != nil {
		return cashflow.Summary{}, fmt.Errorf("failed to list %s records: %w", ledger, err)
	}

	result, err := cashflow.Filter(records, referenceDate, cashflow.Criteria{Period: cashflow.PeriodMonthToDate})
	if err != nil {
		return cashflow.Summary{}, err
	}
	return result.Summary, nil
}

func (s *DashboardService) signals(overview *Overview) []Signal {
	signals := make([]Signal, 0)

	ar := overview.Receivables
	if len(ar.Distribution) > 1 {
		aged := decimal.Zero
		for _, bucket := range ar.Distribution[1:] {
			aged = aged.Add(bucket.Amount)
		}
		if aged.IsPositive() {
			signals = append(signals, Signal{
				ID:          "ar-aging",
				Title:       "AR aging worsening",
				Detail:      fmt.Sprintf("%s outstanding beyond the %s bucket.", aged.StringFixed(2), ar.Distribution[0].Bucket),
				Severity:    4,
				Destination: domain.DestinationAROutstanding,
			})
		}
	}

	if ar.Aggregate.FlaggedAmount.IsPositive() {
		signals = append(signals, Signal{
			ID:          "ar-disputed",
			Title:       "Disputed receivables",
			Detail:      fmt.Sprintf("%s of receivables is disputed or on hold.", ar.Aggregate.FlaggedAmount.StringFixed(2)),
			Severity:    3,
			Destination: domain.DestinationAROutstanding,
		})
	}

	if overview.Payables.Aggregate.OverdueAmount.IsPositive() {
		signals = append(signals, Signal{
			ID:          "ap-overdue",
			Title:       "Overdue bills",
			Detail:      fmt.Sprintf("%s of payables is past due.", overview.Payables.Aggregate.OverdueAmount.StringFixed(2)),
			Severity:    3,
			Destination: domain.DestinationAPOutstanding,
		})
	}

	if overview.ActionRequired > 0 {
		signals = append(signals, Signal{
			ID:          "reminder-failures",
			Title:       "Automation outcomes: reminder failures",
			Detail:      fmt.Sprintf("%d reminder streams exhausted their retries.", overview.ActionRequired),
			Severity:    4,
			Destination: domain.DestinationReminders,
		})
	}

	if overview.ProfitLeak.IsPositive() {
		signals = append(signals, Signal{
			ID:          "profit-leak",
			Title:       "Profit leaking from late payments",
			Detail:      fmt.Sprintf("%s of expected profit lost to overdue receivables.", overview.ProfitLeak.StringFixed(2)),
			Severity:    3,
			Destination: domain.DestinationMargin,
		})
	}

	skipped := len(ar.Skipped) + len(overview.Payables.Skipped)
	if skipped > 0 {
		signals = append(signals, Signal{
			ID:          "invalid-records",
			Title:       "Records failed validation",
			Detail:      fmt.Sprintf("%d records were left out of the totals.", skipped),
			Severity:    2,
			Destination: domain.DestinationAlerts,
		})
	}

	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].Severity != signals[j].Severity {
			return signals[i].Severity > signals[j].Severity
		}
		return signals[i].ID < signals[j].ID
	})

	return signals
}
