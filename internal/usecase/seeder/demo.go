package seeder

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type demo struct {
	id, counterparty string
	issue, due       time.Time
	amount           string
	status           domain.Status
	disputed         bool
	source, method   string
}

func (d demo) record(ledger domain.Ledger) domain.FinancialRecord {
	return domain.FinancialRecord{
		ID:               d.id,
		CounterpartyName: d.counterparty,
		IssueDate:        d.issue,
		DueDate:          d.due,
		Amount:           decimal.RequireFromString(d.amount),
		Status:           d.status,
		SourceSystem:     d.source,
		Ledger:           ledger,
		Disputed:         d.disputed,
		Method:           d.method,
	}
}

// DemoRecords returns a small book of receivables, payables and cash movements
// dated around February 2026
func DemoRecords() []domain.FinancialRecord {
	receivables := []demo{
		{id: "INV-2026-1201", counterparty: "Acme Corp", issue: date(2026, 1, 15), due: date(2026, 2, 14), amount: "225000", status: domain.StatusOpen, source: "Invoice Center"},
		{id: "INV-2026-1184", counterparty: "MegaMart", issue: date(2025, 11, 20), due: date(2025, 12, 20), amount: "340000", status: domain.StatusOverdue, disputed: true, source: "Invoice Center"},
		{id: "INV-2026-1192", counterparty: "Northwind LLC", issue: date(2025, 12, 10), due: date(2026, 1, 9), amount: "280000", status: domain.StatusOverdue, source: "Invoice Center"},
		{id: "INV-2026-1210", counterparty: "Initech", issue: date(2026, 1, 3), due: date(2026, 2, 2), amount: "95000", status: domain.StatusOverdue, source: "Collections"},
		{id: "INV-2026-1168", counterparty: "Globex", issue: date(2025, 12, 1), due: date(2025, 12, 31), amount: "129999", status: domain.StatusOverdue, source: "Collections"},
		{id: "INV-2026-1215", counterparty: "RetailHub", issue: date(2026, 1, 22), due: date(2026, 2, 21), amount: "150000", status: domain.StatusOpen, source: "Invoice Center"},
	}
	payables := []demo{
		{id: "BILL-2026-4401", counterparty: "AWS", issue: date(2026, 1, 18), due: date(2026, 2, 17), amount: "18500", status: domain.StatusOpen, source: "Bills"},
		{id: "BILL-2026-4378", counterparty: "Google Cloud", issue: date(2025, 12, 12), due: date(2026, 1, 11), amount: "12400", status: domain.StatusOverdue, source: "Bills"},
		{id: "BILL-2026-4389", counterparty: "Stripe", issue: date(2025, 11, 28), due: date(2025, 12, 28), amount: "9200", status: domain.StatusOverdue, disputed: true, source: "Card Feed"},
		{id: "BILL-2026-4410", counterparty: "Notion", issue: date(2026, 2, 2), due: date(2026, 3, 3), amount: "480", status: domain.StatusOpen, source: "Subscriptions"},
		{id: "BILL-2026-4330", counterparty: "Snowflake", issue: date(2025, 10, 5), due: date(2025, 11, 4), amount: "30000", status: domain.StatusOverdue, source: "Bills"},
		{id: "BILL-2026-4399", counterparty: "Figma", issue: date(2026, 1, 5), due: date(2026, 2, 4), amount: "1200", status: domain.StatusOverdue, source: "Subscriptions"},
	}
	cashIn := []demo{
		{id: "RCPT-10091", counterparty: "Acme Corp", issue: date(2026, 2, 3), due: date(2026, 2, 3), amount: "24850.00", status: domain.StatusPosted, source: "Receipts", method: "ACH"},
		{id: "RCPT-10092", counterparty: "Northwind LLC", issue: date(2026, 2, 4), due: date(2026, 2, 4), amount: "80500.00", status: domain.StatusPosted, source: "Bank Feed", method: "Wire"},
		{id: "RCPT-10093", counterparty: "Globex", issue: date(2026, 2, 6), due: date(2026, 2, 6), amount: "1299.99", status: domain.StatusPending, source: "Payments", method: "Card"},
		{id: "RCPT-10094", counterparty: "Acme Corp", issue: date(2026, 1, 21), due: date(2026, 1, 21), amount: "15000.00", status: domain.StatusPosted, source: "Receipts", method: "ACH"},
		{id: "RCPT-10095", counterparty: "Initech", issue: date(2026, 1, 28), due: date(2026, 1, 28), amount: "4200.00", status: domain.StatusPosted, source: "Receipts", method: "Check"},
	}
	cashOut := []demo{
		{id: "BILL-9012", counterparty: "AWS", issue: date(2026, 2, 3), due: date(2026, 2, 3), amount: "18500", status: domain.StatusPosted, source: "Bills", method: "ACH"},
		{id: "BILL-9013", counterparty: "Stripe", issue: date(2026, 2, 5), due: date(2026, 2, 5), amount: "9200", status: domain.StatusPosted, source: "Card Feed", method: "Card"},
		{id: "BILL-9014", counterparty: "Notion", issue: date(2026, 2, 7), due: date(2026, 2, 7), amount: "480", status: domain.StatusPending, source: "Subscriptions", method: "Card"},
		{id: "BILL-9015", counterparty: "Google Cloud", issue: date(2026, 1, 26), due: date(2026, 1, 26), amount: "12400", status: domain.StatusPosted, source: "Bills", method: "ACH"},
	}

	records := make([]domain.FinancialRecord, 0, len(receivables)+len(payables)+len(cashIn)+len(cashOut))
	for _, d := range receivables {
		records = append(records, d.record(domain.LedgerReceivable))
	}
	for _, d := range payables {
		records = append(records, d.record(domain.LedgerPayable))
	}
	for _, d := range cashIn {
		records = append(records, d.record(domain.LedgerCashIn))
	}
	for _, d := range cashOut {
		records = append(records, d.record(domain.LedgerCashOut))
	}
	return records
}
