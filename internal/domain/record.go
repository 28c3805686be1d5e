package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the externally driven lifecycle status of a record
type Status string

const (
	StatusOpen     Status = "open"
	StatusOverdue  Status = "overdue"
	StatusPosted   Status = "posted"
	StatusPending  Status = "pending"
	StatusDisputed Status = "disputed" // also covers on-hold
	StatusPaid     Status = "paid"
	StatusVoid     Status = "void"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusOverdue, StatusPosted, StatusPending, StatusDisputed, StatusPaid, StatusVoid:
		return true
	}
	return false
}

// Ledger identifies which page family a record belongs to
type Ledger string

const (
	LedgerReceivable Ledger = "receivable"
	LedgerPayable    Ledger = "payable"
	LedgerCashIn     Ledger = "cash_in"
	LedgerCashOut    Ledger = "cash_out"
)

// FinancialRecord generalizes an invoice, bill, receipt or ledger line
type FinancialRecord struct {
	ID               string
	CounterpartyName string // Customer or vendor
	IssueDate        time.Time
	DueDate          time.Time
	Amount           decimal.Decimal // Never negative
	Status           Status
	SourceSystem     string // e.g. "Invoice Center", "Bank Feed"

	// Page-specific extension fields
	Ledger    Ledger
	Disputed  bool
	Method    string // Payment method on cash pages (ACH, Wire, Card...)
	RiskScore decimal.Decimal
}

// Validate ensures the record adheres to domain rules
// Returns a *ValidationError describing the first violation found
func (r *FinancialRecord) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "id", Reason: "cannot be empty"}
	}

	if r.Amount.IsNegative() {
		return &ValidationError{RecordID: r.ID, Field: "amount", Reason: "must not be negative"}
	}

	if !r.Status.Valid() {
		return &ValidationError{RecordID: r.ID, Field: "status", Reason: "unknown status " + string(r.Status)}
	}

	if !r.IssueDate.IsZero() && !r.DueDate.IsZero() && Day(r.DueDate).Before(Day(r.IssueDate)) {
		return &ValidationError{RecordID: r.ID, Field: "due_date", Reason: "must not be before issue_date"}
	}

	return nil
}

// Flagged reports whether the record is disputed or on hold
func (r *FinancialRecord) Flagged() bool {
	return r.Disputed || r.Status == StatusDisputed
}

// DisplayStatus derives the status shown to users at referenceDate.
// An open record whose due date is strictly before referenceDate displays as overdue.
func (r *FinancialRecord) DisplayStatus(referenceDate time.Time) Status {
	if r.Status == StatusOpen && !r.DueDate.IsZero() && Day(r.DueDate).Before(Day(referenceDate)) {
		return StatusOverdue
	}
	return r.Status
}

// Day truncates t to a calendar date at UTC midnight
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from `from` to `to`.
// The result is negative when `to` is before `from`.
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}
