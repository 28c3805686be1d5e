package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFinancialRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  FinancialRecord
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid open invoice",
			record: FinancialRecord{
				ID:               "INV-2026-1201",
				CounterpartyName: "Acme Corp",
				IssueDate:        date(2026, 1, 15),
				DueDate:          date(2026, 2, 14),
				Amount:           decimal.NewFromInt(225000),
				Status:           StatusOpen,
			},
			wantErr: false,
		},
		{
			name: "zero amount is allowed",
			record: FinancialRecord{
				ID:     "INV-1",
				Amount: decimal.Zero,
				Status: StatusPaid,
			},
			wantErr: false,
		},
		{
			name:    "empty id",
			record:  FinancialRecord{Amount: decimal.NewFromInt(10), Status: StatusOpen},
			wantErr: true,
			errMsg:  "id cannot be empty",
		},
		{
			name:    "negative amount",
			record:  FinancialRecord{ID: "INV-2", Amount: decimal.NewFromInt(-1), Status: StatusOpen},
			wantErr: true,
			errMsg:  "amount must not be negative",
		},
		{
			name: "due date before issue date",
			record: FinancialRecord{
				ID:        "INV-3",
				IssueDate: date(2026, 2, 1),
				DueDate:   date(2026, 1, 31),
				Amount:    decimal.NewFromInt(10),
				Status:    StatusOpen,
			},
			wantErr: true,
			errMsg:  "due_date must not be before issue_date",
		},
		{
			name:    "unknown status",
			record:  FinancialRecord{ID: "INV-4", Amount: decimal.NewFromInt(10), Status: "lost"},
			wantErr: true,
			errMsg:  "unknown status lost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.True(t, errors.Is(err, ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFinancialRecord_DisplayStatus(t *testing.T) {
	ref := date(2026, 2, 10)

	dueToday := FinancialRecord{ID: "a", DueDate: ref, Status: StatusOpen}
	assert.Equal(t, StatusOpen, dueToday.DisplayStatus(ref), "due on the reference date is not overdue")

	dueYesterday := FinancialRecord{ID: "b", DueDate: date(2026, 2, 9), Status: StatusOpen}
	assert.Equal(t, StatusOverdue, dueYesterday.DisplayStatus(ref))

	paid := FinancialRecord{ID: "c", DueDate: date(2025, 12, 1), Status: StatusPaid}
	assert.Equal(t, StatusPaid, paid.DisplayStatus(ref), "only open records are promoted")
}

func TestFinancialRecord_Flagged(t *testing.T) {
	assert.True(t, (&FinancialRecord{Disputed: true, Status: StatusOverdue}).Flagged())
	assert.True(t, (&FinancialRecord{Status: StatusDisputed}).Flagged())
	assert.False(t, (&FinancialRecord{Status: StatusOpen}).Flagged())
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 40, DaysBetween(date(2026, 1, 1), date(2026, 2, 10)))
	assert.Equal(t, -5, DaysBetween(date(2026, 1, 6), date(2026, 1, 1)))

	// Time of day is ignored
	morning := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysBetween(morning, evening))
}
