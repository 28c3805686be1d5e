package allocator

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/finops-backend/internal/adapter/repository/memory"
	"github.com/simaogato/finops-backend/internal/domain"
)

func invoice(id string, due time.Time, amount int64) domain.FinancialRecord {
	return domain.FinancialRecord{
		ID:               id,
		CounterpartyName: "Globex",
		DueDate:          due,
		Amount:           decimal.NewFromInt(amount),
		Status:           domain.StatusOpen,
		Ledger:           domain.LedgerReceivable,
	}
}

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculateAllocation_OldestFirst(t *testing.T) {
	// Payment of 450000 against 200000 (due Jan 20) and 300000 (due Jan 5)
	// Expected: the Jan 5 invoice is cleared, 150000 goes to the Jan 20 invoice
	records := []domain.FinancialRecord{
		invoice("INV-002", day(20), 200000),
		invoice("INV-001", day(5), 300000),
	}

	payment, err := CalculateAllocation(decimal.NewFromInt(450000), records)

	require.NoError(t, err)
	require.Len(t, payment.Allocations, 2)

	assert.Equal(t, "INV-001", payment.Allocations[0].RecordID)
	assert.True(t, payment.Allocations[0].Amount.Equal(decimal.NewFromInt(300000)))
	assert.True(t, payment.Allocations[0].Balance.IsZero())

	assert.Equal(t, "INV-002", payment.Allocations[1].RecordID)
	assert.True(t, payment.Allocations[1].Amount.Equal(decimal.NewFromInt(150000)))
	assert.True(t, payment.Allocations[1].Balance.Equal(decimal.NewFromInt(50000)))

	assert.True(t, payment.Applied.Equal(decimal.NewFromInt(450000)))
	assert.True(t, payment.Unapplied.IsZero())

	// Input is not reordered
	assert.Equal(t, "INV-002", records[0].ID)
}

func TestCalculateAllocation_Overpayment(t *testing.T) {
	records := []domain.FinancialRecord{invoice("INV-001", day(5), 100)}

	payment, err := CalculateAllocation(decimal.RequireFromString("125.50"), records)

	require.NoError(t, err)
	require.Len(t, payment.Allocations, 1)
	assert.True(t, payment.Applied.Equal(decimal.NewFromInt(100)))
	assert.True(t, payment.Unapplied.Equal(decimal.RequireFromString("25.50")))
	assert.True(t, payment.Applied.Add(payment.Unapplied).Equal(payment.Total), "No penny lost")
}

func TestCalculateAllocation_SkipsSettledRecords(t *testing.T) {
	paid := invoice("INV-PAID", day(1), 500)
	paid.Status = domain.StatusPaid
	void := invoice("INV-VOID", day(2), 500)
	void.Status = domain.StatusVoid
	empty := invoice("INV-ZERO", day(3), 0)

	payment, err := CalculateAllocation(decimal.NewFromInt(100), []domain.FinancialRecord{
		paid, void, empty, invoice("INV-OPEN", day(4), 80),
	})

	require.NoError(t, err)
	require.Len(t, payment.Allocations, 1)
	assert.Equal(t, "INV-OPEN", payment.Allocations[0].RecordID)
	assert.True(t, payment.Unapplied.Equal(decimal.NewFromInt(20)))
}

func TestCalculateAllocation_StopsWhenPaymentRunsOut(t *testing.T) {
	payment, err := CalculateAllocation(decimal.NewFromInt(50), []domain.FinancialRecord{
		invoice("INV-001", day(1), 50),
		invoice("INV-002", day(2), 70),
	})

	require.NoError(t, err)
	require.Len(t, payment.Allocations, 1)
	assert.True(t, payment.Unapplied.IsZero())
}

func TestCalculateAllocation_Errors(t *testing.T) {
	tests := []struct {
		name        string
		total       decimal.Decimal
		records     []domain.FinancialRecord
		expectedErr error
	}{
		{
			name:        "Zero Payment",
			total:       decimal.Zero,
			records:     []domain.FinancialRecord{invoice("INV-001", day(1), 10)},
			expectedErr: ErrNonPositivePayment,
		},
		{
			name:        "Negative Payment",
			total:       decimal.NewFromInt(-10),
			records:     []domain.FinancialRecord{invoice("INV-001", day(1), 10)},
			expectedErr: ErrNonPositivePayment,
		},
		{
			name:        "No Records",
			total:       decimal.NewFromInt(10),
			expectedErr: ErrNoRecordsSelected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment, err := CalculateAllocation(tt.total, tt.records)

			assert.Nil(t, payment)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestService_ApplyPayment(t *testing.T) {
	ctx := context.Background()
	bill := invoice("BILL-001", day(1), 999)
	bill.Ledger = domain.LedgerPayable
	store := memory.NewRecordStore(invoice("INV-001", day(5), 300), invoice("INV-002", day(20), 200), bill)
	service := NewService(store)

	payment, err := service.ApplyPayment(ctx, decimal.NewFromInt(400), []string{"INV-002", "INV-001", "INV-001"})

	require.NoError(t, err)
	require.Len(t, payment.Allocations, 2)
	assert.True(t, payment.Applied.Equal(decimal.NewFromInt(400)))

	records, err := store.List(ctx, domain.LedgerReceivable)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, domain.StatusPaid, records[0].Status)
	assert.True(t, records[0].Amount.IsZero())
	assert.Equal(t, domain.StatusOpen, records[1].Status)
	assert.True(t, records[1].Amount.Equal(decimal.NewFromInt(100)))
}

func TestService_ApplyPayment_UnknownRecord(t *testing.T) {
	bill := invoice("BILL-001", day(1), 999)
	bill.Ledger = domain.LedgerPayable
	service := NewService(memory.NewRecordStore(invoice("INV-001", day(5), 300), bill))

	_, err := service.ApplyPayment(context.Background(), decimal.NewFromInt(10), []string{"INV-001", "BILL-001"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ApplyPayment_NothingSelected(t *testing.T) {
	service := NewService(memory.NewRecordStore())

	_, err := service.ApplyPayment(context.Background(), decimal.NewFromInt(10), nil)

	assert.ErrorIs(t, err, ErrNoRecordsSelected)
}
