package sqlstore

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
)

// recordRepository implements domain.RecordRepository
type recordRepository struct {
	db *DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *DB) domain.RecordRepository {
	return &recordRepository{db: db}
}

// List retrieves the records of a ledger in insertion order, or every record when ledger is empty
func (r *recordRepository) List(ctx context.Context, ledger domain.Ledger) ([]domain.FinancialRecord, error) {
	query := `
		SELECT id, ledger, counterparty_name, issue_date, due_date, amount, status,
		       source_system, disputed, method, risk_score
		FROM financial_records
	`
	args := make([]any, 0, 1)
	if ledger != "" {
		query += " WHERE ledger = ?"
		args = append(args, string(ledger))
	}
	query += " ORDER BY seq ASC"

	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.FinancialRecord, 0)
	for rows.Next() {
		var (
			record             domain.FinancialRecord
			issueStr, dueStr   string
			amountStr, riskStr string
			disputed           int
		)

		err := rows.Scan(
			&record.ID,
			&record.Ledger,
			&record.CounterpartyName,
			&issueStr,
			&dueStr,
			&amountStr,
			&record.Status,
			&record.SourceSystem,
			&disputed,
			&record.Method,
			&riskStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		if record.IssueDate, err = parseDate(issueStr); err != nil {
			return nil, fmt.Errorf("failed to parse issue date of %s: %w", record.ID, err)
		}
		if record.DueDate, err = parseDate(dueStr); err != nil {
			return nil, fmt.Errorf("failed to parse due date of %s: %w", record.ID, err)
		}
		if record.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount of %s: %w", record.ID, err)
		}
		if record.RiskScore, err = decimal.NewFromString(riskStr); err != nil {
			return nil, fmt.Errorf("failed to parse risk score of %s: %w", record.ID, err)
		}
		record.Disputed = disputed != 0

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// Save creates or replaces a record
func (r *recordRepository) Save(ctx context.Context, record *domain.FinancialRecord) error {
	query := `
		INSERT INTO financial_records (id, ledger, counterparty_name, issue_date, due_date, amount,
			status, source_system, disputed, method, risk_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			ledger = excluded.ledger,
			counterparty_name = excluded.counterparty_name,
			issue_date = excluded.issue_date,
			due_date = excluded.due_date,
			amount = excluded.amount,
			status = excluded.status,
			source_system = excluded.source_system,
			disputed = excluded.disputed,
			method = excluded.method,
			risk_score = excluded.risk_score
	`

	disputed := 0
	if record.Disputed {
		disputed = 1
	}

	_, err := r.db.exec(ctx, query,
		record.ID,
		string(record.Ledger),
		record.CounterpartyName,
		formatDate(record.IssueDate),
		formatDate(record.DueDate),
		record.Amount.String(),
		string(record.Status),
		record.SourceSystem,
		disputed,
		record.Method,
		record.RiskScore.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.ID, err)
	}

	return nil
}
