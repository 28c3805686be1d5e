package ofx

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
)

// SourceSystem labels records imported from bank statements
const SourceSystem = "Bank Feed"

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRegex  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Importer turns OFX/QFX bank and card statements into cash in and cash out records
type Importer struct {
	log zerolog.Logger
}

// NewImporter creates a new Importer
func NewImporter(log zerolog.Logger) *Importer {
	return &Importer{log: log}
}

// normalize fixes formatting issues banks commonly ship in OFX files
func normalize(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagRegex.ReplaceAllString(content, "$1>")
}

// Parse reads an OFX document and returns one posted record per statement transaction.
// Credits become cash_in records, debits cash_out records with the absolute amount.
func (i *Importer) Parse(ctx context.Context, reader io.Reader) ([]domain.FinancialRecord, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(normalize(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	records := make([]domain.FinancialRecord, 0)

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		records = i.appendTransactions(records, string(stmt.BankAcctFrom.AcctID), stmt.BankTranList.Transactions)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		records = i.appendTransactions(records, string(stmt.CCAcctFrom.AcctID), stmt.BankTranList.Transactions)
	}

	i.log.Info().
		Int("records", len(records)).
		Int("bank_statements", len(resp.Bank)).
		Int("card_statements", len(resp.CreditCard)).
		Msg("Parsed OFX file")

	return records, nil
}

func (i *Importer) appendTransactions(records []domain.FinancialRecord, accountID string, txns []ofxgo.Transaction) []domain.FinancialRecord {
	for _, txn := range txns {
		record, err := convert(txn, accountID)
		if err != nil {
			i.log.Warn().
				Err(err).
				Str("account", accountID).
				Str("fitid", string(txn.FiTID)).
				Msg("Skipping OFX transaction")
			continue
		}
		records = append(records, record)
	}
	return records
}

func convert(txn ofxgo.Transaction, accountID string) (domain.FinancialRecord, error) {
	amount, err := decimal.NewFromString(txn.TrnAmt.FloatString(2))
	if err != nil {
		return domain.FinancialRecord{}, fmt.Errorf("invalid amount: %w", err)
	}

	ledger := domain.LedgerCashIn
	if amount.IsNegative() {
		ledger = domain.LedgerCashOut
		amount = amount.Neg()
	}

	posted := domain.Day(txn.DtPosted.Time)
	record := domain.FinancialRecord{
		ID:               fmt.Sprintf("OFX-%s-%s", accountID, txn.FiTID),
		CounterpartyName: counterparty(txn),
		IssueDate:        posted,
		DueDate:          posted,
		Amount:           amount,
		Status:           domain.StatusPosted,
		SourceSystem:     SourceSystem,
		Ledger:           ledger,
		Method:           method(txn),
	}

	if err := record.Validate(); err != nil {
		return domain.FinancialRecord{}, err
	}
	return record, nil
}

// counterparty prefers PAYEE over NAME, and MEMO when NAME is generic
func counterparty(txn ofxgo.Transaction) string {
	if txn.Payee != nil && txn.Payee.Name != "" {
		return strings.TrimSpace(string(txn.Payee.Name))
	}

	name := strings.TrimSpace(string(txn.Name))
	switch strings.ToUpper(name) {
	case "", "DEBIT", "CREDIT", "PAYMENT", "DEPOSIT", "TRANSFER":
		if txn.Memo != "" {
			return strings.TrimSpace(string(txn.Memo))
		}
	}
	return name
}

// method maps the OFX transaction type to the payment method shown on cash pages
func method(txn ofxgo.Transaction) string {
	switch txn.TrnType {
	case ofxgo.TrnTypeCheck:
		return "Check"
	case ofxgo.TrnTypeATM, ofxgo.TrnTypeCash:
		return "Cash"
	case ofxgo.TrnTypeDirectDep, ofxgo.TrnTypeDirectDebit, ofxgo.TrnTypeRepeatPmt:
		return "ACH"
	case ofxgo.TrnTypeXfer:
		return "Wire"
	case ofxgo.TrnTypePOS:
		return "Card"
	}
	return "Bank Transfer"
}
