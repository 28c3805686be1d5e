package grpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/finops-backend/internal/domain"
	"github.com/simaogato/finops-backend/internal/usecase/aging"
	"github.com/simaogato/finops-backend/internal/usecase/allocator"
	"github.com/simaogato/finops-backend/internal/usecase/cadence"
	"github.com/simaogato/finops-backend/internal/usecase/cashflow"
	"github.com/simaogato/finops-backend/internal/usecase/dashboard"
	"github.com/simaogato/finops-backend/internal/usecase/margin"
	"github.com/simaogato/finops-backend/internal/usecase/task_generator"
)

const dateLayout = "2006-01-02"

// decodeRequest maps a Struct payload onto a request DTO
func decodeRequest(req *structpb.Struct, v interface{}) error {
	data, err := protojson.Marshal(req)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// encodeResponse maps a response DTO onto a Struct payload
func encodeResponse(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %w", field, err)
	}
	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func parseTime(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: %w", field, err)
	}
	return &t, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

type recordDTO struct {
	ID           string          `json:"id"`
	Counterparty string          `json:"counterparty"`
	IssueDate    string          `json:"issue_date,omitempty"`
	DueDate      string          `json:"due_date,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	SourceSystem string          `json:"source_system,omitempty"`
	Ledger       string          `json:"ledger,omitempty"`
	Disputed     bool            `json:"disputed,omitempty"`
	Method       string          `json:"method,omitempty"`
	RiskScore    decimal.Decimal `json:"risk_score"`
}

func (d recordDTO) toDomain() (domain.FinancialRecord, error) {
	issue, err := parseDate("issue_date", d.IssueDate)
	if err != nil {
		return domain.FinancialRecord{}, err
	}
	due, err := parseDate("due_date", d.DueDate)
	if err != nil {
		return domain.FinancialRecord{}, err
	}
	return domain.FinancialRecord{
		ID:               d.ID,
		CounterpartyName: d.Counterparty,
		IssueDate:        issue,
		DueDate:          due,
		Amount:           d.Amount,
		Status:           domain.Status(d.Status),
		SourceSystem:     d.SourceSystem,
		Ledger:           domain.Ledger(d.Ledger),
		Disputed:         d.Disputed,
		Method:           d.Method,
		RiskScore:        d.RiskScore,
	}, nil
}

func toRecordDTO(r domain.FinancialRecord) recordDTO {
	return recordDTO{
		ID:           r.ID,
		Counterparty: r.CounterpartyName,
		IssueDate:    formatDate(r.IssueDate),
		DueDate:      formatDate(r.DueDate),
		Amount:       r.Amount,
		Status:       string(r.Status),
		SourceSystem: r.SourceSystem,
		Ledger:       string(r.Ledger),
		Disputed:     r.Disputed,
		Method:       r.Method,
		RiskScore:    r.RiskScore,
	}
}

func toRecords(dtos []recordDTO) ([]domain.FinancialRecord, error) {
	records := make([]domain.FinancialRecord, 0, len(dtos))
	for _, d := range dtos {
		record, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", d.ID, err)
		}
		records = append(records, record)
	}
	return records, nil
}

type classifiedDTO struct {
	recordDTO
	DaysPastDue   int    `json:"days_past_due"`
	Bucket        string `json:"bucket"`
	DisplayStatus string `json:"display_status"`
}

func toClassifiedDTOs(records []domain.ClassifiedRecord) []classifiedDTO {
	out := make([]classifiedDTO, 0, len(records))
	for _, r := range records {
		out = append(out, classifiedDTO{
			recordDTO:     toRecordDTO(r.FinancialRecord),
			DaysPastDue:   r.DaysPastDue,
			Bucket:        string(r.Bucket),
			DisplayStatus: string(r.DisplayStatus),
		})
	}
	return out
}

type criteriaDTO struct {
	Bucket         string `json:"bucket"`
	Counterparty   string `json:"counterparty"`
	Status         string `json:"status"`
	IncludeFlagged *bool  `json:"include_flagged"`
	Search         string `json:"search"`
}

func (d criteriaDTO) toDomain() domain.FilterCriteria {
	return domain.FilterCriteria{
		Bucket:         domain.AgingBucket(d.Bucket),
		Counterparty:   d.Counterparty,
		Status:         domain.Status(d.Status),
		IncludeFlagged: d.IncludeFlagged,
		SearchText:     d.Search,
	}
}

type aggregateDTO struct {
	TotalAmount   decimal.Decimal `json:"total_amount"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
	FlaggedAmount decimal.Decimal `json:"flagged_amount"`
	Count         int             `json:"count"`
}

func toAggregateDTO(a domain.AggregateResult) aggregateDTO {
	return aggregateDTO{
		TotalAmount:   a.TotalAmount,
		OverdueAmount: a.OverdueAmount,
		FlaggedAmount: a.FlaggedAmount,
		Count:         a.Count,
	}
}

type skippedDTO struct {
	RecordID string `json:"record_id"`
	Error    string `json:"error"`
}

func toSkippedDTOs(skipped []domain.SkippedRecord) []skippedDTO {
	out := make([]skippedDTO, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, skippedDTO{RecordID: s.RecordID, Error: s.Err.Error()})
	}
	return out
}

type bucketDTO struct {
	Bucket  string          `json:"bucket"`
	Amount  decimal.Decimal `json:"amount"`
	Count   int             `json:"count"`
	Percent decimal.Decimal `json:"percent"`
}

func toBucketDTOs(summaries []aging.BucketSummary) []bucketDTO {
	out := make([]bucketDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, bucketDTO{Bucket: string(s.Bucket), Amount: s.Amount, Count: s.Count, Percent: s.Percent})
	}
	return out
}

type ruleDTO struct {
	ID        string          `json:"id"`
	Field     string          `json:"field"`
	Operator  string          `json:"operator"`
	Threshold decimal.Decimal `json:"threshold"`
	Action    string          `json:"action"`
	Enabled   bool            `json:"enabled"`
}

func (d ruleDTO) toDomain() domain.AutomationRule {
	return domain.AutomationRule{
		ID:        d.ID,
		Field:     domain.RuleField(d.Field),
		Operator:  domain.Operator(d.Operator),
		Threshold: d.Threshold,
		Action:    domain.Action(d.Action),
		Enabled:   d.Enabled,
	}
}

func toRuleDTO(r domain.AutomationRule) ruleDTO {
	return ruleDTO{
		ID:        r.ID,
		Field:     string(r.Field),
		Operator:  string(r.Operator),
		Threshold: r.Threshold,
		Action:    string(r.Action),
		Enabled:   r.Enabled,
	}
}

func toRuleDTOs(rules []domain.AutomationRule) []ruleDTO {
	out := make([]ruleDTO, 0, len(rules))
	for _, r := range rules {
		out = append(out, toRuleDTO(r))
	}
	return out
}

type factsDTO struct {
	RecordID    string          `json:"record_id"`
	DueDate     string          `json:"due_date"`
	DaysOverdue int             `json:"days_overdue"`
	Amount      decimal.Decimal `json:"amount"`
	RiskScore   decimal.Decimal `json:"risk_score"`
	EscalatedAt string          `json:"escalated_at"`
}

func (d factsDTO) toDomain() (domain.RecordFacts, error) {
	due, err := parseDate("due_date", d.DueDate)
	if err != nil {
		return domain.RecordFacts{}, err
	}
	escalatedAt, err := parseTime("escalated_at", d.EscalatedAt)
	if err != nil {
		return domain.RecordFacts{}, err
	}
	return domain.RecordFacts{
		RecordID:    d.RecordID,
		DueDate:     due,
		DaysOverdue: d.DaysOverdue,
		Amount:      d.Amount,
		RiskScore:   d.RiskScore,
		EscalatedAt: escalatedAt,
	}, nil
}

type actionDTO struct {
	RecordID    string `json:"record_id"`
	Action      string `json:"action"`
	RuleID      string `json:"rule_id,omitempty"`
	TriggeredAt string `json:"triggered_at"`
}

func toActionDTOs(actions []domain.TriggeredAction) []actionDTO {
	out := make([]actionDTO, 0, len(actions))
	for _, a := range actions {
		at := a.TriggeredAt
		out = append(out, actionDTO{RecordID: a.RecordID, Action: string(a.Action), RuleID: a.RuleID, TriggeredAt: formatTime(&at)})
	}
	return out
}

type attemptDTO struct {
	ID              string `json:"id,omitempty"`
	RecordID        string `json:"record_id"`
	Channel         string `json:"channel"`
	DueDate         string `json:"due_date"`
	ScheduledDate   string `json:"scheduled_date,omitempty"`
	Status          string `json:"status"`
	AttemptCount    int    `json:"attempt_count"`
	LastAttemptDate string `json:"last_attempt_date,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

func (d attemptDTO) toDomain() (domain.ReminderAttempt, error) {
	attempt := domain.ReminderAttempt{
		RecordID:     d.RecordID,
		Channel:      domain.Channel(d.Channel),
		Status:       domain.AttemptStatus(d.Status),
		AttemptCount: d.AttemptCount,
	}

	if d.ID != "" {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			return attempt, fmt.Errorf("invalid id format: %w", err)
		}
		attempt.ID = id
	}

	var err error
	if attempt.DueDate, err = parseDate("due_date", d.DueDate); err != nil {
		return attempt, err
	}
	if attempt.ScheduledDate, err = parseTime("scheduled_date", d.ScheduledDate); err != nil {
		return attempt, err
	}
	if attempt.LastAttemptDate, err = parseTime("last_attempt_date", d.LastAttemptDate); err != nil {
		return attempt, err
	}
	created, err := parseTime("created_at", d.CreatedAt)
	if err != nil {
		return attempt, err
	}
	if created != nil {
		attempt.CreatedAt = *created
	}

	return attempt, nil
}

func toAttemptDTO(a domain.ReminderAttempt) attemptDTO {
	created := a.CreatedAt
	return attemptDTO{
		ID:              a.ID.String(),
		RecordID:        a.RecordID,
		Channel:         string(a.Channel),
		DueDate:         formatDate(a.DueDate),
		ScheduledDate:   formatTime(a.ScheduledDate),
		Status:          string(a.Status),
		AttemptCount:    a.AttemptCount,
		LastAttemptDate: formatTime(a.LastAttemptDate),
		CreatedAt:       formatTime(&created),
	}
}

func toAttemptDTOs(attempts []domain.ReminderAttempt) []attemptDTO {
	out := make([]attemptDTO, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, toAttemptDTO(a))
	}
	return out
}

type historyEntryDTO struct {
	attemptDTO
	CounterpartyName string          `json:"counterparty_name"`
	Amount           decimal.Decimal `json:"amount"`
}

func toHistoryEntryDTOs(entries []cadence.HistoryEntry) []historyEntryDTO {
	out := make([]historyEntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, historyEntryDTO{
			attemptDTO:       toAttemptDTO(entry.ReminderAttempt),
			CounterpartyName: entry.CounterpartyName,
			Amount:           entry.Amount,
		})
	}
	return out
}

type cycleDTO struct {
	Actions        []actionDTO  `json:"actions"`
	Escalated      []string     `json:"escalated"`
	EscalatedPrior []string     `json:"escalated_prior"`
	Appended       []attemptDTO `json:"appended"`
	ActionRequired []attemptDTO `json:"action_required"`
	Dispatched     []attemptDTO `json:"dispatched"`
	Tasks          []taskDTO    `json:"tasks"`
	Skipped        []skippedDTO `json:"skipped"`
}

func toCycleDTO(result *cadence.CycleResult) cycleDTO {
	return cycleDTO{
		Actions:        toActionDTOs(result.Actions),
		Escalated:      append([]string{}, result.Escalated...),
		EscalatedPrior: append([]string{}, result.EscalatedPrior...),
		Appended:       toAttemptDTOs(result.Appended),
		ActionRequired: toAttemptDTOs(result.ActionRequired),
		Dispatched:     []attemptDTO{},
		Tasks:          []taskDTO{},
		Skipped:        []skippedDTO{},
	}
}

type taskDTO struct {
	ID          string `json:"id"`
	RecordID    string `json:"record_id"`
	Kind        string `json:"kind"`
	Detail      string `json:"detail"`
	Destination string `json:"destination"`
	CreatedAt   string `json:"created_at"`
}

func toTaskDTOs(tasks []task_generator.CollectionTask) []taskDTO {
	out := make([]taskDTO, 0, len(tasks))
	for _, task := range tasks {
		created := task.CreatedAt
		out = append(out, taskDTO{
			ID:          task.ID.String(),
			RecordID:    task.RecordID,
			Kind:        string(task.Kind),
			Detail:      task.Detail,
			Destination: string(task.Destination),
			CreatedAt:   formatTime(&created),
		})
	}
	return out
}

type allocationDTO struct {
	RecordID string          `json:"record_id"`
	Amount   decimal.Decimal `json:"amount"`
	Balance  decimal.Decimal `json:"balance"`
}

type paymentDTO struct {
	Total       decimal.Decimal `json:"total"`
	Applied     decimal.Decimal `json:"applied"`
	Unapplied   decimal.Decimal `json:"unapplied"`
	Allocations []allocationDTO `json:"allocations"`
}

func toPaymentDTO(p *allocator.Payment) paymentDTO {
	allocations := make([]allocationDTO, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		allocations = append(allocations, allocationDTO{RecordID: a.RecordID, Amount: a.Amount, Balance: a.Balance})
	}
	return paymentDTO{
		Total:       p.Total,
		Applied:     p.Applied,
		Unapplied:   p.Unapplied,
		Allocations: allocations,
	}
}

type cashDTO struct {
	PostedAmount  decimal.Decimal `json:"posted_amount"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	Count         int             `json:"count"`
	PostedCount   int             `json:"posted_count"`
}

func toCashDTO(s cashflow.Summary) cashDTO {
	return cashDTO{PostedAmount: s.PostedAmount, PendingAmount: s.PendingAmount, Count: s.Count, PostedCount: s.PostedCount}
}

func toRecordDTOs(records []domain.FinancialRecord) []recordDTO {
	out := make([]recordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, toRecordDTO(r))
	}
	return out
}

type marginRowDTO struct {
	ID       string          `json:"id"`
	Customer string          `json:"customer"`
	Segment  string          `json:"segment"`
	Revenue  decimal.Decimal `json:"revenue"`
	COGS     decimal.Decimal `json:"cogs"`
	Opex     decimal.Decimal `json:"opex"`
	Pending  bool            `json:"pending,omitempty"`
}

func (d marginRowDTO) toDomain() margin.Row {
	return margin.Row{
		ID:       d.ID,
		Customer: d.Customer,
		Segment:  d.Segment,
		Revenue:  d.Revenue,
		COGS:     d.COGS,
		Opex:     d.Opex,
		Pending:  d.Pending,
	}
}

type contributionDTO struct {
	marginRowDTO
	Profit    decimal.Decimal `json:"profit"`
	MarginPct decimal.Decimal `json:"margin_pct"`
}

func toContributionDTOs(contributions []margin.Contribution) []contributionDTO {
	out := make([]contributionDTO, 0, len(contributions))
	for _, c := range contributions {
		out = append(out, contributionDTO{
			marginRowDTO: marginRowDTO{
				ID:       c.ID,
				Customer: c.Customer,
				Segment:  c.Segment,
				Revenue:  c.Revenue,
				COGS:     c.COGS,
				Opex:     c.Opex,
				Pending:  c.Pending,
			},
			Profit:    c.Profit,
			MarginPct: c.MarginPct,
		})
	}
	return out
}

type marginTotalsDTO struct {
	Revenue   decimal.Decimal `json:"revenue"`
	COGS      decimal.Decimal `json:"cogs"`
	Opex      decimal.Decimal `json:"opex"`
	Profit    decimal.Decimal `json:"profit"`
	MarginPct decimal.Decimal `json:"margin_pct"`
}

func toMarginTotalsDTO(t margin.Totals) marginTotalsDTO {
	return marginTotalsDTO{Revenue: t.Revenue, COGS: t.COGS, Opex: t.Opex, Profit: t.Profit, MarginPct: t.MarginPct}
}

type ledgerDTO struct {
	Aggregate    aggregateDTO `json:"aggregate"`
	Distribution []bucketDTO  `json:"distribution"`
	Skipped      []skippedDTO `json:"skipped"`
}

func toLedgerDTO(l dashboard.LedgerSummary) ledgerDTO {
	return ledgerDTO{
		Aggregate:    toAggregateDTO(l.Aggregate),
		Distribution: toBucketDTOs(l.Distribution),
		Skipped:      toSkippedDTOs(l.Skipped),
	}
}

type signalDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Detail      string `json:"detail"`
	Severity    int    `json:"severity"`
	Destination string `json:"destination"`
}

type overviewDTO struct {
	ReferenceDate  string          `json:"reference_date"`
	Receivables    ledgerDTO       `json:"receivables"`
	Payables       ledgerDTO       `json:"payables"`
	CashIn         cashDTO         `json:"cash_in"`
	CashOut        cashDTO         `json:"cash_out"`
	ActionRequired int             `json:"action_required"`
	ProfitLeak     decimal.Decimal `json:"profit_leak"`
	Signals        []signalDTO     `json:"signals"`
}

func toOverviewDTO(o *dashboard.Overview) overviewDTO {
	signals := make([]signalDTO, 0, len(o.Signals))
	for _, s := range o.Signals {
		signals = append(signals, signalDTO{
			ID:          s.ID,
			Title:       s.Title,
			Detail:      s.Detail,
			Severity:    s.Severity,
			Destination: string(s.Destination),
		})
	}
	return overviewDTO{
		ReferenceDate:  formatDate(o.ReferenceDate),
		Receivables:    toLedgerDTO(o.Receivables),
		Payables:       toLedgerDTO(o.Payables),
		CashIn:         toCashDTO(o.CashIn),
		CashOut:        toCashDTO(o.CashOut),
		ActionRequired: o.ActionRequired,
		ProfitLeak:     o.ProfitLeak,
		Signals:        signals,
	}
}
