package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
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

// Server implements the FinOpsService gRPC server
type Server struct {
	Cadence   *cadence.Service
	Dashboard *dashboard.DashboardService
	Allocator *allocator.Service

	// Clock supplies "now" when a request omits it
	Clock func() time.Time
}

// NewServer creates a new gRPC server instance
func NewServer(cadenceService *cadence.Service, dashboardService *dashboard.DashboardService) *Server {
	return &Server{
		Cadence:   cadenceService,
		Dashboard: dashboardService,
		Allocator: allocator.NewService(dashboardService.RecordRepo),
		Clock:     time.Now,
	}
}

type classifyRequest struct {
	ReferenceDate string      `json:"reference_date"`
	Ledger        string      `json:"ledger"`
	Records       []recordDTO `json:"records"`
	Criteria      criteriaDTO `json:"criteria"`
	Boundaries    []int       `json:"boundaries"`
}

type classifyResponse struct {
	Bucketed       []classifiedDTO `json:"bucketed"`
	Filtered       []classifiedDTO `json:"filtered"`
	Aggregate      aggregateDTO    `json:"aggregate"`
	Distribution   []bucketDTO     `json:"distribution"`
	Counterparties []string        `json:"counterparties"`
	Skipped        []skippedDTO    `json:"skipped"`
}

// ClassifyAndFilter handles the ClassifyAndFilter RPC
// Records come from the request, or from the record store for the requested ledger when omitted.
func (s *Server) ClassifyAndFilter(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in classifyRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	referenceDate, err := s.referenceDate(in.ReferenceDate)
	if err != nil {
		return nil, err
	}

	boundaries := s.Dashboard.Boundaries
	if len(in.Boundaries) > 0 {
		boundaries = domain.Boundaries(in.Boundaries)
	}

	records, err := s.records(ctx, in.Records, domain.Ledger(in.Ledger))
	if err != nil {
		return nil, err
	}

	result, err := aging.ClassifyAndFilter(records, referenceDate, in.Criteria.toDomain(), boundaries)
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(classifyResponse{
		Bucketed:       toClassifiedDTOs(result.Bucketed),
		Filtered:       toClassifiedDTOs(result.Filtered),
		Aggregate:      toAggregateDTO(result.Aggregate),
		Distribution:   toBucketDTOs(aging.Distribution(result.Bucketed, boundaries)),
		Counterparties: aging.Counterparties(records),
		Skipped:        toSkippedDTOs(result.Skipped),
	})
}

type evaluateRequest struct {
	Facts factsDTO  `json:"facts"`
	Rules []ruleDTO `json:"rules"`
	Now   string    `json:"now"`
}

type evaluateResponse struct {
	Actions []actionDTO `json:"actions"`
}

// EvaluateRules handles the EvaluateRules RPC
// Rules come from the request, or from the rule store when omitted.
func (s *Server) EvaluateRules(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in evaluateRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	if in.Facts.RecordID == "" {
		return nil, status.Error(codes.InvalidArgument, "facts.record_id is required")
	}

	facts, err := in.Facts.toDomain()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	now, err := s.now(in.Now)
	if err != nil {
		return nil, err
	}

	var rules []domain.AutomationRule
	if len(in.Rules) > 0 {
		rules = make([]domain.AutomationRule, 0, len(in.Rules))
		for _, rule := range in.Rules {
			rules = append(rules, rule.toDomain())
		}
	} else {
		rules, err = s.Cadence.RuleRepo.List(ctx)
		if err != nil {
			return nil, mapError(err)
		}
	}

	actions := s.Cadence.Engine.EvaluateRules(facts, rules, now)

	return encodeResponse(evaluateResponse{Actions: toActionDTOs(actions)})
}

type advanceRequest struct {
	Attempt attemptDTO `json:"attempt"`
	Outcome string     `json:"outcome"`
	Now     string     `json:"now"`
}

type advanceResponse struct {
	Attempt        attemptDTO `json:"attempt"`
	ActionRequired bool       `json:"action_required"`
}

// AdvanceReminderState handles the AdvanceReminderState RPC
// The transition is computed only; nothing is appended to the history.
func (s *Server) AdvanceReminderState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in advanceRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	attempt, err := in.Attempt.toDomain()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}

	now, err := s.now(in.Now)
	if err != nil {
		return nil, err
	}

	next, err := s.Cadence.Engine.AdvanceReminderState(attempt, domain.Outcome(in.Outcome), now)
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(advanceResponse{
		Attempt:        toAttemptDTO(next),
		ActionRequired: s.Cadence.Engine.ActionRequired(next),
	})
}

type cycleRequest struct {
	ReferenceDate string      `json:"reference_date"`
	Now           string      `json:"now"`
	Records       []recordDTO `json:"records"`
	Dispatch      bool        `json:"dispatch"`
}

// RunReminderCycle handles the RunReminderCycle RPC
// Logic:
//  1. Classify the receivables (request records or the record store) at reference_date
//  2. Run the cycle over every overdue record
//  3. Generate the collection tasks the pass calls for
//  4. Optionally hand the due reminders to the dispatcher
func (s *Server) RunReminderCycle(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in cycleRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	referenceDate, err := s.referenceDate(in.ReferenceDate)
	if err != nil {
		return nil, err
	}

	now, err := s.now(in.Now)
	if err != nil {
		return nil, err
	}

	records, err := s.records(ctx, in.Records, domain.LedgerReceivable)
	if err != nil {
		return nil, err
	}

	classified, err := aging.ClassifyAndFilter(records, referenceDate, domain.FilterCriteria{}, s.Dashboard.Boundaries)
	if err != nil {
		return nil, mapError(err)
	}

	result, err := s.Cadence.RunCycle(ctx, cadence.FactsFor(classified.Bucketed), now)
	if err != nil {
		return nil, mapError(err)
	}

	tasks, err := task_generator.GenerateTasks(ctx, result, s.Dashboard.RecordRepo, now)
	if err != nil {
		return nil, mapError(err)
	}

	out := toCycleDTO(result)
	out.Tasks = toTaskDTOs(tasks)
	out.Skipped = toSkippedDTOs(classified.Skipped)

	if in.Dispatch {
		dispatched, err := s.Cadence.DispatchDue(ctx, now)
		if err != nil {
			return nil, mapError(err)
		}
		out.Dispatched = toAttemptDTOs(dispatched)
	}

	return encodeResponse(out)
}

type outcomeRequest struct {
	RecordID string `json:"record_id"`
	Channel  string `json:"channel"`
	Outcome  string `json:"outcome"`
	Now      string `json:"now"`
}

// ReportReminderOutcome handles the ReportReminderOutcome RPC
func (s *Server) ReportReminderOutcome(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in outcomeRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	if in.RecordID == "" {
		return nil, status.Error(codes.InvalidArgument, "record_id is required")
	}

	channel := s.Cadence.Engine.Policy().DefaultChannel
	if in.Channel != "" {
		channel = domain.Channel(in.Channel)
	}

	now, err := s.now(in.Now)
	if err != nil {
		return nil, err
	}

	next, err := s.Cadence.ReportOutcome(ctx, in.RecordID, channel, domain.Outcome(in.Outcome), now)
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(advanceResponse{
		Attempt:        toAttemptDTO(*next),
		ActionRequired: s.Cadence.Engine.ActionRequired(*next),
	})
}

type paymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	RecordIDs []string        `json:"record_ids"`
}

// ApplyPayment handles the ApplyPayment RPC
// The payment is applied oldest due date first; any excess is reported as unapplied.
func (s *Server) ApplyPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in paymentRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	payment, err := s.Allocator.ApplyPayment(ctx, in.Amount, in.RecordIDs)
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(toPaymentDTO(payment))
}

type cashRequest struct {
	ReferenceDate string      `json:"reference_date"`
	Ledger        string      `json:"ledger"`
	Records       []recordDTO `json:"records"`
	Period        string      `json:"period"`
	PostedOnly    bool        `json:"posted_only"`
	Counterparty  string      `json:"counterparty"`
	Method        string      `json:"method"`
	Search        string      `json:"search"`
}

type cashResponse struct {
	Rows           []recordDTO `json:"rows"`
	Summary        cashDTO     `json:"summary"`
	Counterparties []string    `json:"counterparties"`
	Methods        []string    `json:"methods"`
}

// ListCashMovements handles the ListCashMovements RPC
// Ledger is cash_in (default) or cash_out; records come from the request or the record store.
func (s *Server) ListCashMovements(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in cashRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	referenceDate, err := s.referenceDate(in.ReferenceDate)
	if err != nil {
		return nil, err
	}

	ledger := domain.Ledger(in.Ledger)
	switch ledger {
	case "":
		ledger = domain.LedgerCashIn
	case domain.LedgerCashIn, domain.LedgerCashOut:
	default:
		return nil, status.Errorf(codes.InvalidArgument, "ledger must be %s or %s", domain.LedgerCashIn, domain.LedgerCashOut)
	}

	records, err := s.records(ctx, in.Records, ledger)
	if err != nil {
		return nil, err
	}

	result, err := cashflow.Filter(records, referenceDate, cashflow.Criteria{
		Period:       cashflow.Period(in.Period),
		PostedOnly:   in.PostedOnly,
		Counterparty: in.Counterparty,
		Method:       in.Method,
		SearchText:   in.Search,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(cashResponse{
		Rows:           toRecordDTOs(result.Rows),
		Summary:        toCashDTO(result.Summary),
		Counterparties: result.Counterparties,
		Methods:        result.Methods,
	})
}

type marginRequest struct {
	Rows           []marginRowDTO   `json:"rows"`
	Segment        string           `json:"segment"`
	IncludePending bool             `json:"include_pending"`
	Search         string           `json:"search"`
	ThresholdPct   *decimal.Decimal `json:"threshold_pct"`
}

type marginResponse struct {
	Contributions  []contributionDTO `json:"contributions"`
	Totals         marginTotalsDTO   `json:"totals"`
	BelowThreshold []contributionDTO `json:"below_threshold"`
}

// GetNetMargin handles the GetNetMargin RPC
// Rows are always supplied by the caller. Contributions under threshold_pct are listed separately.
func (s *Server) GetNetMargin(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in marginRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	if len(in.Rows) == 0 {
		return nil, status.Error(codes.InvalidArgument, "rows are required")
	}

	rows := make([]margin.Row, 0, len(in.Rows))
	for _, row := range in.Rows {
		rows = append(rows, row.toDomain())
	}

	contributions, totals := margin.Contributions(rows, margin.Criteria{
		Segment:        in.Segment,
		IncludePending: in.IncludePending,
		SearchText:     in.Search,
	})

	below := make([]margin.Contribution, 0)
	if in.ThresholdPct != nil {
		below = margin.BelowThreshold(contributions, *in.ThresholdPct)
	}

	return encodeResponse(marginResponse{
		Contributions:  toContributionDTOs(contributions),
		Totals:         toMarginTotalsDTO(totals),
		BelowThreshold: toContributionDTOs(below),
	})
}

type overviewRequest struct {
	ReferenceDate string `json:"reference_date"`
}

// GetOverview handles the GetOverview RPC
func (s *Server) GetOverview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in overviewRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	referenceDate, err := s.referenceDate(in.ReferenceDate)
	if err != nil {
		return nil, err
	}

	overview, err := s.Dashboard.GetOverview(ctx, referenceDate)
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(toOverviewDTO(overview))
}

type rulesResponse struct {
	Rules []ruleDTO `json:"rules"`
}

// ListRules handles the ListRules RPC
func (s *Server) ListRules(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rules, err := s.Cadence.ListRules(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(rulesResponse{Rules: toRuleDTOs(rules)})
}

type saveRuleRequest struct {
	Rule ruleDTO `json:"rule"`
}

type saveRuleResponse struct {
	Rule ruleDTO `json:"rule"`
}

// SaveRule handles the SaveRule RPC
// The rule is created, or replaced when its id exists. Rules without an id get a generated one.
func (s *Server) SaveRule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in saveRuleRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	rule := in.Rule.toDomain()
	if rule.ID == "" {
		rule.ID = "rule-" + uuid.NewString()
	}

	if err := s.Cadence.SaveRule(ctx, &rule); err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(saveRuleResponse{Rule: toRuleDTO(rule)})
}

type deleteRuleRequest struct {
	ID string `json:"id"`
}

type deleteRuleResponse struct {
	Deleted bool `json:"deleted"`
}

// DeleteRule handles the DeleteRule RPC
func (s *Server) DeleteRule(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in deleteRuleRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	if in.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	if err := s.Cadence.DeleteRule(ctx, in.ID); err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(deleteRuleResponse{Deleted: true})
}

type historyRequest struct {
	Query   string      `json:"query"`
	Records []recordDTO `json:"records"`
}

type historyResponse struct {
	Entries []historyEntryDTO `json:"entries"`
}

// ListReminderHistory handles the ListReminderHistory RPC
// query matches record ids and counterparty names; counterparties come from the request records or the receivables store.
func (s *Server) ListReminderHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in historyRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}

	records, err := s.records(ctx, in.Records, domain.LedgerReceivable)
	if err != nil {
		return nil, err
	}

	entries, err := s.Cadence.History(ctx, records, in.Query)
	if err != nil {
		return nil, mapError(err)
	}

	return encodeResponse(historyResponse{Entries: toHistoryEntryDTOs(entries)})
}

// referenceDate parses a required reference date
func (s *Server) referenceDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, status.Error(codes.InvalidArgument, "reference_date is required")
	}
	t, err := parseDate("reference_date", value)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	return t, nil
}

// now parses an optional timestamp, falling back to the server clock
func (s *Server) now(value string) (time.Time, error) {
	t, err := parseTime("now", value)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	if t == nil {
		return s.Clock().UTC(), nil
	}
	return *t, nil
}

func (s *Server) records(ctx context.Context, dtos []recordDTO, ledger domain.Ledger) ([]domain.FinancialRecord, error) {
	if len(dtos) > 0 {
		records, err := toRecords(dtos)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "%v", err)
		}
		return records, nil
	}

	if ledger == "" {
		ledger = domain.LedgerReceivable
	}
	records, err := s.Dashboard.RecordRepo.List(ctx, ledger)
	if err != nil {
		return nil, mapError(err)
	}
	return records, nil
}

// mapError converts domain errors to gRPC status errors
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConfiguration):
		return status.Errorf(codes.InvalidArgument, "%s", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s", err.Error())
	case errors.Is(err, cadence.ErrInvalidTransition), errors.Is(err, cadence.ErrAttemptsExhausted):
		return status.Errorf(codes.FailedPrecondition, "%s", err.Error())
	case errors.Is(err, domain.ErrTransientDispatch):
		return status.Errorf(codes.Unavailable, "%s", err.Error())
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s", err.Error())
	}

	// Default to Internal error for unknown errors
	return status.Errorf(codes.Internal, "%s", err.Error())
}
