package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleField is the record attribute an automation rule compares
type RuleField string

const (
	FieldDaysOverdue RuleField = "daysOverdue"
	FieldAmount      RuleField = "amount"
	FieldRiskScore   RuleField = "riskScore"
)

// Operator is the comparison an automation rule applies
type Operator string

const (
	OperatorGreater      Operator = ">"
	OperatorGreaterEqual Operator = ">="
	OperatorLess         Operator = "<"
)

// Action is what an automation rule triggers when it matches
type Action string

const (
	ActionMarkAtRisk   Action = "mark_at_risk"
	ActionSendReminder Action = "send_reminder"
	ActionEscalate     Action = "escalate"
)

// AutomationRule is a user-defined "IF field operator threshold THEN action" rule
type AutomationRule struct {
	ID        string
	Field     RuleField
	Operator  Operator
	Threshold decimal.Decimal
	Action    Action
	Enabled   bool
}

// Validate ensures the rule only references known fields, operators and actions
func (r *AutomationRule) Validate() error {
	subject := "rule " + r.ID
	if r.ID == "" {
		return &ConfigurationError{Subject: "rule", Reason: "id cannot be empty"}
	}

	switch r.Field {
	case FieldDaysOverdue, FieldAmount, FieldRiskScore:
	default:
		return &ConfigurationError{Subject: subject, Reason: "unknown field " + string(r.Field)}
	}

	switch r.Operator {
	case OperatorGreater, OperatorGreaterEqual, OperatorLess:
	default:
		return &ConfigurationError{Subject: subject, Reason: "unknown operator " + string(r.Operator)}
	}

	switch r.Action {
	case ActionMarkAtRisk, ActionSendReminder, ActionEscalate:
	default:
		return &ConfigurationError{Subject: subject, Reason: "unknown action " + string(r.Action)}
	}

	return nil
}

// Compare applies the rule's operator to value and the rule threshold
func (r *AutomationRule) Compare(value decimal.Decimal) bool {
	switch r.Operator {
	case OperatorGreater:
		return value.GreaterThan(r.Threshold)
	case OperatorGreaterEqual:
		return value.GreaterThanOrEqual(r.Threshold)
	case OperatorLess:
		return value.LessThan(r.Threshold)
	}
	return false
}

// RecordFacts are the upstream-computed inputs the cadence engine evaluates rules against
type RecordFacts struct {
	RecordID    string
	DueDate     time.Time
	DaysOverdue int
	Amount      decimal.Decimal
	RiskScore   decimal.Decimal
	EscalatedAt *time.Time // Set once the record has been escalated
}

// Value returns the fact named by field, and false for unknown fields
func (f RecordFacts) Value(field RuleField) (decimal.Decimal, bool) {
	switch field {
	case FieldDaysOverdue:
		return decimal.NewFromInt(int64(f.DaysOverdue)), true
	case FieldAmount:
		return f.Amount, true
	case FieldRiskScore:
		return f.RiskScore, true
	}
	return decimal.Zero, false
}

// TriggeredAction is one action selected for a record during an evaluation pass
type TriggeredAction struct {
	RecordID    string
	Action      Action
	RuleID      string // Empty when produced by the built-in escalation policy
	TriggeredAt time.Time
}
