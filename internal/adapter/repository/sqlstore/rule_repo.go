package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
)

// ruleRepository implements domain.RuleRepository
type ruleRepository struct {
	db *DB
}

// NewRuleRepository creates a new automation rule repository
func NewRuleRepository(db *DB) domain.RuleRepository {
	return &ruleRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*domain.AutomationRule, error) {
	var (
		rule         domain.AutomationRule
		thresholdStr string
		enabled      int
	)

	if err := row.Scan(&rule.ID, &rule.Field, &rule.Operator, &thresholdStr, &rule.Action, &enabled); err != nil {
		return nil, err
	}

	threshold, err := decimal.NewFromString(thresholdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse threshold of rule %s: %w", rule.ID, err)
	}
	rule.Threshold = threshold
	rule.Enabled = enabled != 0

	return &rule, nil
}

// List retrieves every rule in creation order
func (r *ruleRepository) List(ctx context.Context) ([]domain.AutomationRule, error) {
	query := `
		SELECT id, field, operator, threshold, action, enabled
		FROM automation_rules
		ORDER BY seq ASC
	`

	rows, err := r.db.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query automation rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.AutomationRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation rule: %w", err)
		}
		rules = append(rules, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating automation rules: %w", err)
	}

	return rules, nil
}

// GetByID retrieves a rule by its ID
func (r *ruleRepository) GetByID(ctx context.Context, id string) (*domain.AutomationRule, error) {
	query := `
		SELECT id, field, operator, threshold, action, enabled
		FROM automation_rules
		WHERE id = ?
	`

	rule, err := scanRule(r.db.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %s %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get automation rule: %w", err)
	}

	return rule, nil
}

// Save creates or replaces a rule, keeping its original position
func (r *ruleRepository) Save(ctx context.Context, rule *domain.AutomationRule) error {
	query := `
		INSERT INTO automation_rules (id, field, operator, threshold, action, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			field = excluded.field,
			operator = excluded.operator,
			threshold = excluded.threshold,
			action = excluded.action,
			enabled = excluded.enabled
	`

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	_, err := r.db.exec(ctx, query,
		rule.ID,
		string(rule.Field),
		string(rule.Operator),
		rule.Threshold.String(),
		string(rule.Action),
		enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to save automation rule %s: %w", rule.ID, err)
	}

	return nil
}

// Delete removes a rule
func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.exec(ctx, `DELETE FROM automation_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete automation rule %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete automation rule %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s %w", id, domain.ErrNotFound)
	}

	return nil
}
