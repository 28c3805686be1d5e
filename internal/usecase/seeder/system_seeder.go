package seeder

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
)

// DefaultRuleID is the fixed id of the built-in at-risk rule
const DefaultRuleID = "rule-default-at-risk"

// DefaultRules returns the automation rules every installation starts with:
// IF daysOverdue > 30 THEN mark_at_risk
func DefaultRules() []domain.AutomationRule {
	return []domain.AutomationRule{
		{
			ID:        DefaultRuleID,
			Field:     domain.FieldDaysOverdue,
			Operator:  domain.OperatorGreater,
			Threshold: decimal.NewFromInt(30),
			Action:    domain.ActionMarkAtRisk,
			Enabled:   true,
		},
	}
}

// SystemSeeder handles seeding of the default rules and demo data
type SystemSeeder struct {
	ruleRepo   domain.RuleRepository
	recordRepo domain.RecordRepository
}

// NewSystemSeeder creates a new SystemSeeder instance
func NewSystemSeeder(ruleRepo domain.RuleRepository, recordRepo domain.RecordRepository) *SystemSeeder {
	return &SystemSeeder{
		ruleRepo:   ruleRepo,
		recordRepo: recordRepo,
	}
}

// Seed ensures the default rules exist
// A rule that already exists is left as is, so user edits (such as disabling it) survive restarts.
func (s *SystemSeeder) Seed(ctx context.Context) error {
	for _, rule := range DefaultRules() {
		_, err := s.ruleRepo.GetByID(ctx, rule.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to look up rule %s: %w", rule.ID, err)
		}

		if err := rule.Validate(); err != nil {
			return err
		}

		if err := s.ruleRepo.Save(ctx, &rule); err != nil {
			return err
		}
	}

	return nil
}

// SeedDemo loads the demo records into an empty record store.
// Returns the number of records saved.
func (s *SystemSeeder) SeedDemo(ctx context.Context) (int, error) {
	existing, err := s.recordRepo.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	records := DemoRecords()
	for i := range records {
		if err := s.recordRepo.Save(ctx, &records[i]); err != nil {
			return i, fmt.Errorf("failed to save demo record %s: %w", records[i].ID, err)
		}
	}
	return len(records), nil
}
