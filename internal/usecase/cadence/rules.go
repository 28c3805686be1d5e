package cadence

import (
	"context"
	"fmt"

	"github.com/simaogato/finops-backend/internal/domain"
)

// ListRules retrieves every automation rule in creation order
func (s *Service) ListRules(ctx context.Context) ([]domain.AutomationRule, error) {
	rules, err := s.RuleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list automation rules: %w", err)
	}
	return rules, nil
}

// SaveRule validates a rule and creates or replaces it
// The next reminder cycle picks the change up.
func (s *Service) SaveRule(ctx context.Context, rule *domain.AutomationRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	if err := s.RuleRepo.Save(ctx, rule); err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
	}

	s.log.Info().
		Str("rule_id", rule.ID).
		Str("action", string(rule.Action)).
		Bool("enabled", rule.Enabled).
		Msg("Automation rule saved")

	return nil
}

// DeleteRule removes a rule
// Returns an error wrapping ErrNotFound when the rule does not exist
func (s *Service) DeleteRule(ctx context.Context, id string) error {
	if err := s.RuleRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("rule_id", id).Msg("Automation rule deleted")
	return nil
}
