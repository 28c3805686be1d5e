package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/simaogato/finops-backend/internal/domain"
)

// RuleStore implements domain.RuleRepository in memory
type RuleStore struct {
	mu    sync.RWMutex
	rules map[string]domain.AutomationRule
	order []string
}

// NewRuleStore creates a new rule store holding the given rules
func NewRuleStore(rules ...domain.AutomationRule) *RuleStore {
	s := &RuleStore{rules: make(map[string]domain.AutomationRule)}
	for i := range rules {
		_ = s.Save(context.Background(), &rules[i])
	}
	return s
}

// List retrieves every rule in creation order
func (s *RuleStore) List(ctx context.Context) ([]domain.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]domain.AutomationRule, 0, len(s.order))
	for _, id := range s.order {
		rules = append(rules, s.rules[id])
	}
	return rules, nil
}

// GetByID retrieves a rule by its ID
func (s *RuleStore) GetByID(ctx context.Context, id string) (*domain.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule %s %w", id, domain.ErrNotFound)
	}
	return &rule, nil
}

// Save creates or replaces a rule
func (s *RuleStore) Save(ctx context.Context, rule *domain.AutomationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; !exists {
		s.order = append(s.order, rule.ID)
	}
	s.rules[rule.ID] = *rule
	return nil
}

// Delete removes a rule
func (s *RuleStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("rule %s %w", id, domain.ErrNotFound)
	}
	delete(s.rules, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
