package seeder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simaogato/finops-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockRuleRepository is a mock implementation of RuleRepository
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) List(ctx context.Context) ([]domain.AutomationRule, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AutomationRule), args.Error(1)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, id string) (*domain.AutomationRule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AutomationRule), args.Error(1)
}

func (m *MockRuleRepository) Save(ctx context.Context, rule *domain.AutomationRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockRuleRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockRecordRepository is a mock implementation of RecordRepository
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) List(ctx context.Context, ledger domain.Ledger) ([]domain.FinancialRecord, error) {
	args := m.Called(ctx, ledger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FinancialRecord), args.Error(1)
}

func (m *MockRecordRepository) Save(ctx context.Context, record *domain.FinancialRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func notFound(id string) error {
	return fmt.Errorf("rule %s %w", id, domain.ErrNotFound)
}

func TestSystemSeeder_Seed_RuleMissing(t *testing.T) {
	ctx := context.Background()
	mockRuleRepo := new(MockRuleRepository)
	seeder := NewSystemSeeder(mockRuleRepo, new(MockRecordRepository))

	mockRuleRepo.On("GetByID", ctx, DefaultRuleID).Return(nil, notFound(DefaultRuleID))
	mockRuleRepo.On("Save", ctx, mock.MatchedBy(func(rule *domain.AutomationRule) bool {
		return rule.ID == DefaultRuleID &&
			rule.Field == domain.FieldDaysOverdue &&
			rule.Operator == domain.OperatorGreater &&
			rule.Threshold.Equal(decimal.NewFromInt(30)) &&
			rule.Action == domain.ActionMarkAtRisk &&
			rule.Enabled
	})).Return(nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	mockRuleRepo.AssertExpectations(t)
	mockRuleRepo.AssertNumberOfCalls(t, "Save", 1)
}

func TestSystemSeeder_Seed_RuleExists(t *testing.T) {
	ctx := context.Background()
	mockRuleRepo := new(MockRuleRepository)
	seeder := NewSystemSeeder(mockRuleRepo, new(MockRecordRepository))

	// The user disabled the default rule; seeding must not re-enable it
	disabled := DefaultRules()[0]
	disabled.Enabled = false
	mockRuleRepo.On("GetByID", ctx, DefaultRuleID).Return(&disabled, nil)

	err := seeder.Seed(ctx)

	assert.NoError(t, err)
	mockRuleRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSystemSeeder_Seed_LookupError(t *testing.T) {
	ctx := context.Background()
	mockRuleRepo := new(MockRuleRepository)
	seeder := NewSystemSeeder(mockRuleRepo, new(MockRecordRepository))

	mockRuleRepo.On("GetByID", ctx, DefaultRuleID).Return(nil, errors.New("database unavailable"))

	err := seeder.Seed(ctx)

	assert.ErrorContains(t, err, "database unavailable")
	mockRuleRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSystemSeeder_Seed_SaveError(t *testing.T) {
	ctx := context.Background()
	mockRuleRepo := new(MockRuleRepository)
	seeder := NewSystemSeeder(mockRuleRepo, new(MockRecordRepository))

	mockRuleRepo.On("GetByID", ctx, DefaultRuleID).Return(nil, notFound(DefaultRuleID))
	mockRuleRepo.On("Save", ctx, mock.Anything).Return(errors.New("disk full"))

	err := seeder.Seed(ctx)

	assert.EqualError(t, err, "disk full")
}

func TestSystemSeeder_SeedDemo(t *testing.T) {
	ctx := context.Background()
	mockRecordRepo := new(MockRecordRepository)
	seeder := NewSystemSeeder(new(MockRuleRepository), mockRecordRepo)

	mockRecordRepo.On("List", ctx, domain.Ledger("")).Return([]domain.FinancialRecord{}, nil)
	mockRecordRepo.On("Save", ctx, mock.Anything).Return(nil)

	saved, err := seeder.SeedDemo(ctx)

	assert.NoError(t, err)
	assert.Equal(t, len(DemoRecords()), saved)
	mockRecordRepo.AssertNumberOfCalls(t, "Save", saved)
}

func TestSystemSeeder_SeedDemo_StoreNotEmpty(t *testing.T) {
	ctx := context.Background()
	mockRecordRepo := new(MockRecordRepository)
	seeder := NewSystemSeeder(new(MockRuleRepository), mockRecordRepo)

	mockRecordRepo.On("List", ctx, domain.Ledger("")).Return([]domain.FinancialRecord{{ID: "INV-1"}}, nil)

	saved, err := seeder.SeedDemo(ctx)

	assert.NoError(t, err)
	assert.Zero(t, saved)
	mockRecordRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDemoRecords_Valid(t *testing.T) {
	seen := make(map[string]bool)
	for _, record := range DemoRecords() {
		assert.NoError(t, record.Validate(), record.ID)
		assert.False(t, seen[record.ID], "duplicate id %s", record.ID)
		seen[record.ID] = true
	}
}
