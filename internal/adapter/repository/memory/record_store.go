package memory

import (
	"context"
	"sync"

	"github.com/simaogato/finops-backend/internal/domain"
)

// RecordStore implements domain.RecordRepository in memory
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]domain.FinancialRecord
	order   []string
}

// NewRecordStore creates a new record store holding the given records
func NewRecordStore(records ...domain.FinancialRecord) *RecordStore {
	s := &RecordStore{records: make(map[string]domain.FinancialRecord)}
	for i := range records {
		_ = s.Save(context.Background(), &records[i])
	}
	return s
}

// List retrieves all records of a ledger in insertion order
func (s *RecordStore) List(ctx context.Context, ledger domain.Ledger) ([]domain.FinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.FinancialRecord, 0, len(s.order))
	for _, id := range s.order {
		record := s.records[id]
		if ledger != "" && record.Ledger != ledger {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Save creates or replaces a record
func (s *RecordStore) Save(ctx context.Context, record *domain.FinancialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	s.records[record.ID] = *record
	return nil
}
