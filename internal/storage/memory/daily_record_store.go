package memory

import (
	"context"
	"sort"
	"sync"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

// DailyRecordStore is an in-memory implementation of storage.DailyRecordStore.
type DailyRecordStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.DailyRecord // keyed by run_id, date ASC
}

// NewDailyRecordStore creates a new in-memory daily record store.
func NewDailyRecordStore() *DailyRecordStore {
	return &DailyRecordStore{
		data: make(map[string][]*domain.DailyRecord),
	}
}

// InsertBulk appends records of a run atomically. Fails entire batch on duplicate (run_id, date).
func (s *DailyRecordStore) InsertBulk(_ context.Context, runID string, records []*domain.DailyRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[int64]struct{}, len(s.data[runID])+len(records))
	for _, r := range s.data[runID] {
		existing[r.Date.Unix()] = struct{}{}
	}
	for _, r := range records {
		if r == nil || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := domain.NormalizeDate(r.Date).Unix()
		if _, exists := existing[key]; exists {
			return storage.ErrDuplicateKey
		}
		existing[key] = struct{}{}
	}

	stored := s.data[runID]
	for _, r := range records {
		stored = append(stored, copyRecord(r))
	}
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].Date.Before(stored[j].Date)
	})
	s.data[runID] = stored
	return nil
}

// GetByRunID retrieves all records of a run ordered by date.
// An unknown run yields an empty slice.
func (s *DailyRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.DailyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[runID]
	result := make([]*domain.DailyRecord, len(stored))
	for i, r := range stored {
		result[i] = copyRecord(r)
	}
	return result, nil
}

func copyRecord(r *domain.DailyRecord) *domain.DailyRecord {
	c := *r
	c.Date = domain.NormalizeDate(r.Date)
	if r.Holdings != nil {
		c.Holdings = append([]string(nil), r.Holdings...)
	}
	return &c
}

var _ storage.DailyRecordStore = (*DailyRecordStore)(nil)
