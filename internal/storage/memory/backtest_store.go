package memory

import (
	"context"
	"sort"
	"sync"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

// BacktestStore is an in-memory implementation of storage.BacktestStore.
type BacktestStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestResult // keyed by id
}

// NewBacktestStore creates a new in-memory backtest store.
func NewBacktestStore() *BacktestStore {
	return &BacktestStore{
		data: make(map[string]*domain.BacktestResult),
	}
}

// Insert adds a result. Returns ErrDuplicateKey if the ID exists.
func (s *BacktestStore) Insert(_ context.Context, r *domain.BacktestResult) error {
	if r == nil || r.ID == "" || r.UserID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.ID] = cloneBacktest(r)
	return nil
}

// GetByID retrieves a user's result.
func (s *BacktestStore) GetByID(_ context.Context, userID, id string) (*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[id]
	if !ok || r.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return cloneBacktest(r), nil
}

// ListByUser retrieves a page of a user's results, newest first.
func (s *BacktestStore) ListByUser(_ context.Context, userID string, page storage.Page) ([]*domain.BacktestResult, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*domain.BacktestResult
	for _, r := range s.data {
		if r.UserID == userID {
			owned = append(owned, r)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	start, end := page.Window(len(owned))
	result := make([]*domain.BacktestResult, 0, end-start)
	for _, r := range owned[start:end] {
		result = append(result, cloneBacktest(r))
	}

	return result, len(owned), nil
}

// Delete removes a user's result.
func (s *BacktestStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.data[id]
	if !ok || r.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

var _ storage.BacktestStore = (*BacktestStore)(nil)
