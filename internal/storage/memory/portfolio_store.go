package memory

import (
	"context"
	"sort"
	"sync"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

// PortfolioStore is an in-memory implementation of storage.PortfolioStore.
type PortfolioStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Portfolio // keyed by id
}

// NewPortfolioStore creates a new in-memory portfolio store.
func NewPortfolioStore() *PortfolioStore {
	return &PortfolioStore{
		data: make(map[string]*domain.Portfolio),
	}
}

func validPortfolio(p *domain.Portfolio) bool {
	return p != nil && p.ID != "" && p.UserID != ""
}

// Insert adds a portfolio. Returns ErrDuplicateKey if the ID exists.
func (s *PortfolioStore) Insert(_ context.Context, p *domain.Portfolio) error {
	if !validPortfolio(p) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[p.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[p.ID] = clonePortfolio(p)
	return nil
}

// GetByID retrieves a user's portfolio.
func (s *PortfolioStore) GetByID(_ context.Context, userID, id string) (*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data[id]
	if !ok || p.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return clonePortfolio(p), nil
}

// ListByUser retrieves a user's portfolios, newest first.
func (s *PortfolioStore) ListByUser(_ context.Context, userID string) ([]*domain.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*domain.Portfolio{}
	for _, p := range s.data {
		if p.UserID == userID {
			result = append(result, clonePortfolio(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Update replaces a user's portfolio.
func (s *PortfolioStore) Update(_ context.Context, p *domain.Portfolio) error {
	if !validPortfolio(p) {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[p.ID]
	if !ok || existing.UserID != p.UserID {
		return storage.ErrNotFound
	}
	s.data[p.ID] = clonePortfolio(p)
	return nil
}

// Delete removes a user's portfolio.
func (s *PortfolioStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.data[id]
	if !ok || p.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

var _ storage.PortfolioStore = (*PortfolioStore)(nil)
