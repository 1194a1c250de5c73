package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

// NewsStore is an in-memory implementation of storage.NewsStore.
type NewsStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.NewsItem // symbol -> url -> item
}

// NewNewsStore creates a new in-memory news store.
func NewNewsStore() *NewsStore {
	return &NewsStore{
		data: make(map[string]map[string]*domain.NewsItem),
	}
}

// Insert adds a news item.
func (s *NewsStore) Insert(_ context.Context, n *domain.NewsItem) error {
	if n == nil || n.Symbol == "" || n.URL == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.data[n.Symbol]
	if !ok {
		items = make(map[string]*domain.NewsItem)
		s.data[n.Symbol] = items
	}
	if _, exists := items[n.URL]; exists {
		return storage.ErrDuplicateKey
	}

	itemCopy := *n
	items[n.URL] = &itemCopy
	return nil
}

// GetSince retrieves items for a symbol published after since, newest first.
func (s *NewsStore) GetSince(_ context.Context, symbol string, since time.Time) ([]*domain.NewsItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.NewsItem
	for _, n := range s.data[symbol] {
		if n.PublishedAt.After(since) {
			itemCopy := *n
			result = append(result, &itemCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PublishedAt.After(result[j].PublishedAt)
	})

	return result, nil
}

var _ storage.NewsStore = (*NewsStore)(nil)
