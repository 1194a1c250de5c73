package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

// PriceBarStore is an in-memory implementation of storage.PriceBarStore.
type PriceBarStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]*domain.PriceBar // symbol -> unix seconds -> bar
}

// NewPriceBarStore creates a new in-memory price bar store.
func NewPriceBarStore() *PriceBarStore {
	return &PriceBarStore{
		data: make(map[string]map[int64]*domain.PriceBar),
	}
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *PriceBarStore) InsertBulk(_ context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type barKey struct {
		symbol string
		ts     int64
	}
	batchKeys := make(map[barKey]struct{}, len(bars))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			return storage.ErrInvalidInput
		}
		k := barKey{b.Symbol, b.Timestamp.Unix()}
		if _, exists := s.data[k.symbol][k.ts]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range bars {
		series, ok := s.data[b.Symbol]
		if !ok {
			series = make(map[int64]*domain.PriceBar)
			s.data[b.Symbol] = series
		}
		barCopy := *b
		series[b.Timestamp.Unix()] = &barCopy
	}

	return nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *PriceBarStore) GetByTimeRange(_ context.Context, symbol string, start, end time.Time) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for _, b := range s.data[symbol] {
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		barCopy := *b
		result = append(result, &barCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// GetLatest retrieves the most recent bar for a symbol.
func (s *PriceBarStore) GetLatest(_ context.Context, symbol string) (*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.PriceBar
	for _, b := range s.data[symbol] {
		if latest == nil || b.Timestamp.After(latest.Timestamp) {
			latest = b
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}

	barCopy := *latest
	return &barCopy, nil
}

// ListSymbols returns every symbol with at least one bar.
func (s *PriceBarStore) ListSymbols(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.data))
	for sym, series := range s.data {
		if len(series) > 0 {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

var _ storage.PriceBarStore = (*PriceBarStore)(nil)
