package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Signal // keyed by id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.Signal),
	}
}

// InsertBulk adds multiple signals. Fails entire batch on any duplicate.
func (s *SignalStore) InsertBulk(_ context.Context, signals []*domain.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(signals))
	for _, sig := range signals {
		if sig == nil || sig.ID == "" || sig.Symbol == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[sig.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[sig.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[sig.ID] = struct{}{}
	}

	for _, sig := range signals {
		s.data[sig.ID] = cloneSignal(sig)
	}

	return nil
}

// GetByID retrieves a signal.
func (s *SignalStore) GetByID(_ context.Context, id string) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneSignal(sig), nil
}

// Query retrieves signals matching filter, newest first.
func (s *SignalStore) Query(_ context.Context, filter storage.SignalFilter, page storage.Page) ([]*domain.Signal, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Signal
	for _, sig := range s.data {
		if filter.Matches(sig) {
			matched = append(matched, sig)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	start, end := page.Window(len(matched))
	result := make([]*domain.Signal, 0, end-start)
	for _, sig := range matched[start:end] {
		result = append(result, cloneSignal(sig))
	}

	return result, len(matched), nil
}

// Delete removes a signal.
func (s *SignalStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// Stats aggregates signals with timestamp >= since.
func (s *SignalStore) Stats(_ context.Context, since time.Time, topN int) (*domain.SignalStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type typeAcc struct {
		count                int
		strengthSum, confSum float64
	}
	byType := make(map[domain.SignalType]*typeAcc)
	bySymbol := make(map[string]*domain.SymbolSignalStat)
	total := 0

	for _, sig := range s.data {
		if sig.Timestamp.Before(since) {
			continue
		}
		total++

		acc, ok := byType[sig.SignalType]
		if !ok {
			acc = &typeAcc{}
			byType[sig.SignalType] = acc
		}
		acc.count++
		acc.strengthSum += sig.Strength
		acc.confSum += sig.Confidence

		sym, ok := bySymbol[sig.Symbol]
		if !ok {
			sym = &domain.SymbolSignalStat{Symbol: sig.Symbol}
			bySymbol[sig.Symbol] = sym
		}
		sym.SignalCount++
		switch sig.SignalType {
		case domain.SignalTypeBullish:
			sym.BullishCount++
		case domain.SignalTypeBearish:
			sym.BearishCount++
		}
	}

	stats := &domain.SignalStats{
		TotalSignals: total,
		ByType:       make([]domain.SignalTypeStat, 0, len(byType)),
		TopSymbols:   make([]domain.SymbolSignalStat, 0, len(bySymbol)),
		Since:        since,
	}

	for t, acc := range byType {
		n := float64(acc.count)
		stats.ByType = append(stats.ByType, domain.SignalTypeStat{
			SignalType:    t,
			Count:         acc.count,
			AvgStrength:   round3(acc.strengthSum / n),
			AvgConfidence: round3(acc.confSum / n),
		})
	}
	sort.Slice(stats.ByType, func(i, j int) bool {
		return stats.ByType[i].SignalType < stats.ByType[j].SignalType
	})

	for _, sym := range bySymbol {
		stats.TopSymbols = append(stats.TopSymbols, *sym)
	}
	sort.Slice(stats.TopSymbols, func(i, j int) bool {
		a, b := stats.TopSymbols[i], stats.TopSymbols[j]
		if a.SignalCount != b.SignalCount {
			return a.SignalCount > b.SignalCount
		}
		return a.Symbol < b.Symbol
	})
	if topN > 0 && len(stats.TopSymbols) > topN {
		stats.TopSymbols = stats.TopSymbols[:topN]
	}

	return stats, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

var _ storage.SignalStore = (*SignalStore)(nil)
