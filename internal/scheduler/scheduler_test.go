package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-lab/internal/domain"
)

type countingGenerator struct {
	mu      sync.Mutex
	calls   int
	symbols []string
	err     error
}

func (g *countingGenerator) Generate(_ context.Context, symbols []string) ([]*domain.Signal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.symbols = symbols
	if g.err != nil {
		return nil, g.err
	}
	return []*domain.Signal{{Symbol: symbols[0]}}, nil
}

func (g *countingGenerator) snapshot() (int, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls, g.symbols
}

func TestNew_RequiresGenerator(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestRunOnce_DefaultWatchlist(t *testing.T) {
	gen := &countingGenerator{}
	s, err := New(Options{Generator: gen})
	require.NoError(t, err)

	count, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, symbols := gen.snapshot()
	assert.Equal(t, domain.PopularSymbols, symbols)
}

func TestRunOnce_PropagatesError(t *testing.T) {
	gen := &countingGenerator{err: errors.New("store down")}
	s, err := New(Options{Generator: gen, Watchlist: []string{"AAPL"}})
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.EqualError(t, err, "store down")
}

func TestStart_RunsImmediatelyAndOnInterval(t *testing.T) {
	gen := &countingGenerator{}
	s, err := New(Options{
		Generator: gen,
		Watchlist: []string{"AAPL", "MSFT"},
		Interval:  50 * time.Millisecond,
	})
	require.NoError(t, err)

	s.Start(context.Background())

	require.Eventually(t, func() bool {
		calls, _ := gen.snapshot()
		return calls >= 3
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Shutdown())

	_, symbols := gen.snapshot()
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}
