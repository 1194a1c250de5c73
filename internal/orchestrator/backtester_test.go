package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
	"market-signal-lab/internal/storage/memory"
	"market-signal-lab/internal/strategy"
)

func newTestBacktester(store storage.BacktestStore) *Backtester {
	return NewBacktester(BacktesterOptions{
		PriceFeed: &stubPriceFeed{bars: map[string][]domain.PriceBar{
			"AAPL": sineBars("AAPL", 200),
			"MSFT": sineBars("MSFT", 200),
			"NONE": nil,
		}},
		Store: store,
		Now:   fixedNow,
		NewID: sequentialIDs(),
	})
}

func crossoverRequest(symbols ...string) BacktestRequest {
	return BacktestRequest{
		Strategy:   "MOVING_AVERAGE_CROSSOVER",
		Parameters: domain.Parameters{"shortPeriod": 5, "longPeriod": 15},
		Symbols:    symbols,
		Start:      day0,
		End:        day0.AddDate(1, 0, 0),
		UserID:     "user-1",
	}
}

func TestBacktester_Run_SkipsEmptySymbol(t *testing.T) {
	store := memory.NewBacktestStore()
	b := newTestBacktester(store)

	result, err := b.Run(context.Background(), crossoverRequest("AAPL", "NONE", "MSFT"))
	require.NoError(t, err)

	assert.Equal(t, "id-1", result.ID)
	assert.Equal(t, []string{"AAPL", "NONE", "MSFT"}, result.Symbols)
	assert.Equal(t, []string{"NONE"}, result.SkippedSymbols)
	require.Len(t, result.Trades, 12)
	for _, tr := range result.Trades {
		assert.NotEqual(t, "NONE", tr.Symbol)
	}
	assert.Equal(t, 12, result.Results.TotalTrades)
	assert.Equal(t, "MOVING_AVERAGE_CROSSOVER Backtest - 6/3/2024", result.Name)
	assert.Equal(t, testNow, result.CreatedAt)

	stored, err := store.GetByID(context.Background(), "user-1", "id-1")
	require.NoError(t, err)
	assert.Equal(t, result.Results, stored.Results)
}

func TestBacktester_Run_DedupesSymbols(t *testing.T) {
	b := newTestBacktester(memory.NewBacktestStore())

	result, err := b.Run(context.Background(), crossoverRequest("aapl", "AAPL ", "AAPL"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, result.Symbols)
	assert.Len(t, result.Trades, 6)
}

func TestBacktester_Run_Validation(t *testing.T) {
	b := newTestBacktester(memory.NewBacktestStore())

	tests := []struct {
		name   string
		mutate func(*BacktestRequest)
		also   error
	}{
		{"unknown strategy", func(r *BacktestRequest) { r.Strategy = "BUY_AND_HOLD" }, strategy.ErrUnknownStrategy},
		{"bad parameter", func(r *BacktestRequest) { r.Parameters = domain.Parameters{"shortPeriod": 0} }, strategy.ErrInvalidParameter},
		{"no symbols", func(r *BacktestRequest) { r.Symbols = nil }, nil},
		{"invalid symbol", func(r *BacktestRequest) { r.Symbols = []string{"BRK.B"} }, nil},
		{"start after end", func(r *BacktestRequest) { r.Start, r.End = r.End, r.Start }, nil},
		{"missing dates", func(r *BacktestRequest) { r.Start = time.Time{} }, nil},
		{"missing user", func(r *BacktestRequest) { r.UserID = " " }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := crossoverRequest("AAPL")
			tt.mutate(&req)
			_, err := b.Run(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest), "expected ErrInvalidRequest, got %v", err)
			if tt.also != nil {
				assert.True(t, errors.Is(err, tt.also), "expected %v, got %v", tt.also, err)
			}
		})
	}
}

func TestBacktester_Run_PersistenceFailure(t *testing.T) {
	b := newTestBacktester(failingBacktestStore{memory.NewBacktestStore()})

	_, err := b.Run(context.Background(), crossoverRequest("AAPL"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
}

func TestBacktester_HistoryIsUserScoped(t *testing.T) {
	store := memory.NewBacktestStore()
	b := newTestBacktester(store)
	ctx := context.Background()

	first, err := b.Run(ctx, crossoverRequest("AAPL"))
	require.NoError(t, err)

	other := crossoverRequest("MSFT")
	other.UserID = "user-2"
	_, err = b.Run(ctx, other)
	require.NoError(t, err)

	_, err = b.Get(ctx, "user-2", first.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, b.Delete(ctx, "user-2", first.ID), storage.ErrNotFound)

	results, total, err := b.List(ctx, "user-1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, first.ID, results[0].ID)

	summary, err := b.Summary(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalBacktests)
	assert.Equal(t, first.Results.TotalReturn, summary.BestReturn)
	assert.Equal(t, first.Results.TotalTrades, summary.TotalTrades)

	require.NoError(t, b.Delete(ctx, "user-1", first.ID))
	_, err = b.Get(ctx, "user-1", first.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBacktester_Run_CustomNameAndCapital(t *testing.T) {
	b := newTestBacktester(memory.NewBacktestStore())

	req := crossoverRequest("AAPL")
	req.Name = "My run"
	req.Parameters["initialCapital"] = 1000

	result, err := b.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "My run", result.Name)
	assert.InDelta(t, result.Results.TotalReturn/1000*100, result.Results.ReturnPercent, 1e-9)
}
