package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testBacktest(id, userID string, createdAt time.Time) *domain.BacktestResult {
	return &domain.BacktestResult{
		ID:         id,
		UserID:     userID,
		Name:       "crossover " + id,
		Strategy:   domain.StrategyMovingAverageCrossover,
		Parameters: domain.Parameters{"shortPeriod": 5, "longPeriod": 15},
		Timeframe:  domain.Timeframe{Start: day0, End: day0.AddDate(0, 3, 0)},
		Symbols:    []string{"AAPL", "MSFT"},
		Results: domain.PerformanceMetrics{
			TotalReturn:      220,
			ReturnPercent:    2.2,
			SharpeRatio:      0.4,
			MaxDrawdown:      50,
			WinRate:          0.5,
			TotalTrades:      4,
			ProfitableTrades: 2,
		},
		Trades: []domain.Trade{{
			Symbol:     "AAPL",
			Action:     domain.TradeActionSell,
			EntryPrice: 100,
			ExitPrice:  101,
			Quantity:   100,
			EntryTime:  day0.AddDate(0, 0, 20),
			ExitTime:   day0.AddDate(0, 0, 25),
			PnL:        100,
		}},
		SkippedSymbols: []string{"MSFT"},
		CreatedAt:      createdAt,
	}
}

func TestBacktestStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestStore(pool)
	ctx := context.Background()

	r := testBacktest("b1", "user-1", day0)
	require.NoError(t, store.Insert(ctx, r))

	got, err := store.GetByID(ctx, "user-1", "b1")
	require.NoError(t, err)
	assert.Equal(t, r.Name, got.Name)
	assert.Equal(t, r.Strategy, got.Strategy)
	assert.Equal(t, r.Parameters, got.Parameters)
	assert.Equal(t, r.Symbols, got.Symbols)
	assert.Equal(t, r.SkippedSymbols, got.SkippedSymbols)
	assert.Equal(t, r.Results, got.Results)
	require.Len(t, got.Trades, 1)
	assert.Equal(t, 100.0, got.Trades[0].PnL)
	assert.True(t, got.Trades[0].ExitTime.Equal(r.Trades[0].ExitTime))
	assert.True(t, got.Timeframe.Start.Equal(day0))
	assert.True(t, got.CreatedAt.Equal(day0))

	// Duplicate ID
	err = store.Insert(ctx, r)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBacktestStore_UserScoping(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testBacktest("b1", "user-1", day0)))

	_, err := store.GetByID(ctx, "user-2", "b1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Delete(ctx, "user-2", "b1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.Delete(ctx, "user-1", "b1"))
	_, err = store.GetByID(ctx, "user-1", "b1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBacktestStore_ListByUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestStore(pool)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Insert(ctx, testBacktest(id, "user-1", day0.Add(time.Duration(i)*time.Hour))))
	}
	require.NoError(t, store.Insert(ctx, testBacktest("x", "user-2", day0)))

	results, total, err := store.ListByUser(ctx, "user-1", storage.Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].ID)
	assert.Equal(t, "b", results[1].ID)

	results, total, err = store.ListByUser(ctx, "user-1", storage.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)

	results, total, err = store.ListByUser(ctx, "nobody", storage.Page{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, results)
}
