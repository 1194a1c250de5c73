package clickhouse

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

func testBar(symbol string, day int, price float64) *domain.PriceBar {
	return &domain.PriceBar{
		Symbol:    symbol,
		Timestamp: day0.AddDate(0, 0, day),
		Open:      price - 0.5,
		High:      price + 1,
		Low:       price - 1,
		Close:     price,
		Volume:    uint64(1000 + day),
	}
}

func TestPriceBarStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceBarStore(conn)
	ctx := context.Background()

	// Test empty insert
	assert.NoError(t, store.InsertBulk(ctx, nil))

	bars := []*domain.PriceBar{testBar("AAPL", 1, 101), testBar("AAPL", 0, 100)}
	require.NoError(t, store.InsertBulk(ctx, bars))

	got, err := store.GetByTimeRange(ctx, "AAPL", day0, day0.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.True(t, got[0].Timestamp.Equal(day0))
	assert.Equal(t, 100.0, got[0].Close)
	assert.Equal(t, 99.5, got[0].Open)
	assert.Equal(t, uint64(1000), got[0].Volume)
	assert.Equal(t, 101.0, got[1].Close)
}

func TestPriceBarStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceBarStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.PriceBar{testBar("AAPL", 0, 100)}))

	err := store.InsertBulk(ctx, []*domain.PriceBar{testBar("AAPL", 0, 100), testBar("AAPL", 1, 101)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	err = store.InsertBulk(ctx, []*domain.PriceBar{testBar("MSFT", 0, 300), testBar("MSFT", 0, 301)})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByTimeRange(ctx, "MSFT", day0, day0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPriceBarStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceBarStore(conn)
	ctx := context.Background()

	var bars []*domain.PriceBar
	for i := 0; i < 10; i++ {
		bars = append(bars, testBar("TSLA", i, 200+float64(i)))
	}
	require.NoError(t, store.InsertBulk(ctx, bars))

	got, err := store.GetByTimeRange(ctx, "TSLA", day0.AddDate(0, 0, 2), day0.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, 202.0, got[0].Close)
	assert.Equal(t, 205.0, got[3].Close)
}

func TestPriceBarStore_GetLatestAndSymbols(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceBarStore(conn)
	ctx := context.Background()

	_, err := store.GetLatest(ctx, "AAPL")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.InsertBulk(ctx, []*domain.PriceBar{
		testBar("NVDA", 0, 450), testBar("NVDA", 3, 470), testBar("AAPL", 0, 175),
	}))

	latest, err := store.GetLatest(ctx, "NVDA")
	require.NoError(t, err)
	assert.Equal(t, 470.0, latest.Close)

	symbols, err := store.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "NVDA"}, symbols)
}
