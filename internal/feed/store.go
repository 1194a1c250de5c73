package feed

import (
	"context"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/storage"
)

// StorePriceFeed serves bars from a PriceBarStore, typically ClickHouse
// after an ingest backfill.
type StorePriceFeed struct {
	store storage.PriceBarStore
}

// NewStorePriceFeed creates a feed reading from store.
func NewStorePriceFeed(store storage.PriceBarStore) *StorePriceFeed {
	return &StorePriceFeed{store: store}
}

// FetchBars implements PriceFeed.
func (f *StorePriceFeed) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error) {
	bars, err := f.store.GetByTimeRange(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PriceBar, len(bars))
	for i, b := range bars {
		out[i] = *b
	}
	return out, nil
}

// StoreNewsFeed serves news from a NewsStore filled by a live stream.
type StoreNewsFeed struct {
	store storage.NewsStore
}

// NewStoreNewsFeed creates a feed reading from store.
func NewStoreNewsFeed(store storage.NewsStore) *StoreNewsFeed {
	return &StoreNewsFeed{store: store}
}

// FetchNews implements NewsFeed.
func (f *StoreNewsFeed) FetchNews(ctx context.Context, symbol string, since time.Time) ([]domain.NewsItem, error) {
	items, err := f.store.GetSince(ctx, symbol, since)
	if err != nil {
		return nil, err
	}
	out := make([]domain.NewsItem, len(items))
	for i, n := range items {
		out[i] = *n
	}
	return out, nil
}

var (
	_ PriceFeed = (*StorePriceFeed)(nil)
	_ NewsFeed  = (*StoreNewsFeed)(nil)
)
