// Package feed defines the price and news data sources consumed by the engine
// and provides store-backed and offline implementations.
package feed

import (
	"context"
	"errors"
	"sort"
	"time"

	"market-signal-lab/internal/domain"
)

// ErrNoData is returned when a provider has no data for a symbol.
var ErrNoData = errors.New("no data available")

// PriceFeed returns daily bars for a symbol.
type PriceFeed interface {
	// FetchBars returns bars with timestamps in [start, end], ascending.
	FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.PriceBar, error)
}

// NewsFeed returns recent news for a symbol.
type NewsFeed interface {
	// FetchNews returns items published after since.
	FetchNews(ctx context.Context, symbol string, since time.Time) ([]domain.NewsItem, error)
}

// FilterBars returns the bars within [start, end] sorted ascending by timestamp.
// The input slice is not modified.
func FilterBars(bars []domain.PriceBar, start, end time.Time) []domain.PriceBar {
	out := make([]domain.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// FilterNews returns items published strictly after since, preserving order.
func FilterNews(items []domain.NewsItem, since time.Time) []domain.NewsItem {
	out := make([]domain.NewsItem, 0, len(items))
	for _, n := range items {
		if n.PublishedAt.After(since) {
			out = append(out, n)
		}
	}
	return out
}
