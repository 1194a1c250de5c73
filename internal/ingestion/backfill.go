// Package ingestion copies provider data into local stores.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/feed"
	"market-signal-lab/internal/storage"
)

// Backfiller copies daily bars from a price feed into a bar store.
type Backfiller struct {
	source feed.PriceFeed
	store  storage.PriceBarStore
	logger zerolog.Logger
}

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	Source feed.PriceFeed
	Store  storage.PriceBarStore
	Logger *zerolog.Logger
}

// NewBackfiller creates a new bar backfiller.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Backfiller{
		source: opts.Source,
		store:  opts.Store,
		logger: logger.With().Str("component", "backfill").Logger(),
	}
}

// BackfillResult contains statistics from a backfill operation.
type BackfillResult struct {
	BarsIngested      int
	DuplicatesSkipped int
	SymbolsFailed     []string
	Duration          time.Duration
}

// BackfillRange fetches bars in [from, to] for each symbol and stores the ones
// newer than the symbol's latest stored bar. A failing symbol is recorded and
// skipped; only context cancellation aborts the run.
func (b *Backfiller) BackfillRange(ctx context.Context, symbols []string, from, to time.Time) (*BackfillResult, error) {
	began := time.Now()
	result := &BackfillResult{}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ingested, skipped, err := b.backfillSymbol(ctx, symbol, from, to)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			b.logger.Warn().Err(err).Str("symbol", symbol).Msg("backfill failed")
			result.SymbolsFailed = append(result.SymbolsFailed, symbol)
			continue
		}
		result.BarsIngested += ingested
		result.DuplicatesSkipped += skipped

		b.logger.Info().
			Str("symbol", symbol).
			Int("ingested", ingested).
			Int("skipped", skipped).
			Msg("symbol backfilled")
	}

	result.Duration = time.Since(began)
	return result, nil
}

func (b *Backfiller) backfillSymbol(ctx context.Context, symbol string, from, to time.Time) (int, int, error) {
	bars, err := b.source.FetchBars(ctx, symbol, from, to)
	if err != nil {
		if errors.Is(err, feed.ErrNoData) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("fetch bars: %w", err)
	}

	var cutoff time.Time
	latest, err := b.store.GetLatest(ctx, symbol)
	switch {
	case err == nil:
		cutoff = latest.Timestamp
	case errors.Is(err, storage.ErrNotFound):
	default:
		return 0, 0, fmt.Errorf("latest bar: %w", err)
	}

	fresh := make([]*domain.PriceBar, 0, len(bars))
	for i := range bars {
		if !cutoff.IsZero() && !bars[i].Timestamp.After(cutoff) {
			continue
		}
		bar := bars[i]
		bar.Symbol = symbol
		fresh = append(fresh, &bar)
	}

	if err := b.store.InsertBulk(ctx, fresh); err != nil {
		return 0, 0, fmt.Errorf("insert bars: %w", err)
	}
	return len(fresh), len(bars) - len(fresh), nil
}
