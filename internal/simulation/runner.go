// Package simulation runs a strategy over the price history of many symbols.
package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/feed"
	"market-signal-lab/internal/observability"
	"market-signal-lab/internal/strategy"
)

// DefaultConcurrency bounds the number of symbols simulated at once.
const DefaultConcurrency = 4

// Skip reasons.
const (
	ReasonFetchError = "fetch_error"
	ReasonNoData     = "no_data"
)

// Runner fetches bars per symbol and executes a strategy over them.
type Runner struct {
	priceFeed   feed.PriceFeed
	concurrency int
	logger      zerolog.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	PriceFeed   feed.PriceFeed
	Concurrency int
	Logger      *zerolog.Logger
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Runner{
		priceFeed:   opts.PriceFeed,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "simulation").Logger(),
	}
}

// SymbolResult is the outcome for one symbol.
type SymbolResult struct {
	Symbol     string
	Trades     []domain.Trade
	Bars       int
	SkipReason string // empty when the symbol was simulated
}

// Result aggregates a run across symbols, in input symbol order.
type Result struct {
	Symbols []SymbolResult
	Trades  []domain.Trade
	Skipped []string
}

// Run simulates strat for each symbol over [start, end].
// Symbols whose fetch fails or returns no bars are skipped, never failing the run.
// A cancelled or expired ctx skips the symbols not yet fetched as fetch errors;
// symbols already simulated are kept.
func (r *Runner) Run(ctx context.Context, strat strategy.Strategy, symbols []string, start, end time.Time) *Result {
	results := make([]SymbolResult, len(symbols))

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = SymbolResult{Symbol: symbol, SkipReason: ReasonFetchError}
				return
			}
			defer func() { <-sem }()

			results[i] = r.runSymbol(ctx, strat, symbol, start, end)
		}(i, symbol)
	}
	wg.Wait()

	out := &Result{Symbols: results}
	for _, sr := range results {
		if sr.SkipReason != "" {
			out.Skipped = append(out.Skipped, sr.Symbol)
			observability.RecordSymbolSkipped("simulation", sr.SkipReason)
			continue
		}
		out.Trades = append(out.Trades, sr.Trades...)
	}
	observability.RecordTrades(len(out.Trades))
	if err := ctx.Err(); err != nil {
		r.logger.Warn().Err(err).Strs("skipped", out.Skipped).Msg("run interrupted, returning partial results")
	}

	return out
}

// runSymbol fetches, filters and simulates a single symbol.
func (r *Runner) runSymbol(ctx context.Context, strat strategy.Strategy, symbol string, start, end time.Time) SymbolResult {
	bars, err := r.priceFeed.FetchBars(ctx, symbol, start, end)
	if err != nil {
		r.logger.Warn().Err(err).Str("symbol", symbol).Msg("price fetch failed, skipping symbol")
		return SymbolResult{Symbol: symbol, SkipReason: ReasonFetchError}
	}

	bars = feed.FilterBars(bars, start, end)
	if len(bars) == 0 {
		r.logger.Warn().Str("symbol", symbol).Msg("no price data in window, skipping symbol")
		return SymbolResult{Symbol: symbol, SkipReason: ReasonNoData}
	}

	trades := strat.Run(symbol, bars)
	r.logger.Debug().
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Int("trades", len(trades)).
		Msg("symbol simulated")

	return SymbolResult{Symbol: symbol, Trades: trades, Bars: len(bars)}
}
