package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/feed"
	"market-signal-lab/internal/metrics"
	"market-signal-lab/internal/orchestrator"
	"market-signal-lab/internal/simulation"
	"market-signal-lab/internal/storage"
	"market-signal-lab/internal/strategy"
)

// DefaultVerifyLimit bounds VerifyAll when no limit is given.
const DefaultVerifyLimit = 20

// ErrBacktestNotFound is returned when the backtest ID doesn't exist for the user.
var ErrBacktestNotFound = errors.New("backtest not found")

var _ Verifier = (*ReplayVerifier)(nil)

// ReplayVerifier re-runs stored backtests against a price feed.
type ReplayVerifier struct {
	store          storage.BacktestStore
	runner         *simulation.Runner
	riskFreeRate   float64
	initialCapital float64
	logger         zerolog.Logger
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	Store     storage.BacktestStore
	PriceFeed feed.PriceFeed

	// RiskFreeRate and InitialCapital must match the backtester's defaults.
	RiskFreeRate   float64
	InitialCapital float64
	Concurrency    int
	Logger         *zerolog.Logger
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	rate := opts.RiskFreeRate
	if rate == 0 {
		rate = domain.DefaultRiskFreeRate
	}
	capital := opts.InitialCapital
	if capital <= 0 {
		capital = domain.DefaultInitialCapital
	}
	return &ReplayVerifier{
		runner: simulation.NewRunner(simulation.RunnerOptions{
			PriceFeed:   opts.PriceFeed,
			Concurrency: opts.Concurrency,
			Logger:      &logger,
		}),
		store:          opts.Store,
		riskFreeRate:   rate,
		initialCapital: capital,
		logger:         logger.With().Str("component", "verification").Logger(),
	}
}

// VerifyBacktest replays one stored backtest and compares it with the record.
func (v *ReplayVerifier) VerifyBacktest(ctx context.Context, userID, id string) (*VerificationResult, error) {
	stored, err := v.store.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrBacktestNotFound
		}
		return nil, err
	}
	return v.Verify(ctx, stored)
}

// Verify replays stored directly, without loading it from the store.
func (v *ReplayVerifier) Verify(ctx context.Context, stored *domain.BacktestResult) (*VerificationResult, error) {
	trades, perf, skipped, err := v.replay(ctx, stored)
	if err != nil {
		return nil, err
	}

	divergences := CompareTrades(stored.Trades, trades)
	divergences = append(divergences, CompareMetrics(stored.Results, perf)...)
	if !sameSymbols(stored.SkippedSymbols, skipped) {
		divergences = append(divergences, FieldDivergence{
			Field:    "SkippedSymbols",
			Expected: stored.SkippedSymbols,
			Actual:   skipped,
		})
	}

	result := &VerificationResult{
		BacktestID:     stored.ID,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredReturn:   stored.Results.TotalReturn,
		ReplayedReturn: perf.TotalReturn,
		StoredTrades:   len(stored.Trades),
		ReplayedTrades: len(trades),
	}

	event := v.logger.Debug()
	if !result.Match {
		event = v.logger.Warn()
	}
	event.Str("id", stored.ID).Int("divergences", len(divergences)).Msg("backtest verified")

	return result, nil
}

// VerifyAll replays the user's most recent backtests, newest first.
// A backtest that cannot be replayed is recorded as divergent.
func (v *ReplayVerifier) VerifyAll(ctx context.Context, userID string, limit int) (*VerificationReport, error) {
	if limit <= 0 {
		limit = DefaultVerifyLimit
	}

	results, _, err := v.store.ListByUser(ctx, userID, storage.Page{Limit: limit})
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalBacktests: len(results),
		Results:        make([]VerificationResult, 0, len(results)),
	}

	for _, stored := range results {
		result, err := v.Verify(ctx, stored)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			report.Results = append(report.Results, VerificationResult{
				BacktestID:   stored.ID,
				Match:        false,
				StoredReturn: stored.Results.TotalReturn,
				StoredTrades: len(stored.Trades),
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentBacktests++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedBacktests++
		} else {
			report.DivergentBacktests++
		}
	}

	return report, nil
}

// replay re-executes the stored strategy over the stored symbols and window.
func (v *ReplayVerifier) replay(ctx context.Context, stored *domain.BacktestResult) ([]domain.Trade, domain.PerformanceMetrics, []string, error) {
	strat, err := strategy.FromConfig(stored.Strategy, stored.Parameters)
	if err != nil {
		return nil, domain.PerformanceMetrics{}, nil, fmt.Errorf("rebuild strategy: %w", err)
	}

	sim := v.runner.Run(ctx, strat, stored.Symbols, stored.Timeframe.Start, stored.Timeframe.End)
	if err := ctx.Err(); err != nil {
		return nil, domain.PerformanceMetrics{}, nil, fmt.Errorf("replay interrupted: %w", err)
	}

	perf := metrics.Evaluate(sim.Trades, metrics.Options{
		RiskFreeRate:   v.riskFreeRate,
		InitialCapital: stored.Parameters.Float(orchestrator.ParamInitialCapital, v.initialCapital),
	})

	return sim.Trades, perf, sim.Skipped, nil
}

func sameSymbols(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
