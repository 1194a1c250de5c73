package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/feed"
	"market-signal-lab/internal/metrics"
	"market-signal-lab/internal/observability"
	"market-signal-lab/internal/simulation"
	"market-signal-lab/internal/storage"
	"market-signal-lab/internal/strategy"
)

// Backtest history defaults.
const (
	DefaultListLimit     = 10
	SummaryWindow        = 50
	ParamInitialCapital  = "initialCapital"
	backtestNameTemplate = "%s Backtest - %d/%d/%d"
)

// BacktestRequest describes one backtest run.
type BacktestRequest struct {
	Strategy   string            `json:"strategy" yaml:"strategy"`
	Parameters domain.Parameters `json:"parameters" yaml:"parameters"`
	Symbols    []string          `json:"symbols" yaml:"symbols"`
	Start      time.Time         `json:"startDate" yaml:"-"`
	End        time.Time         `json:"endDate" yaml:"-"`
	UserID     string            `json:"userId" yaml:"user_id"`
	Name       string            `json:"name,omitempty" yaml:"name"`
}

// Backtester runs strategies over historical data and persists the results.
type Backtester struct {
	runner         *simulation.Runner
	store          storage.BacktestStore
	riskFreeRate   float64
	initialCapital float64
	now            func() time.Time
	newID          func() string
	logger         zerolog.Logger
}

// BacktesterOptions contains configuration for creating a Backtester.
type BacktesterOptions struct {
	// Required
	PriceFeed feed.PriceFeed
	Store     storage.BacktestStore

	// Optional
	Concurrency    int
	RiskFreeRate   float64
	InitialCapital float64
	Now            func() time.Time
	NewID          func() string
	Logger         *zerolog.Logger
}

// NewBacktester creates a Backtester.
func NewBacktester(opts BacktesterOptions) *Backtester {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	b := &Backtester{
		runner: simulation.NewRunner(simulation.RunnerOptions{
			PriceFeed:   opts.PriceFeed,
			Concurrency: opts.Concurrency,
			Logger:      &logger,
		}),
		store:          opts.Store,
		riskFreeRate:   opts.RiskFreeRate,
		initialCapital: opts.InitialCapital,
		now:            opts.Now,
		newID:          opts.NewID,
		logger:         logger.With().Str("component", "backtester").Logger(),
	}
	if b.riskFreeRate == 0 {
		b.riskFreeRate = domain.DefaultRiskFreeRate
	}
	if b.initialCapital <= 0 {
		b.initialCapital = domain.DefaultInitialCapital
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.newID == nil {
		b.newID = newUUID
	}
	return b
}

// Run validates req, simulates it across symbols, evaluates the trades and
// persists the result. A persistence failure fails the run.
func (b *Backtester) Run(ctx context.Context, req BacktestRequest) (*domain.BacktestResult, error) {
	began := time.Now()

	strat, name, symbols, err := b.validate(req)
	if err != nil {
		observability.RecordBacktest(strings.ToUpper(req.Strategy), "invalid", time.Since(began).Seconds())
		return nil, err
	}

	b.logger.Info().
		Str("strategy", string(name)).
		Str("user_id", req.UserID).
		Int("symbols", len(symbols)).
		Msg("backtest started")

	sim := b.runner.Run(ctx, strat, symbols, req.Start, req.End)

	params := req.Parameters.Clone()
	perf := metrics.Evaluate(sim.Trades, metrics.Options{
		RiskFreeRate:   b.riskFreeRate,
		InitialCapital: params.Float(ParamInitialCapital, b.initialCapital),
	})

	createdAt := b.now().UTC()
	displayName := strings.TrimSpace(req.Name)
	if displayName == "" {
		displayName = fmt.Sprintf(backtestNameTemplate, name, int(createdAt.Month()), createdAt.Day(), createdAt.Year())
	}

	trades := sim.Trades
	if trades == nil {
		trades = []domain.Trade{}
	}
	result := &domain.BacktestResult{
		ID:             b.newID(),
		UserID:         req.UserID,
		Name:           displayName,
		Strategy:       name,
		Parameters:     params,
		Timeframe:      domain.Timeframe{Start: req.Start, End: req.End},
		Symbols:        symbols,
		Results:        perf,
		Trades:         trades,
		SkippedSymbols: sim.Skipped,
		CreatedAt:      createdAt,
	}

	if err := b.store.Insert(ctx, result); err != nil {
		observability.RecordBacktest(string(name), "error", time.Since(began).Seconds())
		return nil, fmt.Errorf("persist backtest result: %w", err)
	}

	observability.RecordBacktest(string(name), "success", time.Since(began).Seconds())
	b.logger.Info().
		Str("id", result.ID).
		Int("trades", perf.TotalTrades).
		Float64("total_return", perf.TotalReturn).
		Strs("skipped", sim.Skipped).
		Msg("backtest completed")

	return result, nil
}

// validate checks the request and builds its strategy.
func (b *Backtester) validate(req BacktestRequest) (strategy.Strategy, domain.StrategyName, []string, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, "", nil, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}

	name := domain.StrategyName(strings.ToUpper(strings.TrimSpace(req.Strategy)))
	strat, err := strategy.FromConfig(name, req.Parameters)
	if err != nil {
		return nil, "", nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	symbols := normalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return nil, "", nil, fmt.Errorf("%w: at least one symbol is required", ErrInvalidRequest)
	}
	for _, s := range symbols {
		if !domain.ValidSymbol(s) {
			return nil, "", nil, fmt.Errorf("%w: invalid symbol %q", ErrInvalidRequest, s)
		}
	}

	if req.Start.IsZero() || req.End.IsZero() {
		return nil, "", nil, fmt.Errorf("%w: start and end dates are required", ErrInvalidRequest)
	}
	if req.Start.After(req.End) {
		return nil, "", nil, fmt.Errorf("%w: start date %s is after end date %s",
			ErrInvalidRequest, req.Start.Format(time.DateOnly), req.End.Format(time.DateOnly))
	}

	return strat, name, symbols, nil
}

// List returns one page (1-based) of a user's results, newest first, and
// the user's total count. Non-positive values select page 1 and DefaultListLimit;
// limits above storage.MaxPageLimit are capped.
func (b *Backtester) List(ctx context.Context, userID string, page, limit int) ([]*domain.BacktestResult, int, error) {
	return b.store.ListByUser(ctx, userID, storage.NewPage(page, limit, DefaultListLimit))
}

// Get returns one of the user's results. Returns storage.ErrNotFound
// when the result does not exist or belongs to another user.
func (b *Backtester) Get(ctx context.Context, userID, id string) (*domain.BacktestResult, error) {
	return b.store.GetByID(ctx, userID, id)
}

// Delete removes one of the user's results.
func (b *Backtester) Delete(ctx context.Context, userID, id string) error {
	if err := b.store.Delete(ctx, userID, id); err != nil {
		return err
	}
	b.logger.Info().Str("id", id).Str("user_id", userID).Msg("backtest deleted")
	return nil
}

// Summary aggregates the user's latest SummaryWindow results.
func (b *Backtester) Summary(ctx context.Context, userID string) (domain.BacktestSummary, error) {
	results, _, err := b.store.ListByUser(ctx, userID, storage.Page{Limit: SummaryWindow})
	if err != nil {
		return domain.BacktestSummary{}, err
	}
	return metrics.Summarize(results), nil
}
