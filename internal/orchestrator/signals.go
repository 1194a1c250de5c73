package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/feed"
	"market-signal-lab/internal/observability"
	"market-signal-lab/internal/publish"
	"market-signal-lab/internal/signals"
	"market-signal-lab/internal/storage"
)

// Signal service defaults.
const (
	DefaultLookbackDays     = 100
	DefaultSignalPageSize   = 50
	DefaultRecentLimit      = 50
	DefaultStatsDays        = 7
	DefaultTopSymbols       = 10
	defaultSignalWorkers    = 4
	signalSkipNoPriceData   = "no_price_data"
	signalSkipPriceFetchErr = "fetch_error"
)

// SignalService generates, stores and publishes signals for symbols.
type SignalService struct {
	priceFeed   feed.PriceFeed
	newsFeed    feed.NewsFeed
	store       storage.SignalStore
	publisher   publish.SignalPublisher
	scorer      *signals.Scorer
	lookback    time.Duration
	concurrency int
	now         func() time.Time
	newID       func() string
	logger      zerolog.Logger
}

// SignalServiceOptions contains configuration for creating a SignalService.
type SignalServiceOptions struct {
	// Required
	PriceFeed feed.PriceFeed
	NewsFeed  feed.NewsFeed
	Store     storage.SignalStore

	// Optional
	Publisher    publish.SignalPublisher
	LookbackDays int
	Concurrency  int
	Now          func() time.Time
	NewID        func() string
	Logger       *zerolog.Logger
}

// NewSignalService creates a SignalService.
func NewSignalService(opts SignalServiceOptions) *SignalService {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lookbackDays := opts.LookbackDays
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultSignalWorkers
	}
	newID := opts.NewID
	if newID == nil {
		newID = newUUID
	}

	return &SignalService{
		priceFeed:   opts.PriceFeed,
		newsFeed:    opts.NewsFeed,
		store:       opts.Store,
		publisher:   opts.Publisher,
		scorer:      signals.NewScorer(now),
		lookback:    time.Duration(lookbackDays) * 24 * time.Hour,
		concurrency: concurrency,
		now:         now,
		newID:       newID,
		logger:      logger.With().Str("component", "signals").Logger(),
	}
}

// Generate scores each valid symbol, persists every signal and then publishes them.
// Invalid symbols are dropped; symbols without price data are skipped.
// Output follows input symbol order.
func (s *SignalService) Generate(ctx context.Context, symbols []string) ([]*domain.Signal, error) {
	valid := validSymbols(normalizeSymbols(symbols))
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no valid symbols provided", ErrInvalidRequest)
	}

	perSymbol := make([][]domain.Signal, len(valid))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for i, symbol := range valid {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			perSymbol[i] = s.scoreSymbol(ctx, symbol)
		}(i, symbol)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		observability.RecordSignalRun("error", 0)
		return nil, err
	}

	var out []*domain.Signal
	for _, group := range perSymbol {
		for i := range group {
			sig := group[i]
			sig.ID = s.newID()
			out = append(out, &sig)
		}
	}

	if err := s.store.InsertBulk(ctx, out); err != nil {
		observability.RecordSignalRun("error", 0)
		return nil, fmt.Errorf("persist signals: %w", err)
	}

	for _, sig := range out {
		observability.RecordSignal(string(sig.Source), string(sig.SignalType))
	}
	s.publishAll(ctx, out)

	observability.RecordSignalRun("success", float64(s.now().Unix()))
	s.logger.Info().
		Int("symbols", len(valid)).
		Int("signals", len(out)).
		Msg("signals generated")

	if out == nil {
		out = []*domain.Signal{}
	}
	return out, nil
}

// scoreSymbol fetches one symbol's data and runs the scorer.
func (s *SignalService) scoreSymbol(ctx context.Context, symbol string) []domain.Signal {
	now := s.now()

	bars, err := s.priceFeed.FetchBars(ctx, symbol, now.Add(-s.lookback), now)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("price fetch failed, skipping symbol")
		observability.RecordSymbolSkipped("signals", signalSkipPriceFetchErr)
		return nil
	}
	if len(bars) == 0 {
		s.logger.Warn().Str("symbol", symbol).Msg("no price data, skipping symbol")
		observability.RecordSymbolSkipped("signals", signalSkipNoPriceData)
		return nil
	}

	news, err := s.newsFeed.FetchNews(ctx, symbol, now.Add(-signals.SentimentWindow))
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("news fetch failed, scoring without news")
		news = nil
	}

	return s.scorer.Score(symbol, bars, news)
}

// publishAll delivers signals to the publisher. Failures are logged, not returned.
func (s *SignalService) publishAll(ctx context.Context, out []*domain.Signal) {
	if s.publisher == nil {
		return
	}
	for _, sig := range out {
		if err := s.publisher.Publish(ctx, sig); err != nil {
			observability.RecordSignalPublished("error")
			s.logger.Error().Err(err).Str("id", sig.ID).Str("symbol", sig.Symbol).Msg("publish signal failed")
			continue
		}
		observability.RecordSignalPublished("success")
	}
}

// SignalQuery filters and paginates stored signals. Page is 1-based.
type SignalQuery struct {
	Symbol     string
	SignalType string
	Source     string
	Page       int
	Limit      int
}

// SignalPage is one page of a signal query.
type SignalPage struct {
	Signals []*domain.Signal `json:"data"`
	Page    int              `json:"page"`
	Limit   int              `json:"limit"`
	Total   int              `json:"total"`
	Pages   int              `json:"pages"`
}

// Query returns stored signals matching q, newest first.
func (s *SignalService) Query(ctx context.Context, q SignalQuery) (*SignalPage, error) {
	page := storage.NewPage(q.Page, q.Limit, DefaultSignalPageSize)
	q.Limit = page.Limit
	if q.Page <= 0 {
		q.Page = 1
	}

	filter := storage.SignalFilter{Symbol: strings.ToUpper(strings.TrimSpace(q.Symbol))}
	if q.SignalType != "" {
		t := domain.SignalType(strings.ToUpper(q.SignalType))
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown signal type %q", ErrInvalidRequest, q.SignalType)
		}
		filter.SignalType = t
	}
	if q.Source != "" {
		src := domain.SignalSource(strings.ToUpper(q.Source))
		if !src.Valid() {
			return nil, fmt.Errorf("%w: unknown signal source %q", ErrInvalidRequest, q.Source)
		}
		filter.Source = src
	}

	found, total, err := s.store.Query(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	if found == nil {
		found = []*domain.Signal{}
	}

	return &SignalPage{
		Signals: found,
		Page:    q.Page,
		Limit:   q.Limit,
		Total:   total,
		Pages:   (total + q.Limit - 1) / q.Limit,
	}, nil
}

// Recent returns the newest signals for a symbol.
func (s *SignalService) Recent(ctx context.Context, symbol string, limit int) ([]*domain.Signal, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	page, err := s.Query(ctx, SignalQuery{Symbol: symbol, Limit: limit})
	if err != nil {
		return nil, err
	}
	return page.Signals, nil
}

// Get returns a stored signal by id.
func (s *SignalService) Get(ctx context.Context, id string) (*domain.Signal, error) {
	return s.store.GetByID(ctx, id)
}

// Delete removes a stored signal.
func (s *SignalService) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Stats summarizes signals generated over the last days (default 7).
func (s *SignalService) Stats(ctx context.Context, days int) (*domain.SignalStats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	until := s.now().UTC()
	since := until.Add(-time.Duration(days) * 24 * time.Hour)

	stats, err := s.store.Stats(ctx, since, DefaultTopSymbols)
	if err != nil {
		return nil, err
	}
	stats.Since = since
	stats.Until = until
	return stats, nil
}
