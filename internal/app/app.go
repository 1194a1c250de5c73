// Package app builds stores, feeds and services from configuration.
// Every command shares this wiring.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"market-signal-lab/internal/config"
	"market-signal-lab/internal/feed"
	"market-signal-lab/internal/feed/alpaca"
	"market-signal-lab/internal/feed/alphavantage"
	"market-signal-lab/internal/feed/finnhub"
	"market-signal-lab/internal/feed/newsapi"
	"market-signal-lab/internal/orchestrator"
	"market-signal-lab/internal/portfolio"
	"market-signal-lab/internal/publish"
	"market-signal-lab/internal/publish/kafka"
	"market-signal-lab/internal/sentiment"
	"market-signal-lab/internal/storage"
	chstore "market-signal-lab/internal/storage/clickhouse"
	"market-signal-lab/internal/storage/memory"
	"market-signal-lab/internal/storage/migrations"
	pgstore "market-signal-lab/internal/storage/postgres"
)

// App holds the wired components. Close releases every connection.
type App struct {
	Config *config.AppConfig

	Backtests  storage.BacktestStore
	Signals    storage.SignalStore
	News       storage.NewsStore
	Portfolios storage.PortfolioStore

	PriceFeed feed.PriceFeed
	NewsFeed  feed.NewsFeed
	Publisher publish.SignalPublisher

	Backtester       *orchestrator.Backtester
	SignalService    *orchestrator.SignalService
	PortfolioService *portfolio.Service

	analyzer *sentiment.Analyzer
	logger   zerolog.Logger
	closers  []func()
}

// New wires the application. On error, everything opened so far is closed.
func New(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		analyzer: sentiment.NewAnalyzer(),
		logger:   logger,
	}

	for _, open := range []func() error{
		func() error { return a.openStores(ctx) },
		func() error { return a.openPriceFeed(ctx) },
		a.openNewsFeed,
		a.openPublisher,
	} {
		if err := open(); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Backtester = orchestrator.NewBacktester(orchestrator.BacktesterOptions{
		PriceFeed:      a.PriceFeed,
		Store:          a.Backtests,
		Concurrency:    cfg.Engine.BacktestConcurrency,
		RiskFreeRate:   cfg.Engine.RiskFreeRate,
		InitialCapital: cfg.Engine.InitialCapital,
		Logger:         &a.logger,
	})
	a.SignalService = orchestrator.NewSignalService(orchestrator.SignalServiceOptions{
		PriceFeed:    a.PriceFeed,
		NewsFeed:     a.NewsFeed,
		Store:        a.Signals,
		Publisher:    a.Publisher,
		LookbackDays: cfg.Engine.SignalLookbackDays,
		Concurrency:  cfg.Engine.BacktestConcurrency,
		Logger:       &a.logger,
	})
	a.PortfolioService = portfolio.NewService(portfolio.Options{
		Store:     a.Portfolios,
		PriceFeed: a.PriceFeed,
		Logger:    &a.logger,
	})

	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *App) openStores(ctx context.Context) error {
	switch a.Config.Storage.Backend {
	case config.StoragePostgres:
		pool, err := pgstore.NewPool(ctx, a.Config.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		a.onClose(pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}

		a.Backtests = pgstore.NewBacktestStore(pool)
		a.Signals = pgstore.NewSignalStore(pool)
		a.News = pgstore.NewNewsStore(pool)
		a.Portfolios = pgstore.NewPortfolioStore(pool)
		a.logger.Info().Str("backend", "postgres").Msg("stores ready")
	default:
		a.Backtests = memory.NewBacktestStore()
		a.Signals = memory.NewSignalStore()
		a.News = memory.NewNewsStore()
		a.Portfolios = memory.NewPortfolioStore()
		a.logger.Info().Str("backend", "memory").Msg("stores ready")
	}
	return nil
}

func (a *App) openPriceFeed(ctx context.Context) error {
	cfg := a.Config.Feed
	switch cfg.Price {
	case config.FeedAlphaVantage:
		client, err := alphavantage.New(cfg.AlphaVantageURL, cfg.AlphaVantageKey)
		if err != nil {
			return fmt.Errorf("alpha vantage client: %w", err)
		}
		a.PriceFeed = client
	case config.FeedAlpaca:
		client, err := alpaca.New(cfg.AlpacaKey, cfg.AlpacaSecret)
		if err != nil {
			return fmt.Errorf("alpaca client: %w", err)
		}
		a.PriceFeed = client
	case config.FeedClickhouse:
		conn, err := chstore.NewConn(ctx, a.Config.Storage.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		a.onClose(func() { _ = conn.Close() })
		a.PriceFeed = feed.NewStorePriceFeed(chstore.NewPriceBarStore(conn))
	default:
		a.PriceFeed = feed.NewSyntheticPriceFeed()
	}
	a.logger.Info().Str("feed", cfg.Price).Msg("price feed ready")
	return nil
}

// openNewsFeed prefers NewsAPI, then the Finnhub-fed news store, then sample news.
func (a *App) openNewsFeed() error {
	cfg := a.Config.Feed
	switch {
	case cfg.NewsAPIKey != "":
		client, err := newsapi.New(cfg.NewsAPIURL, cfg.NewsAPIKey, a.analyzer)
		if err != nil {
			return fmt.Errorf("news api client: %w", err)
		}
		a.NewsFeed = client
		a.logger.Info().Str("feed", "newsapi").Msg("news feed ready")
	case cfg.FinnhubToken != "":
		a.NewsFeed = feed.NewStoreNewsFeed(a.News)
		a.logger.Info().Str("feed", "finnhub").Msg("news feed ready")
	default:
		a.NewsFeed = feed.NewSampleNewsFeed(nil)
		a.logger.Info().Str("feed", "sample").Msg("news feed ready")
	}
	return nil
}

func (a *App) openPublisher() error {
	if len(a.Config.Kafka.Brokers) == 0 {
		return nil
	}
	pub, err := kafka.NewPublisher(a.Config.Kafka.Brokers, a.Config.Kafka.SignalTopic)
	if err != nil {
		return fmt.Errorf("kafka publisher: %w", err)
	}
	a.onClose(func() { _ = pub.Close() })
	a.Publisher = pub
	a.logger.Info().Strs("brokers", a.Config.Kafka.Brokers).Str("topic", a.Config.Kafka.SignalTopic).Msg("signal publisher ready")
	return nil
}

// NewsStream returns the Finnhub stream feeding the news store, or nil
// when no token is configured.
func (a *App) NewsStream() (*finnhub.Stream, error) {
	if a.Config.Feed.FinnhubToken == "" {
		return nil, nil
	}
	return finnhub.NewStream(finnhub.StreamOptions{
		Endpoint: a.Config.Feed.FinnhubStreamURL,
		Token:    a.Config.Feed.FinnhubToken,
		Store:    a.News,
		Analyzer: a.analyzer,
		Logger:   &a.logger,
	})
}
