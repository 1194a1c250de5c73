// Package main ingests provider data.
//
//	backfill: daily bars from the configured provider into ClickHouse
//	live:     Finnhub news stream into the configured news store
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"market-signal-lab/internal/app"
	"market-signal-lab/internal/config"
	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/ingestion"
	"market-signal-lab/internal/logger"
	"market-signal-lab/internal/observability"
	chstore "market-signal-lab/internal/storage/clickhouse"
	"market-signal-lab/internal/storage/migrations"
)

func main() {
	mode := flag.String("mode", "backfill", "Ingestion mode: backfill or live")
	symbols := flag.String("symbols", "", "Comma-separated symbols (default: WATCHLIST or popular symbols)")
	fromDate := flag.String("from", "", "Backfill start date YYYY-MM-DD (default: 100 days ago)")
	toDate := flag.String("to", "", "Backfill end date YYYY-MM-DD (default: today)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	watchlist := config.SplitList(*symbols)
	if len(watchlist) == 0 {
		watchlist = cfg.Scheduler.Watchlist
	}
	if len(watchlist) == 0 {
		watchlist = domain.PopularSymbols
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			log.Info().Str("addr", *metricsAddr).Msg("metrics server listening")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "backfill":
		err = runBackfill(ctx, log, cfg, watchlist, *fromDate, *toDate)
	case "live":
		err = runLive(ctx, log, cfg, watchlist)
	default:
		log.Fatal().Str("mode", *mode).Msg("unknown mode")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Str("mode", *mode).Msg("ingestion failed")
	}
	log.Info().Msg("ingestion stopped")
}

func runBackfill(ctx context.Context, log zerolog.Logger, cfg *config.AppConfig, symbols []string, fromDate, toDate string) error {
	if cfg.Storage.ClickhouseDSN == "" {
		return errors.New("CLICKHOUSE_DSN is required for backfill")
	}
	if cfg.Feed.Price == config.FeedClickhouse {
		return errors.New("PRICE_FEED must name a provider, not clickhouse, for backfill")
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -cfg.Engine.SignalLookbackDays)
	var err error
	if fromDate != "" {
		if from, err = time.Parse(time.DateOnly, fromDate); err != nil {
			return err
		}
	}
	if toDate != "" {
		if to, err = time.Parse(time.DateOnly, toDate); err != nil {
			return err
		}
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	backfiller := ingestion.NewBackfiller(ingestion.BackfillOptions{
		Source: a.PriceFeed,
		Store:  chstore.NewPriceBarStore(conn),
		Logger: &log,
	})

	log.Info().
		Str("feed", cfg.Feed.Price).
		Int("symbols", len(symbols)).
		Time("from", from).
		Time("to", to).
		Msg("backfill started")

	res, err := backfiller.BackfillRange(ctx, symbols, from, to)
	if err != nil {
		return err
	}

	log.Info().
		Int("ingested", res.BarsIngested).
		Int("skipped", res.DuplicatesSkipped).
		Strs("failed", res.SymbolsFailed).
		Dur("duration", res.Duration).
		Msg("backfill completed")
	return nil
}

func runLive(ctx context.Context, log zerolog.Logger, cfg *config.AppConfig, symbols []string) error {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	stream, err := a.NewsStream()
	if err != nil {
		return err
	}
	if stream == nil {
		return errors.New("FINNHUB_TOKEN is required for live ingestion")
	}

	log.Info().Strs("symbols", symbols).Msg("news stream started")
	return stream.Run(ctx, symbols)
}
