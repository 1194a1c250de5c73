// Package main provides the unified server that runs all components together:
// - HTTP API: signals, backtests, /health, /metrics
// - Scheduler: periodic watchlist signal generation
// - News stream (optional): Finnhub news into the news store
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"market-signal-lab/internal/app"
	"market-signal-lab/internal/config"
	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/logger"
	"market-signal-lab/internal/scheduler"
	httptransport "market-signal-lab/internal/transport/http"
)

const shutdownTimeout = 30 * time.Second

// Server holds all components of the unified service.
type Server struct {
	app       *app.App
	http      *http.Server
	scheduler *scheduler.Scheduler
	watchlist []string
	logger    zerolog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wire application")
	}
	defer a.Close()

	watchlist := cfg.Scheduler.Watchlist
	if len(watchlist) == 0 {
		watchlist = domain.PopularSymbols
	}

	sched, err := scheduler.New(scheduler.Options{
		Generator: a.SignalService,
		Watchlist: watchlist,
		Interval:  cfg.Scheduler.Interval,
		Logger:    &log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("init scheduler")
	}

	server := &Server{
		app: a,
		http: &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           httptransport.New(a.SignalService, a.Backtester, a.PortfolioService, &log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		scheduler: sched,
		watchlist: watchlist,
		logger:    log,
	}

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.Warn().Str("signal", sig.String()).Msg("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			log.Warn().Dur("timeout", shutdownTimeout).Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = server.Run(ctx)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("shutdown complete")
}

// Run starts every component and blocks until ctx is done or one fails.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	// HTTP API
	go func() {
		s.logger.Info().Str("addr", s.http.Addr).Msg("server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Optional live news stream
	stream, err := s.app.NewsStream()
	if err != nil {
		return fmt.Errorf("news stream: %w", err)
	}
	if stream != nil {
		go func() {
			if err := stream.Run(ctx, s.watchlist); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("news stream: %w", err)
			}
		}()
	}

	s.scheduler.Start(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("http shutdown error")
	}
	if err := s.scheduler.Shutdown(); err != nil {
		s.logger.Error().Err(err).Msg("scheduler shutdown error")
	}

	return runErr
}
