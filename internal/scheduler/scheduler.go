// Package scheduler periodically generates signals for a watchlist.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"market-signal-lab/internal/domain"
)

// DefaultInterval is used when Options.Interval is not positive.
const DefaultInterval = time.Hour

// SignalGenerator produces signals for symbols.
type SignalGenerator interface {
	Generate(ctx context.Context, symbols []string) ([]*domain.Signal, error)
}

// Options contains configuration for creating a Scheduler.
type Options struct {
	// Required
	Generator SignalGenerator

	// Optional
	Watchlist []string // defaults to domain.PopularSymbols
	Interval  time.Duration
	Logger    *zerolog.Logger
}

// Scheduler runs watchlist signal generation on a fixed interval.
type Scheduler struct {
	cron      gocron.Scheduler
	generator SignalGenerator
	watchlist []string
	interval  time.Duration
	logger    zerolog.Logger

	initial sync.WaitGroup
}

// New creates a Scheduler. Call Start to begin running jobs.
func New(opts Options) (*Scheduler, error) {
	if opts.Generator == nil {
		return nil, fmt.Errorf("scheduler: generator is required")
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	s := &Scheduler{
		cron:      cron,
		generator: opts.Generator,
		watchlist: opts.Watchlist,
		interval:  opts.Interval,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
	if len(s.watchlist) == 0 {
		s.watchlist = domain.PopularSymbols
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}

	_, err = cron.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func(ctx context.Context) {
			s.run(ctx, "scheduled")
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = cron.Shutdown()
		return nil, fmt.Errorf("schedule signal job: %w", err)
	}

	return s, nil
}

// Start starts the interval job and triggers one immediate run in the background.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info().
		Dur("interval", s.interval).
		Int("symbols", len(s.watchlist)).
		Msg("scheduler started")

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.run(ctx, "initial")
	}()
}

// RunOnce generates signals for the watchlist and returns how many were produced.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	out, err := s.generator.Generate(ctx, s.watchlist)
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	err := s.cron.Shutdown()
	s.initial.Wait()
	return err
}

func (s *Scheduler) run(ctx context.Context, trigger string) {
	s.logger.Info().Str("trigger", trigger).Msg("signal generation started")
	count, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("trigger", trigger).Msg("signal generation failed")
		return
	}
	s.logger.Info().Str("trigger", trigger).Int("signals", count).Msg("signal generation completed")
}
