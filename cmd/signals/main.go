// Package main generates signals for a set of symbols once and prints them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-signal-lab/internal/app"
	"market-signal-lab/internal/config"
	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/logger"
)

func main() {
	symbols := flag.String("symbols", "", "Comma-separated symbols (default: WATCHLIST or popular symbols)")
	outputJSON := flag.Bool("json", false, "Output signals as JSON")
	showStats := flag.Bool("stats", false, "Print stored signal statistics after generating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	list := config.SplitList(*symbols)
	if len(list) == 0 {
		list = cfg.Scheduler.Watchlist
	}
	if len(list) == 0 {
		list = domain.PopularSymbols
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wire application")
	}
	defer a.Close()

	out, err := a.SignalService.Generate(ctx, list)
	if err != nil {
		log.Fatal().Err(err).Msg("generate signals")
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
	} else {
		printSignals(out)
	}

	if *showStats {
		stats, err := a.SignalService.Stats(ctx, 0)
		if err != nil {
			log.Fatal().Err(err).Msg("signal stats")
		}
		printStats(stats)
	}
}

func printSignals(signals []*domain.Signal) {
	fmt.Println()
	fmt.Printf("=== %d Signals ===\n", len(signals))
	for _, s := range signals {
		fmt.Printf("%-5s %-7s %-14s strength %.3f  confidence %.2f  expires %s\n",
			s.Symbol, s.SignalType, s.Source, s.Strength, s.Confidence, s.Expiration.Format(time.RFC3339))
		fmt.Printf("      %s\n", s.Description)
	}
}

func printStats(stats *domain.SignalStats) {
	fmt.Println()
	fmt.Printf("=== Stats %s to %s ===\n", stats.Since.Format(time.DateOnly), stats.Until.Format(time.DateOnly))
	fmt.Printf("Total: %d\n", stats.TotalSignals)
	for _, t := range stats.ByType {
		fmt.Printf("  %-7s count %d  avg strength %.3f  avg confidence %.3f\n",
			t.SignalType, t.Count, t.AvgStrength, t.AvgConfidence)
	}
	for _, s := range stats.TopSymbols {
		fmt.Printf("  %-5s %d signals (%d bullish, %d bearish)\n", s.Symbol, s.SignalCount, s.BullishCount, s.BearishCount)
	}
}
