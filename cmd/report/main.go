// Package main renders reports for stored backtests.
// With --id it writes one backtest's report; otherwise a user's history.
// With --verify the backtests are replayed first and any divergence exits with status 2.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"market-signal-lab/internal/app"
	"market-signal-lab/internal/config"
	"market-signal-lab/internal/logger"
	"market-signal-lab/internal/reporting"
	"market-signal-lab/internal/verification"
)

func main() {
	outputDir := flag.String("output-dir", "reports", "Output directory for generated files")
	userID := flag.String("user", "cli", "User id owning the backtests")
	id := flag.String("id", "", "Backtest id (omit for the history report)")
	limit := flag.Int("limit", 50, "Number of recent backtests in the history report")
	verify := flag.Bool("verify", false, "Replay the backtests against the price feed before reporting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.Storage.Backend != config.StoragePostgres {
		fmt.Fprintln(os.Stderr, "Error: reports read stored backtests; set STORAGE_BACKEND=postgres and POSTGRES_DSN")
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wire application")
	}
	defer a.Close()

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create output directory")
	}

	if *verify {
		verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
			Store:          a.Backtests,
			PriceFeed:      a.PriceFeed,
			RiskFreeRate:   cfg.Engine.RiskFreeRate,
			InitialCapital: cfg.Engine.InitialCapital,
			Concurrency:    cfg.Engine.BacktestConcurrency,
			Logger:         &log,
		})
		if !runVerification(ctx, verifier, *userID, *id, *limit) {
			os.Exit(2)
		}
	}

	gen := reporting.NewGenerator(a.Backtests)

	if *id != "" {
		report, err := gen.Generate(ctx, *userID, *id)
		if err != nil {
			log.Fatal().Err(err).Str("id", *id).Msg("generate report")
		}
		files := map[string]string{
			"report_" + *id + ".md":   reporting.RenderMarkdown(report),
			"trades_" + *id + ".csv":  reporting.RenderTradesCSV(report.Trades),
			"symbols_" + *id + ".csv": reporting.RenderSymbolsCSV(report.Symbols),
		}
		writeFiles(*outputDir, files)
		return
	}

	history, err := gen.GenerateHistory(ctx, *userID, *limit)
	if err != nil {
		log.Fatal().Err(err).Str("user_id", *userID).Msg("generate history")
	}
	writeFiles(*outputDir, map[string]string{
		"history_" + *userID + ".md": reporting.RenderHistoryMarkdown(history),
	})
}

func writeFiles(dir string, files map[string]string) {
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Generated: %s\n", path)
	}
}

// runVerification prints divergences and reports whether every backtest matched.
func runVerification(ctx context.Context, v *verification.ReplayVerifier, userID, id string, limit int) bool {
	var results []verification.VerificationResult
	if id != "" {
		result, err := v.VerifyBacktest(ctx, userID, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error verifying %s: %v\n", id, err)
			return false
		}
		results = append(results, *result)
	} else {
		report, err := v.VerifyAll(ctx, userID, limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error verifying backtests: %v\n", err)
			return false
		}
		results = report.Results
	}

	ok := true
	for _, r := range results {
		if r.Match {
			fmt.Printf("Verified: %s (%d trades)\n", r.BacktestID, r.ReplayedTrades)
			continue
		}
		ok = false
		fmt.Printf("DIVERGED: %s\n", r.BacktestID)
		for _, d := range r.Divergences {
			fmt.Printf("  %s: stored=%v replayed=%v\n", d.Field, d.Expected, d.Actual)
		}
	}
	return ok
}
