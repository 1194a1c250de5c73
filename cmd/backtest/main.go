// Package main runs one backtest from a YAML plan or flags and prints the result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"market-signal-lab/internal/app"
	"market-signal-lab/internal/config"
	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/logger"
	"market-signal-lab/internal/orchestrator"
	"market-signal-lab/internal/reporting"
)

func main() {
	// Plan file or inline flags
	planPath := flag.String("plan", "", "YAML backtest plan (overrides the inline flags below)")
	strategyName := flag.String("strategy", string(domain.StrategyMovingAverageCrossover), "Strategy name")
	symbols := flag.String("symbols", "AAPL", "Comma-separated symbols")
	startDate := flag.String("start", "", "Start date YYYY-MM-DD (required without --plan)")
	endDate := flag.String("end", "", "End date YYYY-MM-DD (required without --plan)")
	params := flag.String("params", "", "Strategy parameters as key=value pairs, comma-separated")
	userID := flag.String("user", "cli", "User id owning the result")
	name := flag.String("name", "", "Result name")

	// Output
	outputJSON := flag.Bool("json", false, "Output the result as JSON")
	outputDir := flag.String("output-dir", "", "Write report.md and trades.csv to this directory")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	var req orchestrator.BacktestRequest
	if *planPath != "" {
		req, err = config.LoadPlan(*planPath)
		if err != nil {
			log.Fatal().Err(err).Str("plan", *planPath).Msg("load plan")
		}
	} else {
		req, err = requestFromFlags(*strategyName, *symbols, *startDate, *endDate, *params, *userID, *name)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid flags")
		}
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("wire application")
	}
	defer a.Close()

	result, err := a.Backtester.Run(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}

	report := reporting.NewGenerator(a.Backtests).FromResult(result)

	if *outputDir != "" {
		if err := writeReport(*outputDir, report); err != nil {
			log.Fatal().Err(err).Msg("write report")
		}
		log.Info().Str("dir", *outputDir).Msg("report written")
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(result)
	}
}

func requestFromFlags(strategyName, symbols, start, end, params, userID, name string) (orchestrator.BacktestRequest, error) {
	if start == "" || end == "" {
		return orchestrator.BacktestRequest{}, fmt.Errorf("--start and --end are required without --plan")
	}
	startTime, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return orchestrator.BacktestRequest{}, fmt.Errorf("--start: %w", err)
	}
	endTime, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return orchestrator.BacktestRequest{}, fmt.Errorf("--end: %w", err)
	}
	parameters, err := parseParams(params)
	if err != nil {
		return orchestrator.BacktestRequest{}, err
	}

	return orchestrator.BacktestRequest{
		Strategy:   strategyName,
		Parameters: parameters,
		Symbols:    config.SplitList(symbols),
		Start:      startTime,
		End:        endTime,
		UserID:     userID,
		Name:       name,
	}, nil
}

// parseParams parses "shortPeriod=10,longPeriod=30".
func parseParams(s string) (domain.Parameters, error) {
	params := domain.Parameters{}
	for _, pair := range config.SplitList(s) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("--params: %q is not key=value", pair)
		}
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(value), "%g", &v); err != nil {
			return nil, fmt.Errorf("--params: %s: %w", key, err)
		}
		params[strings.TrimSpace(key)] = v
	}
	return params, nil
}

func writeReport(dir string, r *reporting.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(reporting.RenderMarkdown(r)), 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "trades.csv"), []byte(reporting.RenderTradesCSV(r.Trades)), 0o644)
}

// printResult outputs a human-readable result.
func printResult(r *domain.BacktestResult) {
	m := r.Results

	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("ID:                 %s\n", r.ID)
	fmt.Printf("Name:               %s\n", r.Name)
	fmt.Printf("Strategy:           %s\n", r.Strategy)
	fmt.Printf("Period:             %s to %s\n", r.Timeframe.Start.Format(time.DateOnly), r.Timeframe.End.Format(time.DateOnly))
	fmt.Printf("Symbols:            %s\n", strings.Join(r.Symbols, ", "))
	if len(r.SkippedSymbols) > 0 {
		fmt.Printf("Skipped:            %s\n", strings.Join(r.SkippedSymbols, ", "))
	}
	fmt.Println()

	fmt.Println("Performance:")
	fmt.Printf("  Total Return:     %.2f (%.2f%%)\n", m.TotalReturn, m.ReturnPercent)
	fmt.Printf("  Sharpe Ratio:     %.4f\n", m.SharpeRatio)
	fmt.Printf("  Max Drawdown:     %.2f\n", m.MaxDrawdown)
	fmt.Printf("  Win Rate:         %.2f%%\n", m.WinRate*100)
	fmt.Printf("  Trades:           %d (%d profitable)\n", m.TotalTrades, m.ProfitableTrades)
	fmt.Println()

	if len(r.Trades) == 0 {
		return
	}
	fmt.Println("Trades:")
	for _, t := range r.Trades {
		fmt.Printf("  %-5s %s -> %s  %.2f -> %.2f  pnl %.2f\n",
			t.Symbol, t.EntryTime.Format(time.DateOnly), t.ExitTime.Format(time.DateOnly),
			t.EntryPrice, t.ExitPrice, t.PnL)
	}
}
