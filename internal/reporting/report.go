package reporting

import (
	"time"

	"market-signal-lab/internal/domain"
)

// Report describes one backtest result.
type Report struct {
	GeneratedAt time.Time

	// Run metadata
	ID         string
	Name       string
	Strategy   domain.StrategyName
	Parameters domain.Parameters
	Timeframe  domain.Timeframe
	CreatedAt  time.Time

	Metrics domain.PerformanceMetrics

	// Per-symbol breakdown (sorted by symbol)
	Symbols []SymbolRow

	// Symbols with no data or a failed fetch
	Skipped []string

	// Trades in ledger order
	Trades []domain.Trade
}

// SymbolRow aggregates the trades of one symbol.
type SymbolRow struct {
	Symbol           string
	Trades           int
	ProfitableTrades int
	WinRate          float64 // percent
	TotalPnL         float64
	BestTrade        float64
	WorstTrade       float64
}

// HistoryReport summarizes a user's recent backtests.
type HistoryReport struct {
	GeneratedAt time.Time
	UserID      string
	Summary     domain.BacktestSummary
	Rows        []HistoryRow // newest first
}

// HistoryRow is one backtest in a history report.
type HistoryRow struct {
	ID            string
	Name          string
	Strategy      domain.StrategyName
	Symbols       []string
	TotalTrades   int
	TotalReturn   float64
	ReturnPercent float64
	SharpeRatio   float64
	MaxDrawdown   float64
	WinRate       float64
	CreatedAt     time.Time
}
