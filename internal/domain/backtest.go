package domain

import (
	"fmt"
	"strings"
	"time"
)

// StrategyName identifies a backtest strategy.
type StrategyName string

// Strategy names.
const (
	StrategyMovingAverageCrossover StrategyName = "MOVING_AVERAGE_CROSSOVER"
	StrategyRSI                    StrategyName = "RSI_STRATEGY"
	StrategySentimentDriven        StrategyName = "SENTIMENT_DRIVEN"
	StrategyCombinedSignals        StrategyName = "COMBINED_SIGNALS"
)

// StrategyNames lists every supported strategy.
var StrategyNames = []StrategyName{
	StrategyMovingAverageCrossover,
	StrategyRSI,
	StrategySentimentDriven,
	StrategyCombinedSignals,
}

// ParseStrategyName normalizes s and checks it against the known strategies.
func ParseStrategyName(s string) (StrategyName, error) {
	name := StrategyName(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range StrategyNames {
		if name == known {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// Backtest defaults.
const (
	DefaultInitialCapital = 10000.0
	DefaultCommission     = 0.001
	DefaultSlippage       = 0.001
	DefaultRiskFreeRate   = 0.02
)

// Parameters holds numeric strategy parameters by name.
type Parameters map[string]float64

// Float returns the parameter or def when unset.
func (p Parameters) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Clone returns a copy of p.
func (p Parameters) Clone() Parameters {
	if p == nil {
		return Parameters{}
	}
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Timeframe is the inclusive date range of a backtest.
type Timeframe struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PerformanceMetrics are derived from a backtest's trade list.
// TotalReturn is absolute P&L in price units; ReturnPercent normalizes it
// against the initial capital.
type PerformanceMetrics struct {
	TotalReturn      float64 `json:"totalReturn"`
	ReturnPercent    float64 `json:"returnPercent"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
	WinRate          float64 `json:"winRate"`
	TotalTrades      int     `json:"totalTrades"`
	ProfitableTrades int     `json:"profitableTrades"`
}

// BacktestResult is the persisted outcome of one backtest run.
type BacktestResult struct {
	ID             string             `json:"id"`
	UserID         string             `json:"userId"`
	Name           string             `json:"name"`
	Strategy       StrategyName       `json:"strategy"`
	Parameters     Parameters         `json:"parameters"`
	Timeframe      Timeframe          `json:"timeframe"`
	Symbols        []string           `json:"symbols"`
	Results        PerformanceMetrics `json:"results"`
	Trades         []Trade            `json:"trades"`
	SkippedSymbols []string           `json:"skippedSymbols,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// BacktestSummary aggregates a user's recent backtests.
// WinRate is the percentage of backtests with a positive total return.
type BacktestSummary struct {
	TotalBacktests int     `json:"totalBacktests"`
	AvgReturn      float64 `json:"avgReturn"`
	BestReturn     float64 `json:"bestReturn"`
	WorstReturn    float64 `json:"worstReturn"`
	WinRate        float64 `json:"winRate"`
	TotalTrades    int     `json:"totalTrades"`
}
