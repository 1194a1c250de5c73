package metrics

import (
	"math"
	"testing"

	"market-signal-lab/internal/domain"
)

func tradesWithPnL(pnls ...float64) []domain.Trade {
	trades := make([]domain.Trade, len(pnls))
	for i, p := range pnls {
		trades[i] = domain.Trade{Symbol: "AAPL", Action: domain.TradeActionSell, Quantity: 100, PnL: p}
	}
	return trades
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluate_KnownTrades(t *testing.T) {
	m := Evaluate(tradesWithPnL(100, -50, 200, -30), Options{})

	if m.TotalTrades != 4 {
		t.Errorf("expected 4 trades, got %d", m.TotalTrades)
	}
	if m.ProfitableTrades != 2 {
		t.Errorf("expected 2 profitable trades, got %d", m.ProfitableTrades)
	}
	if !approx(m.TotalReturn, 220) {
		t.Errorf("expected totalReturn 220, got %f", m.TotalReturn)
	}
	if !approx(m.WinRate, 0.5) {
		t.Errorf("expected winRate 0.5, got %f", m.WinRate)
	}
	// Peak 100, drop to 50 after trade 2
	if !approx(m.MaxDrawdown, 50) {
		t.Errorf("expected maxDrawdown 50, got %f", m.MaxDrawdown)
	}
	if !approx(m.ReturnPercent, 2.2) {
		t.Errorf("expected returnPercent 2.2, got %f", m.ReturnPercent)
	}

	// mean 55, population stddev sqrt(10325)
	want := (55 - 0.02) / math.Sqrt(10325)
	if !approx(m.SharpeRatio, want) {
		t.Errorf("expected sharpe %f, got %f", want, m.SharpeRatio)
	}
}

func TestEvaluate_Empty(t *testing.T) {
	m := Evaluate(nil, Options{})
	if m != (domain.PerformanceMetrics{}) {
		t.Errorf("expected zero metrics, got %+v", m)
	}
}

func TestEvaluate_ConstantPnLHasZeroSharpe(t *testing.T) {
	m := Evaluate(tradesWithPnL(10, 10, 10), Options{})
	if m.SharpeRatio != 0 {
		t.Errorf("expected sharpe 0 for zero stddev, got %f", m.SharpeRatio)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("expected no drawdown for non-decreasing pnl, got %f", m.MaxDrawdown)
	}
}

func TestEvaluate_Options(t *testing.T) {
	m := Evaluate(tradesWithPnL(500), Options{InitialCapital: 1000, RiskFreeRate: 0.05})
	if !approx(m.ReturnPercent, 50) {
		t.Errorf("expected returnPercent 50, got %f", m.ReturnPercent)
	}
	if m.WinRate != 1 {
		t.Errorf("expected winRate 1, got %f", m.WinRate)
	}
}

func TestEvaluate_DecimalSum(t *testing.T) {
	m := Evaluate(tradesWithPnL(0.1, 0.2), Options{})
	if m.TotalReturn != 0.3 {
		t.Errorf("expected exact 0.3, got %v", m.TotalReturn)
	}
}

func TestComputeMaxDrawdown_NeverNegative(t *testing.T) {
	tests := [][]float64{
		{},
		{-10},
		{-10, -20},
		{5, 5, 5},
		{50, -100, 20},
	}
	for _, pnls := range tests {
		if dd := computeMaxDrawdown(pnls); dd < 0 {
			t.Errorf("computeMaxDrawdown(%v) = %f, expected >= 0", pnls, dd)
		}
	}
	// Peak starts at 0, so an initial loss counts as drawdown
	if dd := computeMaxDrawdown([]float64{-10, -20}); dd != 30 {
		t.Errorf("expected 30, got %f", dd)
	}
}

func TestSummarize(t *testing.T) {
	results := []*domain.BacktestResult{
		{Results: domain.PerformanceMetrics{TotalReturn: 300, TotalTrades: 4}},
		{Results: domain.PerformanceMetrics{TotalReturn: -100, TotalTrades: 2}},
		{Results: domain.PerformanceMetrics{TotalReturn: 0, TotalTrades: 0}},
		{Results: domain.PerformanceMetrics{TotalReturn: 200, TotalTrades: 6}},
	}

	s := Summarize(results)
	if s.TotalBacktests != 4 {
		t.Errorf("expected 4 backtests, got %d", s.TotalBacktests)
	}
	if !approx(s.AvgReturn, 100) {
		t.Errorf("expected avgReturn 100, got %f", s.AvgReturn)
	}
	if s.BestReturn != 300 || s.WorstReturn != -100 {
		t.Errorf("expected best 300 worst -100, got %f %f", s.BestReturn, s.WorstReturn)
	}
	if !approx(s.WinRate, 50) {
		t.Errorf("expected winRate 50%%, got %f", s.WinRate)
	}
	if s.TotalTrades != 12 {
		t.Errorf("expected 12 trades, got %d", s.TotalTrades)
	}

	if Summarize(nil) != (domain.BacktestSummary{}) {
		t.Error("expected zero summary for no backtests")
	}
}
