// Package metrics computes backtest performance metrics from closed trades.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"market-signal-lab/internal/domain"
)

// Options configures Evaluate. Zero values select the domain defaults.
type Options struct {
	RiskFreeRate   float64
	InitialCapital float64
}

func (o Options) withDefaults() Options {
	if o.RiskFreeRate == 0 {
		o.RiskFreeRate = domain.DefaultRiskFreeRate
	}
	if o.InitialCapital <= 0 {
		o.InitialCapital = domain.DefaultInitialCapital
	}
	return o
}

// Evaluate computes performance metrics for trades in execution order.
// It never fails: empty input yields zero metrics.
func Evaluate(trades []domain.Trade, opts Options) domain.PerformanceMetrics {
	opts = opts.withDefaults()

	n := len(trades)
	if n == 0 {
		return domain.PerformanceMetrics{}
	}

	pnls := make([]float64, n)
	total := decimal.Zero
	profitable := 0
	for i, t := range trades {
		pnls[i] = t.PnL
		total = total.Add(decimal.NewFromFloat(t.PnL))
		if t.PnL > 0 {
			profitable++
		}
	}

	totalReturn := total.InexactFloat64()
	returnPercent := total.
		Div(decimal.NewFromFloat(opts.InitialCapital)).
		Mul(decimal.NewFromInt(100)).
		InexactFloat64()

	return domain.PerformanceMetrics{
		TotalReturn:      totalReturn,
		ReturnPercent:    returnPercent,
		SharpeRatio:      computeSharpe(pnls, opts.RiskFreeRate),
		MaxDrawdown:      computeMaxDrawdown(pnls),
		WinRate:          computeWinRate(profitable, n),
		TotalTrades:      n,
		ProfitableTrades: profitable,
	}
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMean calculates arithmetic mean of pnls.
func computeMean(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range pnls {
		sum += p
	}
	return sum / float64(len(pnls))
}

// computeStddev calculates population standard deviation (n denominator).
func computeStddev(pnls []float64, mean float64) float64 {
	n := len(pnls)
	if n == 0 {
		return 0
	}
	sumSq := 0.0
	for _, p := range pnls {
		diff := p - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// computeSharpe returns (mean - riskFree) / stddev, or 0 when stddev is 0.
func computeSharpe(pnls []float64, riskFree float64) float64 {
	if len(pnls) == 0 {
		return 0
	}
	mean := computeMean(pnls)
	stddev := computeStddev(pnls, mean)
	if stddev == 0 {
		return 0
	}
	return (mean - riskFree) / stddev
}

// computeMaxDrawdown calculates worst peak-to-trough on cumulative pnl.
// max_drawdown = MAX(peak_cumulative - trough_cumulative), peak starts at 0.
// Pnls must be in execution order.
func computeMaxDrawdown(pnls []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, p := range pnls {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		drawdown := peak - cumulative
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}
