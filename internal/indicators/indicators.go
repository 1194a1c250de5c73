// Package indicators computes technical indicators over close-price series.
// Every function is total: short or empty input yields a defined fallback
// value instead of an error.
package indicators

// Default indicator periods.
const (
	DefaultRSIPeriod = 14
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
)

// SMA returns the mean of the last period closes.
// With fewer than period closes it returns the last close.
func SMA(series []float64, period int) float64 {
	if len(series) == 0 {
		return 0
	}
	if period <= 0 || len(series) < period {
		return series[len(series)-1]
	}

	var sum float64
	for _, p := range series[len(series)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average seeded with series[0] and
// smoothed by 2/(period+1). With fewer than period closes it returns the
// last close.
func EMA(series []float64, period int) float64 {
	if len(series) == 0 {
		return 0
	}
	if period <= 0 || len(series) < period {
		return series[len(series)-1]
	}

	k := 2.0 / float64(period+1)
	ema := series[0]
	for _, p := range series[1:] {
		ema = (p-ema)*k + ema
	}
	return ema
}

// RSI returns the relative strength index over the trailing period deltas
// using simple averages of gains and losses.
// Returns 50 when len(series) < period+1 and 100 when there were no losses.
func RSI(series []float64, period int) float64 {
	if period <= 0 || len(series) < period+1 {
		return 50
	}

	var gains, losses float64
	for i := len(series) - period; i < len(series); i++ {
		change := series[i] - series[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns EMA(12) - EMA(26).
func MACD(series []float64) float64 {
	return EMA(series, MACDFastPeriod) - EMA(series, MACDSlowPeriod)
}

// Normalize maps v from [min, max] onto [0, 1], clamping out-of-range values.
func Normalize(v, min, max float64) float64 {
	if max == min {
		if v > min {
			return 1
		}
		return 0
	}
	n := (v - min) / (max - min)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}
