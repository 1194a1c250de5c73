package indicators

import (
	"math"
	"testing"
)

const eps = 1e-9

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if math.Abs(got-4) > eps {
		t.Errorf("expected 4, got %f", got)
	}
}

func TestSMA_ShortSeriesReturnsLastClose(t *testing.T) {
	got := SMA([]float64{10, 11, 12}, 20)
	if got != 12 {
		t.Errorf("expected last close 12, got %f", got)
	}
}

func TestSMA_Empty(t *testing.T) {
	if got := SMA(nil, 5); got != 0 {
		t.Errorf("expected 0 for empty series, got %f", got)
	}
}

func TestEMA_ShortSeriesReturnsLastClose(t *testing.T) {
	got := EMA([]float64{5, 6}, 12)
	if got != 6 {
		t.Errorf("expected last close 6, got %f", got)
	}
}

func TestEMA_Recurrence(t *testing.T) {
	// k = 2/(3+1) = 0.5; ema: 1 -> 1.5 -> 2.25
	got := EMA([]float64{1, 2, 3}, 3)
	if math.Abs(got-2.25) > eps {
		t.Errorf("expected 2.25, got %f", got)
	}
}

func TestSMAEqualsEMA_ConstantSeriesFullPeriod(t *testing.T) {
	for _, n := range []int{1, 5, 26, 50} {
		series := constant(n, 42.5)
		sma := SMA(series, n)
		ema := EMA(series, n)
		if math.Abs(sma-ema) > eps {
			t.Errorf("n=%d: SMA %f != EMA %f", n, sma, ema)
		}
	}
}

func TestRSI_InsufficientDataReturns50(t *testing.T) {
	for n := 0; n <= 14; n++ {
		if got := RSI(ramp(n, 100, 1), 14); got != 50 {
			t.Errorf("len=%d: expected 50, got %f", n, got)
		}
	}
}

func TestRSI_NoLossesReturns100(t *testing.T) {
	if got := RSI(ramp(30, 100, 1), 14); got != 100 {
		t.Errorf("expected 100 for rising series, got %f", got)
	}
	if got := RSI(constant(30, 100), 14); got != 100 {
		t.Errorf("expected 100 for flat series, got %f", got)
	}
}

func TestRSI_OnlyLossesReturns0(t *testing.T) {
	if got := RSI(ramp(30, 100, -1), 14); got != 0 {
		t.Errorf("expected 0 for falling series, got %f", got)
	}
}

func TestRSI_Bounded(t *testing.T) {
	series := []float64{44, 44.3, 44.1, 43.6, 44.3, 44.8, 45.1, 45.4, 45.8, 46.1, 45.9, 46.3, 45.6, 46.3, 46.3, 46.0, 46.4, 46.2, 45.6, 46.2}
	for end := 15; end <= len(series); end++ {
		got := RSI(series[:end], 14)
		if got < 0 || got > 100 {
			t.Errorf("RSI out of bounds at end=%d: %f", end, got)
		}
	}
}

func TestRSI_KnownValue(t *testing.T) {
	// 14 deltas: 7 gains of 2, 7 losses of 1 -> rs = 2, rsi = 66.666...
	series := []float64{100}
	for i := 0; i < 7; i++ {
		last := series[len(series)-1]
		series = append(series, last+2, last+1)
	}
	got := RSI(series, 14)
	if math.Abs(got-200.0/3.0) > 1e-6 {
		t.Errorf("expected 66.667, got %f", got)
	}
}

func TestMACD(t *testing.T) {
	series := ramp(40, 100, 1)
	want := EMA(series, 12) - EMA(series, 26)
	if got := MACD(series); math.Abs(got-want) > eps {
		t.Errorf("expected %f, got %f", want, got)
	}
	if got := MACD(constant(40, 10)); math.Abs(got) > eps {
		t.Errorf("expected 0 for constant series, got %f", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		v, min, max, want float64
	}{
		{15, 0, 30, 0.5},
		{-5, 0, 30, 0},
		{45, 0, 30, 1},
		{0.35, 0, 1, 0.35},
		{1, 1, 1, 0},
		{2, 1, 1, 1},
	}
	for _, tt := range tests {
		if got := Normalize(tt.v, tt.min, tt.max); math.Abs(got-tt.want) > eps {
			t.Errorf("Normalize(%v, %v, %v) = %v, want %v", tt.v, tt.min, tt.max, got, tt.want)
		}
	}
}
