package strategy

import (
	"math"
	"testing"
	"time"

	"market-signal-lab/internal/domain"
)

var seriesStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeBars(closes []float64) []domain.PriceBar {
	bars := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = domain.PriceBar{
			Symbol:    "TEST",
			Timestamp: seriesStart.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

// rampUpDown rises 100 -> 150 over 30 bars then falls 150 -> 100 over 30 bars.
func rampUpDown() []float64 {
	closes := make([]float64, 60)
	for i := 0; i < 30; i++ {
		closes[i] = 100 + float64(i)*50/29
	}
	for i := 30; i < 60; i++ {
		closes[i] = 150 - float64(i-29)*50/30
	}
	return closes
}

// dipThenRecover falls by 1 for 20 bars then rises by 2 for 20 bars.
func dipThenRecover() []float64 {
	closes := make([]float64, 0, 40)
	for i := 0; i < 20; i++ {
		closes = append(closes, 100-float64(i))
	}
	for i := 0; i < 20; i++ {
		closes = append(closes, 81+2*float64(i))
	}
	return closes
}

func TestMovingAverageCrossover_RampUpDown(t *testing.T) {
	bars := makeBars(rampUpDown())
	trades := NewMovingAverageCrossover(20, 50).Run("TEST", bars)

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	tr := trades[0]
	if tr.Action != domain.TradeActionSell {
		t.Errorf("expected SELL, got %s", tr.Action)
	}
	// The walk starts at bar 50, already in the falling leg: enter at bar 50,
	// exit two bars later when the short SMA drops below the long SMA.
	if !tr.EntryTime.Equal(bars[50].Timestamp) {
		t.Errorf("expected entry at bar 50, got %v", tr.EntryTime)
	}
	if !tr.ExitTime.Equal(bars[52].Timestamp) {
		t.Errorf("expected exit at bar 52, got %v", tr.ExitTime)
	}
	if !tr.EntryTime.Before(tr.ExitTime) {
		t.Errorf("expected entry before exit")
	}
	if tr.Quantity != 100 {
		t.Errorf("expected quantity 100, got %d", tr.Quantity)
	}
	want := (tr.ExitPrice - tr.EntryPrice) * 100
	if math.Abs(tr.PnL-want) > 1e-6 {
		t.Errorf("expected pnl %f, got %f", want, tr.PnL)
	}
	if math.Abs(tr.PnL-(-1000.0/3)) > 1e-6 {
		t.Errorf("expected pnl -333.33, got %f", tr.PnL)
	}
}

func TestMovingAverageCrossover_ShortSeries(t *testing.T) {
	trades := NewMovingAverageCrossover(20, 50).Run("TEST", makeBars(rampUpDown()[:40]))
	if len(trades) != 0 {
		t.Errorf("expected no trades for series shorter than long period, got %d", len(trades))
	}
}

func TestMovingAverageCrossover_ForcedClose(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	bars := makeBars(closes)

	trades := NewMovingAverageCrossover(5, 10).Run("TEST", bars)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	tr := trades[0]
	if !tr.EntryTime.Equal(bars[10].Timestamp) {
		t.Errorf("expected entry at bar 10, got %v", tr.EntryTime)
	}
	if !tr.ExitTime.Equal(bars[29].Timestamp) {
		t.Errorf("expected forced close at last bar, got %v", tr.ExitTime)
	}
	if tr.ExitPrice != 129 {
		t.Errorf("expected exit at last close 129, got %f", tr.ExitPrice)
	}
	if tr.Action != domain.TradeActionSell {
		t.Errorf("expected SELL, got %s", tr.Action)
	}
	if tr.PnL != 1900 {
		t.Errorf("expected pnl 1900, got %f", tr.PnL)
	}
}

func TestRSIStrategy_DipThenRecover(t *testing.T) {
	bars := makeBars(dipThenRecover())
	trades := NewRSIStrategy(14, 30, 70).Run("TEST", bars)

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}

	tr := trades[0]
	if !tr.EntryTime.Before(tr.ExitTime) {
		t.Errorf("expected entry before exit, got %v >= %v", tr.EntryTime, tr.ExitTime)
	}
	if !tr.EntryTime.Equal(bars[14].Timestamp) {
		t.Errorf("expected entry at bar 14, got %v", tr.EntryTime)
	}
	if !tr.ExitTime.Equal(bars[28].Timestamp) {
		t.Errorf("expected exit at bar 28, got %v", tr.ExitTime)
	}
	if tr.EntryPrice != 86 || tr.ExitPrice != 97 {
		t.Errorf("expected 86 -> 97, got %f -> %f", tr.EntryPrice, tr.ExitPrice)
	}
	if tr.PnL != 1100 {
		t.Errorf("expected pnl 1100, got %f", tr.PnL)
	}
}

func TestSentimentDriven_MatchesCrossover(t *testing.T) {
	bars := makeBars(rampUpDown())
	want := NewMovingAverageCrossover(20, 50).Run("TEST", bars)
	got := NewSentimentDrivenStrategy(20, 50).Run("TEST", bars)

	if len(got) != len(want) {
		t.Fatalf("expected %d trades, got %d", len(want), len(got))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("trade %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
}

func TestCombinedSignals_NoTrades(t *testing.T) {
	if trades := (CombinedSignalsStrategy{}).Run("TEST", makeBars(rampUpDown())); len(trades) != 0 {
		t.Errorf("expected no trades, got %d", len(trades))
	}
}

func TestStrategies_NeverOverlapPositions(t *testing.T) {
	// zig-zag series produces many crossovers
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 100 + 20*math.Sin(float64(i)/6)
	}
	bars := makeBars(closes)

	strategies := []Strategy{
		NewMovingAverageCrossover(5, 15),
		NewRSIStrategy(7, 30, 70),
	}
	for _, s := range strategies {
		trades := s.Run("TEST", bars)
		if len(trades) < 2 {
			t.Fatalf("%s: expected multiple trades, got %d", s.Name(), len(trades))
		}
		for i, tr := range trades {
			if tr.ExitTime.Before(tr.EntryTime) {
				t.Errorf("%s: trade %d exits before entry", s.Name(), i)
			}
			if i > 0 && tr.EntryTime.Before(trades[i-1].ExitTime) {
				t.Errorf("%s: trade %d opened before trade %d closed", s.Name(), i, i-1)
			}
		}
	}
}

func TestLedger_SinglePosition(t *testing.T) {
	bars := makeBars([]float64{10, 11, 12, 13})
	l := newLedger("TEST", 100)

	if l.exit(bars[0]) {
		t.Error("expected exit while flat to be a no-op")
	}
	if !l.enter(bars[0]) {
		t.Fatal("expected enter while flat to open a position")
	}
	if l.enter(bars[1]) {
		t.Error("expected enter while long to be a no-op")
	}
	if l.position.EntryPrice != 10 {
		t.Errorf("expected original entry price 10, got %f", l.position.EntryPrice)
	}

	trades := l.finish(bars)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].ExitPrice != 13 {
		t.Errorf("expected forced exit at 13, got %f", trades[0].ExitPrice)
	}
	if l.long() {
		t.Error("expected ledger to end flat")
	}
}

func TestPnL_Decimal(t *testing.T) {
	if got := pnl(0.1, 0.3, 100); got != 20 {
		t.Errorf("expected exact 20, got %v", got)
	}
	if got := pnl(10, 5, 3); got != -15 {
		t.Errorf("expected -15, got %v", got)
	}
}
