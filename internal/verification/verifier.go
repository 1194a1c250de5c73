// Package verification replays stored backtests and checks that the
// recorded trades and metrics are reproduced by the current engine.
package verification

import (
	"context"
	"fmt"
	"math"

	"market-signal-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name, indexed for trades: "Trades[3].PnL"
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single backtest.
type VerificationResult struct {
	BacktestID     string            // verified backtest ID
	Match          bool              // true if all fields match
	Divergences    []FieldDivergence // list of divergent fields
	StoredReturn   float64           // total return from the stored result
	ReplayedReturn float64           // total return from the replay
	StoredTrades   int               // trade count of the stored result
	ReplayedTrades int               // trade count of the replay
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalBacktests     int
	MatchedBacktests   int
	DivergentBacktests int
	Results            []VerificationResult
}

// Verifier replays backtests owned by a user.
type Verifier interface {
	// VerifyBacktest replays one stored backtest.
	VerifyBacktest(ctx context.Context, userID, id string) (*VerificationResult, error)

	// VerifyAll replays the user's most recent backtests.
	VerifyAll(ctx context.Context, userID string, limit int) (*VerificationReport, error)
}

// CompareTrades compares stored and replayed trades position by position.
// A length mismatch is reported once and only the common prefix is compared.
func CompareTrades(stored, replayed []domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(replayed) {
		divergences = append(divergences, FieldDivergence{
			Field:    "TradeCount",
			Expected: len(stored),
			Actual:   len(replayed),
		})
	}

	n := min(len(stored), len(replayed))
	for i := 0; i < n; i++ {
		divergences = append(divergences, compareTrade(i, stored[i], replayed[i])...)
	}

	return divergences
}

func compareTrade(i int, stored, replayed domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence
	field := func(name string) string { return fmt.Sprintf("Trades[%d].%s", i, name) }

	if stored.Symbol != replayed.Symbol {
		divergences = append(divergences, FieldDivergence{Field: field("Symbol"), Expected: stored.Symbol, Actual: replayed.Symbol})
	}
	if stored.Action != replayed.Action {
		divergences = append(divergences, FieldDivergence{Field: field("Action"), Expected: stored.Action, Actual: replayed.Action})
	}
	if stored.Quantity != replayed.Quantity {
		divergences = append(divergences, FieldDivergence{Field: field("Quantity"), Expected: stored.Quantity, Actual: replayed.Quantity})
	}
	if !stored.EntryTime.Equal(replayed.EntryTime) {
		divergences = append(divergences, FieldDivergence{Field: field("EntryTime"), Expected: stored.EntryTime, Actual: replayed.EntryTime})
	}
	if !stored.ExitTime.Equal(replayed.ExitTime) {
		divergences = append(divergences, FieldDivergence{Field: field("ExitTime"), Expected: stored.ExitTime, Actual: replayed.ExitTime})
	}
	if !floatEquals(stored.EntryPrice, replayed.EntryPrice) {
		divergences = append(divergences, FieldDivergence{Field: field("EntryPrice"), Expected: stored.EntryPrice, Actual: replayed.EntryPrice})
	}
	if !floatEquals(stored.ExitPrice, replayed.ExitPrice) {
		divergences = append(divergences, FieldDivergence{Field: field("ExitPrice"), Expected: stored.ExitPrice, Actual: replayed.ExitPrice})
	}
	if !floatEquals(stored.PnL, replayed.PnL) {
		divergences = append(divergences, FieldDivergence{Field: field("PnL"), Expected: stored.PnL, Actual: replayed.PnL})
	}

	return divergences
}

// CompareMetrics compares two metric sets field by field.
func CompareMetrics(stored, replayed domain.PerformanceMetrics) []FieldDivergence {
	var divergences []FieldDivergence

	floats := []struct {
		name     string
		expected float64
		actual   float64
	}{
		{"TotalReturn", stored.TotalReturn, replayed.TotalReturn},
		{"ReturnPercent", stored.ReturnPercent, replayed.ReturnPercent},
		{"SharpeRatio", stored.SharpeRatio, replayed.SharpeRatio},
		{"MaxDrawdown", stored.MaxDrawdown, replayed.MaxDrawdown},
		{"WinRate", stored.WinRate, replayed.WinRate},
	}
	for _, f := range floats {
		if !floatEquals(f.expected, f.actual) {
			divergences = append(divergences, FieldDivergence{Field: "Results." + f.name, Expected: f.expected, Actual: f.actual})
		}
	}

	if stored.TotalTrades != replayed.TotalTrades {
		divergences = append(divergences, FieldDivergence{
			Field:    "Results.TotalTrades",
			Expected: stored.TotalTrades,
			Actual:   replayed.TotalTrades,
		})
	}
	if stored.ProfitableTrades != replayed.ProfitableTrades {
		divergences = append(divergences, FieldDivergence{
			Field:    "Results.ProfitableTrades",
			Expected: stored.ProfitableTrades,
			Actual:   replayed.ProfitableTrades,
		})
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
