package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/metrics"
	"market-signal-lab/internal/storage"
)

// Generator produces reports from stored backtests.
type Generator struct {
	store storage.BacktestStore
	now   func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(store storage.BacktestStore) *Generator {
	return &Generator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate loads one of the user's backtests and builds its report.
func (g *Generator) Generate(ctx context.Context, userID, id string) (*Report, error) {
	result, err := g.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return g.FromResult(result), nil
}

// FromResult builds a report from an in-memory result.
func (g *Generator) FromResult(r *domain.BacktestResult) *Report {
	return &Report{
		GeneratedAt: g.now(),
		ID:          r.ID,
		Name:        r.Name,
		Strategy:    r.Strategy,
		Parameters:  r.Parameters,
		Timeframe:   r.Timeframe,
		CreatedAt:   r.CreatedAt,
		Metrics:     r.Results,
		Symbols:     symbolRows(r.Trades),
		Skipped:     r.SkippedSymbols,
		Trades:      r.Trades,
	}
}

// GenerateHistory summarizes the user's latest backtests.
// A non-positive limit selects the latest 50.
func (g *Generator) GenerateHistory(ctx context.Context, userID string, limit int) (*HistoryReport, error) {
	if limit <= 0 {
		limit = 50
	}
	results, _, err := g.store.ListByUser(ctx, userID, storage.Page{Limit: limit})
	if err != nil {
		return nil, err
	}

	rows := make([]HistoryRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, HistoryRow{
			ID:            r.ID,
			Name:          r.Name,
			Strategy:      r.Strategy,
			Symbols:       r.Symbols,
			TotalTrades:   r.Results.TotalTrades,
			TotalReturn:   r.Results.TotalReturn,
			ReturnPercent: r.Results.ReturnPercent,
			SharpeRatio:   r.Results.SharpeRatio,
			MaxDrawdown:   r.Results.MaxDrawdown,
			WinRate:       r.Results.WinRate,
			CreatedAt:     r.CreatedAt,
		})
	}

	return &HistoryReport{
		GeneratedAt: g.now(),
		UserID:      userID,
		Summary:     metrics.Summarize(results),
		Rows:        rows,
	}, nil
}

// symbolRows groups trades by symbol. P&L sums use decimal arithmetic.
func symbolRows(trades []domain.Trade) []SymbolRow {
	type acc struct {
		row   SymbolRow
		total decimal.Decimal
	}
	bySymbol := make(map[string]*acc)

	for _, t := range trades {
		a, ok := bySymbol[t.Symbol]
		if !ok {
			a = &acc{row: SymbolRow{Symbol: t.Symbol, BestTrade: t.PnL, WorstTrade: t.PnL}}
			bySymbol[t.Symbol] = a
		}
		a.row.Trades++
		if t.PnL > 0 {
			a.row.ProfitableTrades++
		}
		if t.PnL > a.row.BestTrade {
			a.row.BestTrade = t.PnL
		}
		if t.PnL < a.row.WorstTrade {
			a.row.WorstTrade = t.PnL
		}
		a.total = a.total.Add(decimal.NewFromFloat(t.PnL))
	}

	rows := make([]SymbolRow, 0, len(bySymbol))
	for _, a := range bySymbol {
		a.row.TotalPnL = a.total.InexactFloat64()
		a.row.WinRate = float64(a.row.ProfitableTrades) / float64(a.row.Trades) * 100
		rows = append(rows, a.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}
