package reporting

import (
	"fmt"
	"strings"
	"time"

	"market-signal-lab/internal/domain"
)

// RenderTradesCSV renders trades as a CSV string.
func RenderTradesCSV(trades []domain.Trade) string {
	var sb strings.Builder

	// Header
	sb.WriteString("symbol,action,entry_time,exit_time,entry_price,exit_price,quantity,pnl\n")

	// Rows
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.4f,%.4f,%d,%.4f\n",
			t.Symbol,
			t.Action,
			t.EntryTime.UTC().Format(time.RFC3339),
			t.ExitTime.UTC().Format(time.RFC3339),
			t.EntryPrice,
			t.ExitPrice,
			t.Quantity,
			t.PnL,
		))
	}

	return sb.String()
}

// RenderSymbolsCSV renders the per-symbol breakdown as a CSV string.
func RenderSymbolsCSV(rows []SymbolRow) string {
	var sb strings.Builder

	sb.WriteString("symbol,trades,profitable_trades,win_rate,total_pnl,best_trade,worst_trade\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%.2f,%.4f,%.4f,%.4f\n",
			r.Symbol, r.Trades, r.ProfitableTrades, r.WinRate, r.TotalPnL, r.BestTrade, r.WorstTrade))
	}

	return sb.String()
}
