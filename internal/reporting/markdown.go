package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders a backtest report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", r.Name))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Strategy: %s | Period: %s to %s | ID: %s\n\n",
		r.Strategy, r.Timeframe.Start.Format(time.DateOnly), r.Timeframe.End.Format(time.DateOnly), r.ID))

	// Parameters
	if len(r.Parameters) > 0 {
		keys := make([]string, 0, len(r.Parameters))
		for k := range r.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("## Parameters\n\n")
		sb.WriteString("| Parameter | Value |\n")
		sb.WriteString("|-----------|-------|\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("| %s | %g |\n", k, r.Parameters[k]))
		}
		sb.WriteString("\n")
	}

	// Performance
	m := r.Metrics
	sb.WriteString("## Performance\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Return | %.2f |\n", m.TotalReturn))
	sb.WriteString(fmt.Sprintf("| Return %% | %.2f |\n", m.ReturnPercent))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.4f |\n", m.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f |\n", m.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", m.WinRate))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", m.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Profitable Trades | %d |\n", m.ProfitableTrades))
	sb.WriteString("\n")

	// Symbols
	sb.WriteString("## Symbols\n\n")
	if len(r.Symbols) > 0 {
		sb.WriteString("| Symbol | Trades | Wins | WinRate% | Total P&L | Best | Worst |\n")
		sb.WriteString("|--------|--------|------|----------|-----------|------|-------|\n")
		for _, s := range r.Symbols {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.2f | %.2f | %.2f | %.2f |\n",
				s.Symbol, s.Trades, s.ProfitableTrades, s.WinRate, s.TotalPnL, s.BestTrade, s.WorstTrade))
		}
	} else {
		sb.WriteString("No trades were produced.\n")
	}
	sb.WriteString("\n")

	if len(r.Skipped) > 0 {
		sb.WriteString("### Skipped Symbols\n\n")
		for _, s := range r.Skipped {
			sb.WriteString(fmt.Sprintf("- %s\n", s))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderHistoryMarkdown renders a user's backtest history as Markdown string.
func RenderHistoryMarkdown(h *HistoryReport) string {
	var sb strings.Builder

	sb.WriteString("# Backtest History\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s | User: %s\n\n", h.GeneratedAt.Format(time.RFC3339), h.UserID))

	s := h.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Backtests | %d |\n", s.TotalBacktests))
	sb.WriteString(fmt.Sprintf("| Avg Return | %.2f |\n", s.AvgReturn))
	sb.WriteString(fmt.Sprintf("| Best Return | %.2f |\n", s.BestReturn))
	sb.WriteString(fmt.Sprintf("| Worst Return | %.2f |\n", s.WorstReturn))
	sb.WriteString(fmt.Sprintf("| Win Rate %% | %.2f |\n", s.WinRate))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", s.TotalTrades))
	sb.WriteString("\n")

	sb.WriteString("## Runs\n\n")
	if len(h.Rows) > 0 {
		sb.WriteString("| Created | Name | Strategy | Symbols | Trades | Return | Return% | Sharpe | MaxDD |\n")
		sb.WriteString("|---------|------|----------|---------|--------|--------|---------|--------|-------|\n")
		for _, r := range h.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %.2f | %.2f | %.4f | %.2f |\n",
				r.CreatedAt.Format(time.DateOnly), r.Name, r.Strategy, strings.Join(r.Symbols, " "),
				r.TotalTrades, r.TotalReturn, r.ReturnPercent, r.SharpeRatio, r.MaxDrawdown))
		}
	} else {
		sb.WriteString("No backtests found.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
