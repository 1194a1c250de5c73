package strategy

import (
	"github.com/shopspring/decimal"

	"market-signal-lab/internal/domain"
)

// ledger is the FLAT/LONG state machine for one symbol.
// It holds at most one open position.
type ledger struct {
	symbol   string
	quantity int64
	position *domain.Position
	trades   []domain.Trade
}

func newLedger(symbol string, quantity int64) *ledger {
	return &ledger{symbol: symbol, quantity: quantity}
}

func (l *ledger) long() bool {
	return l.position != nil
}

// enter opens a position at bar's close. No-op when already long.
func (l *ledger) enter(bar domain.PriceBar) bool {
	if l.long() {
		return false
	}
	l.position = &domain.Position{
		Symbol:     l.symbol,
		EntryPrice: bar.Close,
		EntryTime:  bar.Timestamp,
		Quantity:   l.quantity,
	}
	return true
}

// exit closes the open position at bar's close. No-op when flat.
func (l *ledger) exit(bar domain.PriceBar) bool {
	if !l.long() {
		return false
	}
	p := l.position
	l.trades = append(l.trades, domain.Trade{
		Symbol:     l.symbol,
		Action:     domain.TradeActionSell,
		EntryPrice: p.EntryPrice,
		ExitPrice:  bar.Close,
		Quantity:   p.Quantity,
		EntryTime:  p.EntryTime,
		ExitTime:   bar.Timestamp,
		PnL:        pnl(p.EntryPrice, bar.Close, p.Quantity),
	})
	l.position = nil
	return true
}

// finish force-closes any open position at the last bar and returns the trades.
func (l *ledger) finish(bars []domain.PriceBar) []domain.Trade {
	if l.long() && len(bars) > 0 {
		l.exit(bars[len(bars)-1])
	}
	return l.trades
}

func pnl(entry, exit float64, quantity int64) float64 {
	return decimal.NewFromFloat(exit).
		Sub(decimal.NewFromFloat(entry)).
		Mul(decimal.NewFromInt(quantity)).
		InexactFloat64()
}
