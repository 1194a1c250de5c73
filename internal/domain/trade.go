package domain

import "time"

// TradeAction is the closing side of a simulated trade.
type TradeAction string

// Trade actions.
const (
	TradeActionBuy  TradeAction = "BUY"
	TradeActionSell TradeAction = "SELL"
)

// Position is an open long position inside one simulation run.
type Position struct {
	Symbol     string
	EntryPrice float64
	EntryTime  time.Time
	Quantity   int64
}

// Trade is a closed round trip produced by a strategy.
// PnL = (ExitPrice - EntryPrice) * Quantity and ExitTime >= EntryTime.
type Trade struct {
	Symbol     string      `json:"symbol"`
	Action     TradeAction `json:"action"`
	EntryPrice float64     `json:"entryPrice"`
	ExitPrice  float64     `json:"exitPrice"`
	Quantity   int64       `json:"quantity"`
	EntryTime  time.Time   `json:"entryTime"`
	ExitTime   time.Time   `json:"exitTime"`
	PnL        float64     `json:"pnl"`
}
