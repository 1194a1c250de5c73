// Package strategy replays price series through named trading strategies.
package strategy

import (
	"market-signal-lab/internal/domain"
)

// Parameter keys understood by FromConfig.
const (
	ParamShortPeriod = "shortPeriod"
	ParamLongPeriod  = "longPeriod"
	ParamPeriod      = "period"
	ParamOversold    = "oversold"
	ParamOverbought  = "overbought"
)

// Parameter defaults.
const (
	DefaultShortPeriod = 20
	DefaultLongPeriod  = 50
	DefaultRSIPeriod   = 14
	DefaultOversold    = 30.0
	DefaultOverbought  = 70.0

	// PositionQuantity is the fixed size of every simulated position.
	PositionQuantity int64 = 100
)

// Strategy produces trades from one symbol's price history.
type Strategy interface {
	// Run walks bars in ascending order and returns closed trades.
	// Any position still open at the last bar is closed at its close price.
	Run(symbol string, bars []domain.PriceBar) []domain.Trade

	// Name returns the strategy identifier.
	Name() domain.StrategyName
}
