package strategy

import (
	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/indicators"
)

// RSIStrategy buys when RSI is oversold and sells when it is overbought.
type RSIStrategy struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// NewRSIStrategy creates an RSIStrategy.
func NewRSIStrategy(period int, oversold, overbought float64) *RSIStrategy {
	return &RSIStrategy{
		Period:     period,
		Oversold:   oversold,
		Overbought: overbought,
	}
}

// Name returns RSI_STRATEGY.
func (s *RSIStrategy) Name() domain.StrategyName {
	return domain.StrategyRSI
}

// Run walks bars from index Period.
func (s *RSIStrategy) Run(symbol string, bars []domain.PriceBar) []domain.Trade {
	closes := domain.Closes(bars)
	l := newLedger(symbol, PositionQuantity)

	for i := s.Period; i < len(bars); i++ {
		rsi := indicators.RSI(closes[:i+1], s.Period)

		switch {
		case rsi < s.Oversold:
			l.enter(bars[i])
		case rsi > s.Overbought:
			l.exit(bars[i])
		}
	}

	return l.finish(bars)
}

var _ Strategy = (*RSIStrategy)(nil)
