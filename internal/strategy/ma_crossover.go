package strategy

import (
	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/indicators"
)

// MovingAverageCrossover goes long while the short SMA is above the long SMA.
type MovingAverageCrossover struct {
	ShortPeriod int
	LongPeriod  int
}

// NewMovingAverageCrossover creates a MovingAverageCrossover.
func NewMovingAverageCrossover(shortPeriod, longPeriod int) *MovingAverageCrossover {
	return &MovingAverageCrossover{
		ShortPeriod: shortPeriod,
		LongPeriod:  longPeriod,
	}
}

// Name returns MOVING_AVERAGE_CROSSOVER.
func (s *MovingAverageCrossover) Name() domain.StrategyName {
	return domain.StrategyMovingAverageCrossover
}

// Run walks bars from index LongPeriod. Each bar's averages are taken over
// the prefix ending at that bar.
func (s *MovingAverageCrossover) Run(symbol string, bars []domain.PriceBar) []domain.Trade {
	closes := domain.Closes(bars)
	l := newLedger(symbol, PositionQuantity)

	for i := s.LongPeriod; i < len(bars); i++ {
		prefix := closes[:i+1]
		short := indicators.SMA(prefix, s.ShortPeriod)
		long := indicators.SMA(prefix, s.LongPeriod)

		switch {
		case short > long:
			l.enter(bars[i])
		case short < long:
			l.exit(bars[i])
		}
	}

	return l.finish(bars)
}

var _ Strategy = (*MovingAverageCrossover)(nil)
