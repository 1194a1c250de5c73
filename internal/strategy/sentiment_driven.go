package strategy

import (
	"market-signal-lab/internal/domain"
)

// SentimentDrivenStrategy trades on price crossovers. News sentiment is not
// stored per historical bar, so backtests cannot replay it and the strategy
// enters and exits on the moving-average crossover alone.
type SentimentDrivenStrategy struct {
	crossover *MovingAverageCrossover
}

// NewSentimentDrivenStrategy creates a SentimentDrivenStrategy backed by
// the given crossover periods.
func NewSentimentDrivenStrategy(shortPeriod, longPeriod int) *SentimentDrivenStrategy {
	return &SentimentDrivenStrategy{
		crossover: NewMovingAverageCrossover(shortPeriod, longPeriod),
	}
}

// Name returns SENTIMENT_DRIVEN.
func (s *SentimentDrivenStrategy) Name() domain.StrategyName {
	return domain.StrategySentimentDriven
}

// Run delegates to the moving-average crossover.
func (s *SentimentDrivenStrategy) Run(symbol string, bars []domain.PriceBar) []domain.Trade {
	return s.crossover.Run(symbol, bars)
}

// CombinedSignalsStrategy is registered but never trades.
type CombinedSignalsStrategy struct{}

// Name returns COMBINED_SIGNALS.
func (CombinedSignalsStrategy) Name() domain.StrategyName {
	return domain.StrategyCombinedSignals
}

// Run returns no trades.
func (CombinedSignalsStrategy) Run(string, []domain.PriceBar) []domain.Trade {
	return nil
}

var (
	_ Strategy = (*SentimentDrivenStrategy)(nil)
	_ Strategy = CombinedSignalsStrategy{}
)
