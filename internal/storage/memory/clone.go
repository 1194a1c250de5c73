package memory

import (
	"market-signal-lab/internal/domain"
)

// Stored values are copied on the way in and out so callers cannot mutate them.

func cloneBacktest(r *domain.BacktestResult) *domain.BacktestResult {
	c := *r
	c.Parameters = r.Parameters.Clone()
	c.Symbols = append([]string(nil), r.Symbols...)
	c.Trades = append([]domain.Trade(nil), r.Trades...)
	c.SkippedSymbols = append([]string(nil), r.SkippedSymbols...)
	return &c
}

func cloneSignal(s *domain.Signal) *domain.Signal {
	c := *s
	c.Triggers = append([]domain.Trigger(nil), s.Triggers...)
	c.NewsReferences = append([]domain.NewsReference(nil), s.NewsReferences...)
	if s.PriceSnapshot != nil {
		snap := *s.PriceSnapshot
		c.PriceSnapshot = &snap
	}
	return &c
}

func clonePortfolio(p *domain.Portfolio) *domain.Portfolio {
	c := *p
	c.Positions = make([]domain.Holding, len(p.Positions))
	copy(c.Positions, p.Positions)
	return &c
}
