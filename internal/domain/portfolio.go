package domain

import "time"

// Holding is a portfolio position in one symbol at a volume-weighted average cost.
type Holding struct {
	Symbol        string  `json:"symbol"`
	Quantity      int64   `json:"quantity"`
	AveragePrice  float64 `json:"averagePrice"`
	CurrentPrice  float64 `json:"currentPrice"`
	UnrealizedPnL float64 `json:"unrealizedPnL"`
	SignalID      string  `json:"signalId,omitempty"`
}

// PortfolioPerformance holds revaluation results.
// TotalReturn is a percentage of the initial capital.
type PortfolioPerformance struct {
	TotalReturn float64 `json:"totalReturn"`
}

// Portfolio is a user's tracked set of positions and uninvested cash.
type Portfolio struct {
	ID             string               `json:"id"`
	UserID         string               `json:"userId"`
	Name           string               `json:"name"`
	Description    string               `json:"description,omitempty"`
	InitialCapital float64              `json:"initialCapital"`
	CurrentValue   float64              `json:"currentValue"`
	Cash           float64              `json:"cash"`
	Positions      []Holding            `json:"positions"`
	Performance    PortfolioPerformance `json:"performance"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// HoldingIndex returns the index of the holding in symbol, or -1.
func (p *Portfolio) HoldingIndex(symbol string) int {
	for i := range p.Positions {
		if p.Positions[i].Symbol == symbol {
			return i
		}
	}
	return -1
}
