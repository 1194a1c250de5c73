package domain

import "time"

// PriceBar is one OHLCV bar of a symbol's price history.
// Bars of a series are ordered ascending by Timestamp.
type PriceBar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    uint64    `json:"volume"`
}

// Closes extracts the close prices of bars in order.
func Closes(bars []PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// NewsItem is a news article about a symbol with a sentiment score.
type NewsItem struct {
	Symbol      string    `json:"symbol"`
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary,omitempty"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Sentiment   float64   `json:"sentiment"` // [-1, 1]
}
