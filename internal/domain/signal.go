package domain

import (
	"regexp"
	"time"
)

// SignalType is the direction of a signal.
type SignalType string

// Signal types.
const (
	SignalTypeBullish SignalType = "BULLISH"
	SignalTypeBearish SignalType = "BEARISH"
	SignalTypeNeutral SignalType = "NEUTRAL"
)

// Valid reports whether t is a known signal type.
func (t SignalType) Valid() bool {
	switch t {
	case SignalTypeBullish, SignalTypeBearish, SignalTypeNeutral:
		return true
	}
	return false
}

// SignalSource identifies which pass produced a signal.
type SignalSource string

// Signal sources.
const (
	SignalSourceTechnical     SignalSource = "TECHNICAL"
	SignalSourceNewsSentiment SignalSource = "NEWS_SENTIMENT"
	SignalSourceCombined      SignalSource = "COMBINED"
)

// Valid reports whether s is a known signal source.
func (s SignalSource) Valid() bool {
	switch s {
	case SignalSourceTechnical, SignalSourceNewsSentiment, SignalSourceCombined:
		return true
	}
	return false
}

// TriggerType classifies what fired a signal.
type TriggerType string

// Trigger types.
const (
	TriggerPriceMovement  TriggerType = "PRICE_MOVEMENT"
	TriggerVolumeSurge    TriggerType = "VOLUME_SURGE"
	TriggerNewsEvent      TriggerType = "NEWS_EVENT"
	TriggerSentimentShift TriggerType = "SENTIMENT_SHIFT"
)

// Strength band lower bounds.
const (
	StrengthWeak   = 0.3
	StrengthMedium = 0.6
	StrengthStrong = 0.8
)

// StrengthLabel returns the band name for a signal strength.
func StrengthLabel(strength float64) string {
	switch {
	case strength >= StrengthStrong:
		return "STRONG"
	case strength >= StrengthMedium:
		return "MEDIUM"
	case strength >= StrengthWeak:
		return "WEAK"
	default:
		return "NONE"
	}
}

// Trigger records one condition that contributed to a signal.
type Trigger struct {
	Type      TriggerType `json:"type"`
	Value     string      `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewsReference points at a news article backing a sentiment signal.
type NewsReference struct {
	Headline    string    `json:"headline"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	Sentiment   float64   `json:"sentiment"`
	URL         string    `json:"url"`
}

// PriceSnapshot captures the price at the time a technical signal fired.
type PriceSnapshot struct {
	Current       float64 `json:"current"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        uint64  `json:"volume"`
}

// Signal is a scored trading signal for one symbol.
// Strength and Confidence are in [0, 1]; Expiration is after Timestamp.
type Signal struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	SignalType     SignalType      `json:"signalType"`
	Strength       float64         `json:"strength"`
	Source         SignalSource    `json:"source"`
	Confidence     float64         `json:"confidence"`
	Description    string          `json:"description"`
	Triggers       []Trigger       `json:"triggers"`
	NewsReferences []NewsReference `json:"newsReferences,omitempty"`
	PriceSnapshot  *PriceSnapshot  `json:"priceData,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Expiration     time.Time       `json:"expiration"`
}

var symbolPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// ValidSymbol reports whether s is a 1-5 letter upper-case ticker.
func ValidSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}

// PopularSymbols is the default watchlist.
var PopularSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "META", "NFLX", "NVDA",
	"JPM", "JNJ", "V", "PG", "UNH", "HD", "DIS", "PYPL", "ADBE", "NKE",
}

// SignalTypeStat aggregates signals of one type.
type SignalTypeStat struct {
	SignalType    SignalType `json:"signalType"`
	Count         int        `json:"count"`
	AvgStrength   float64    `json:"avgStrength"`
	AvgConfidence float64    `json:"avgConfidence"`
}

// SymbolSignalStat counts signals for one symbol.
type SymbolSignalStat struct {
	Symbol       string `json:"symbol"`
	SignalCount  int    `json:"signalCount"`
	BullishCount int    `json:"bullishCount"`
	BearishCount int    `json:"bearishCount"`
}

// SignalStats summarizes signals generated within a time window.
type SignalStats struct {
	TotalSignals int                `json:"totalSignals"`
	ByType       []SignalTypeStat   `json:"signalTypeStats"`
	TopSymbols   []SymbolSignalStat `json:"topSymbols"`
	Since        time.Time          `json:"since"`
	Until        time.Time          `json:"until"`
}
