// Package signals turns price and news series into scored trading signals.
package signals

import (
	"fmt"
	"math"
	"time"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/indicators"
)

// Scoring thresholds.
const (
	MinTechnicalBars = 20

	RSIOversold   = 30.0
	RSIOverbought = 70.0
	SMAShort      = 20
	SMALong       = 50

	SentimentPositive      = 0.1
	SentimentNegative      = -0.1
	SentimentSignalMinimum = 0.2
	SentimentWindow        = 24 * time.Hour
	MaxNewsReferences      = 3
)

const (
	technicalConfidence = 0.7
	crossConfidence     = 0.6
	sentimentConfidence = 0.8

	momentumExpiry  = 24 * time.Hour
	trendExpiry     = 3 * 24 * time.Hour
	sentimentExpiry = 12 * time.Hour

	// golden cross strength saturates at a gap of 10% of the current price
	crossStrengthSpan = 0.1

	unknownNewsSource = "Unknown"
)

// Scorer converts one symbol's bars and news into signals.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a Scorer. A nil clock defaults to time.Now.
func NewScorer(now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{now: now}
}

// Score runs the technical and sentiment passes and merges their output.
func (s *Scorer) Score(symbol string, bars []domain.PriceBar, news []domain.NewsItem) []domain.Signal {
	technical := s.TechnicalSignals(symbol, bars)
	sentiment := s.SentimentSignals(symbol, news)
	return Merge(append(technical, sentiment...))
}

// TechnicalSignals derives RSI and moving-average signals.
// Requires at least MinTechnicalBars bars.
func (s *Scorer) TechnicalSignals(symbol string, bars []domain.PriceBar) []domain.Signal {
	if len(bars) < MinTechnicalBars {
		return nil
	}

	closes := domain.Closes(bars)
	rsi := indicators.RSI(closes, indicators.DefaultRSIPeriod)
	sma20 := indicators.SMA(closes, SMAShort)
	sma50 := indicators.SMA(closes, SMALong)
	current := closes[len(closes)-1]
	snapshot := priceSnapshot(bars)
	now := s.now()

	var out []domain.Signal

	switch {
	case rsi < RSIOversold:
		out = append(out, domain.Signal{
			Symbol:        symbol,
			SignalType:    domain.SignalTypeBullish,
			Strength:      indicators.Normalize(RSIOversold-rsi, 0, 30),
			Source:        domain.SignalSourceTechnical,
			Confidence:    technicalConfidence,
			Description:   fmt.Sprintf("Oversold RSI (%.2f) indicates potential bounce", rsi),
			Triggers:      []domain.Trigger{rsiTrigger(rsi, now)},
			PriceSnapshot: snapshot,
			Timestamp:     now,
			Expiration:    now.Add(momentumExpiry),
		})
	case rsi > RSIOverbought:
		out = append(out, domain.Signal{
			Symbol:        symbol,
			SignalType:    domain.SignalTypeBearish,
			Strength:      indicators.Normalize(rsi-RSIOverbought, 0, 30),
			Source:        domain.SignalSourceTechnical,
			Confidence:    technicalConfidence,
			Description:   fmt.Sprintf("Overbought RSI (%.2f) indicates potential pullback", rsi),
			Triggers:      []domain.Trigger{rsiTrigger(rsi, now)},
			PriceSnapshot: snapshot,
			Timestamp:     now,
			Expiration:    now.Add(momentumExpiry),
		})
	}

	if sma20 > sma50 {
		out = append(out, domain.Signal{
			Symbol:      symbol,
			SignalType:  domain.SignalTypeBullish,
			Strength:    indicators.Normalize(sma20-sma50, 0, current*crossStrengthSpan),
			Source:      domain.SignalSourceTechnical,
			Confidence:  crossConfidence,
			Description: fmt.Sprintf("Golden Cross: SMA20 (%.2f) > SMA50 (%.2f)", sma20, sma50),
			Triggers: []domain.Trigger{{
				Type:      domain.TriggerPriceMovement,
				Value:     fmt.Sprintf("SMA20: %.2f, SMA50: %.2f", sma20, sma50),
				Timestamp: now,
			}},
			PriceSnapshot: snapshot,
			Timestamp:     now,
			Expiration:    now.Add(trendExpiry),
		})
	}

	return out
}

// SentimentSignals derives a signal from news published in the last 24h.
func (s *Scorer) SentimentSignals(symbol string, news []domain.NewsItem) []domain.Signal {
	now := s.now()
	cutoff := now.Add(-SentimentWindow)

	var recent []domain.NewsItem
	for _, n := range news {
		if n.PublishedAt.After(cutoff) {
			recent = append(recent, n)
		}
	}
	if len(recent) == 0 {
		return nil
	}

	var sum float64
	var positive, negative int
	for _, n := range recent {
		sum += n.Sentiment
		if n.Sentiment > SentimentPositive {
			positive++
		} else if n.Sentiment < SentimentNegative {
			negative++
		}
	}
	avg := sum / float64(len(recent))

	var signalType domain.SignalType
	var description string
	switch {
	case positive > 2*negative && avg > SentimentSignalMinimum:
		signalType = domain.SignalTypeBullish
		description = fmt.Sprintf("Positive news sentiment (%.2f) with %d positive articles", avg, positive)
	case negative > 2*positive && avg < -SentimentSignalMinimum:
		signalType = domain.SignalTypeBearish
		description = fmt.Sprintf("Negative news sentiment (%.2f) with %d negative articles", avg, negative)
	default:
		return nil
	}

	return []domain.Signal{{
		Symbol:      symbol,
		SignalType:  signalType,
		Strength:    indicators.Normalize(math.Abs(avg), 0, 1),
		Source:      domain.SignalSourceNewsSentiment,
		Confidence:  sentimentConfidence,
		Description: description,
		Triggers: []domain.Trigger{{
			Type:      domain.TriggerSentimentShift,
			Value:     fmt.Sprintf("Avg Sentiment: %.2f", avg),
			Timestamp: now,
		}},
		NewsReferences: newsReferences(recent),
		Timestamp:      now,
		Expiration:     now.Add(sentimentExpiry),
	}}
}

func rsiTrigger(rsi float64, now time.Time) domain.Trigger {
	return domain.Trigger{
		Type:      domain.TriggerPriceMovement,
		Value:     fmt.Sprintf("RSI: %.2f", rsi),
		Timestamp: now,
	}
}

// priceSnapshot describes the last bar relative to the one before it.
func priceSnapshot(bars []domain.PriceBar) *domain.PriceSnapshot {
	last := bars[len(bars)-1]
	snap := &domain.PriceSnapshot{
		Current: last.Close,
		Volume:  last.Volume,
	}
	if len(bars) > 1 {
		prev := bars[len(bars)-2].Close
		snap.Change = last.Close - prev
		if prev != 0 {
			snap.ChangePercent = snap.Change / prev * 100
		}
	}
	return snap
}

func newsReferences(items []domain.NewsItem) []domain.NewsReference {
	n := len(items)
	if n > MaxNewsReferences {
		n = MaxNewsReferences
	}
	refs := make([]domain.NewsReference, 0, n)
	for _, item := range items[:n] {
		source := item.Source
		if source == "" {
			source = unknownNewsSource
		}
		refs = append(refs, domain.NewsReference{
			Headline:    item.Headline,
			Source:      source,
			PublishedAt: item.PublishedAt,
			Sentiment:   item.Sentiment,
			URL:         item.URL,
		})
	}
	return refs
}
