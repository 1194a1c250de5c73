// Package sentiment scores news text against a weighted financial lexicon.
package sentiment

import (
	"strings"
)

// Label is the coarse classification of a score.
type Label string

const (
	LabelPositive Label = "POSITIVE"
	LabelNegative Label = "NEGATIVE"
	LabelNeutral  Label = "NEUTRAL"
)

// Classification thresholds, matching the scorer's positive/negative cut-offs.
const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

// Analyzer scores text by averaging the weights of matched lexicon words.
// A negator ("not", "no", "never") flips the weight of the next matched word.
type Analyzer struct {
	positive map[string]float64
	negative map[string]float64
	negators map[string]struct{}
}

// NewAnalyzer creates an analyzer with the built-in lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		positive: map[string]float64{
			"surge": 1.0, "soar": 1.0, "soars": 1.0, "skyrocket": 1.0, "breakthrough": 1.0,
			"bullish": 0.95, "rally": 0.95, "rallies": 0.95, "boom": 0.95, "record": 0.9,
			"outperform": 0.9, "breakout": 0.9, "beat": 0.85, "beats": 0.85, "exceed": 0.85,
			"exceeds": 0.85, "upgrade": 0.85, "upgraded": 0.85, "optimistic": 0.85,
			"profit": 0.8, "profits": 0.8, "growth": 0.8, "gain": 0.8, "gains": 0.8,
			"jump": 0.8, "jumps": 0.8, "strong": 0.8, "boost": 0.8, "success": 0.8,
			"improve": 0.75, "improves": 0.75, "rising": 0.75, "climb": 0.75, "climbs": 0.75,
			"momentum": 0.75, "upside": 0.75, "recover": 0.7, "recovery": 0.7, "rebound": 0.7,
			"positive": 0.65, "rise": 0.65, "rises": 0.65, "higher": 0.65, "increase": 0.65,
			"good": 0.65, "solid": 0.65, "confident": 0.65, "opportunity": 0.6,
			"promising": 0.6, "resilient": 0.6, "resilience": 0.6, "steady": 0.6,
			"healthy": 0.55, "leader": 0.55, "lead": 0.55, "robust": 0.5, "stable": 0.5,
		},
		negative: map[string]float64{
			"crash": 1.0, "plunge": 1.0, "plunges": 1.0, "collapse": 1.0, "disaster": 1.0,
			"crisis": 0.95, "bankruptcy": 0.95, "plummet": 0.95, "tumble": 0.95, "tumbles": 0.95,
			"panic": 0.9, "worst": 0.9, "bearish": 0.85, "downgrade": 0.85, "downgraded": 0.85,
			"warning": 0.85, "lawsuit": 0.85, "fraud": 0.85, "miss": 0.8, "misses": 0.8,
			"loss": 0.8, "losses": 0.8, "slump": 0.8, "decline": 0.8, "declines": 0.8,
			"underperform": 0.8, "fail": 0.8, "fails": 0.8, "weak": 0.75, "weakness": 0.75,
			"drop": 0.75, "drops": 0.75, "fall": 0.75, "falls": 0.75, "falling": 0.75,
			"concern": 0.7, "concerns": 0.7, "worry": 0.7, "worries": 0.7, "disappoint": 0.7,
			"disappoints": 0.7, "uncertain": 0.7, "risk": 0.65, "risks": 0.65, "volatile": 0.65,
			"volatility": 0.65, "uncertainty": 0.65, "pressure": 0.6, "lower": 0.6,
			"disappointing": 0.6, "negative": 0.6, "poor": 0.6, "slowdown": 0.6,
			"dip": 0.55, "slip": 0.55, "cautious": 0.55, "downside": 0.55,
			"correction": 0.5, "pullback": 0.5, "cut": 0.5, "cuts": 0.5, "headwind": 0.5,
		},
		negators: map[string]struct{}{
			"not": {}, "no": {}, "never": {}, "without": {},
		},
	}
}

// Score returns the mean signed weight of matched words, in [-1, 1].
// Text with no lexicon words scores 0.
func (a *Analyzer) Score(text string) float64 {
	var score float64
	var matches int
	negate := false

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?\"'()[]{}:;")
		if _, ok := a.negators[word]; ok {
			negate = true
			continue
		}

		var weight float64
		if val, ok := a.positive[word]; ok {
			weight = val
		} else if val, ok := a.negative[word]; ok {
			weight = -val
		} else {
			continue
		}

		if negate {
			weight = -weight
			negate = false
		}
		score += weight
		matches++
	}

	if matches == 0 {
		return 0
	}
	return clamp(score / float64(matches))
}

// Classify returns the label for a score.
func Classify(score float64) Label {
	switch {
	case score > positiveThreshold:
		return LabelPositive
	case score < negativeThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
