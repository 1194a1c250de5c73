package signals

import (
	"fmt"
	"strings"

	"market-signal-lab/internal/domain"
)

type groupKey struct {
	symbol     string
	signalType domain.SignalType
}

// Merge combines signals sharing a symbol and type.
// Groups keep first-appearance order; singletons pass through unchanged.
func Merge(in []domain.Signal) []domain.Signal {
	var order []groupKey
	groups := make(map[groupKey][]domain.Signal)
	for _, s := range in {
		k := groupKey{s.Symbol, s.SignalType}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], s)
	}

	out := make([]domain.Signal, 0, len(order))
	for _, k := range order {
		g := groups[k]
		if len(g) == 1 {
			out = append(out, g[0])
			continue
		}
		out = append(out, mergeGroup(g))
	}
	return out
}

// mergeGroup folds a group into one COMBINED signal based on its first member.
func mergeGroup(group []domain.Signal) domain.Signal {
	merged := group[0]
	merged.Source = domain.SignalSourceCombined

	var strength, confidence float64
	var triggers []domain.Trigger
	var refs []domain.NewsReference
	seen := make(map[string]struct{})
	sources := make([]string, 0, len(group))

	for _, s := range group {
		strength += s.Strength
		confidence += s.Confidence
		triggers = append(triggers, s.Triggers...)
		sources = append(sources, string(s.Source))
		for _, ref := range s.NewsReferences {
			if _, dup := seen[ref.URL]; dup {
				continue
			}
			seen[ref.URL] = struct{}{}
			refs = append(refs, ref)
		}
	}

	n := float64(len(group))
	merged.Strength = strength / n
	merged.Confidence = confidence / n
	merged.Triggers = triggers
	merged.NewsReferences = refs
	merged.Description = fmt.Sprintf("Combined signal from %d sources: %s", len(group), strings.Join(sources, " + "))
	return merged
}
