// Package orchestrator provides the caller-facing services of the engine.
// Backtester coordinates: strategy → simulation → metrics → storage.
// SignalService coordinates: feeds → scoring → storage → publishing.
package orchestrator

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"market-signal-lab/internal/domain"
)

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

func newUUID() string {
	return uuid.NewString()
}

// normalizeSymbols upper-cases, trims and de-duplicates symbols in first-seen order.
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// validSymbols keeps only well-formed tickers.
func validSymbols(symbols []string) []string {
	out := symbols[:0:0]
	for _, s := range symbols {
		if domain.ValidSymbol(s) {
			out = append(out, s)
		}
	}
	return out
}
