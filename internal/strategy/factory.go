package strategy

import (
	"errors"
	"fmt"
	"math"

	"market-signal-lab/internal/domain"
)

// Factory errors
var (
	ErrUnknownStrategy  = errors.New("unknown strategy")
	ErrInvalidParameter = errors.New("invalid strategy parameter")
)

// FromConfig creates a Strategy by name.
// Missing parameters take their defaults; out-of-range ones are rejected.
func FromConfig(name domain.StrategyName, params domain.Parameters) (Strategy, error) {
	switch name {
	case domain.StrategyMovingAverageCrossover:
		short, long, err := crossoverPeriods(params)
		if err != nil {
			return nil, err
		}
		return NewMovingAverageCrossover(short, long), nil
	case domain.StrategyRSI:
		return fromRSIConfig(params)
	case domain.StrategySentimentDriven:
		short, long, err := crossoverPeriods(params)
		if err != nil {
			return nil, err
		}
		return NewSentimentDrivenStrategy(short, long), nil
	case domain.StrategyCombinedSignals:
		return CombinedSignalsStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

func crossoverPeriods(params domain.Parameters) (int, int, error) {
	short, err := periodParam(params, ParamShortPeriod, DefaultShortPeriod)
	if err != nil {
		return 0, 0, err
	}
	long, err := periodParam(params, ParamLongPeriod, DefaultLongPeriod)
	if err != nil {
		return 0, 0, err
	}
	return short, long, nil
}

func fromRSIConfig(params domain.Parameters) (*RSIStrategy, error) {
	period, err := periodParam(params, ParamPeriod, DefaultRSIPeriod)
	if err != nil {
		return nil, err
	}
	oversold := params.Float(ParamOversold, DefaultOversold)
	overbought := params.Float(ParamOverbought, DefaultOverbought)

	if oversold >= overbought {
		return nil, fmt.Errorf("%w: %s (%.2f) must be below %s (%.2f)",
			ErrInvalidParameter, ParamOversold, oversold, ParamOverbought, overbought)
	}

	return NewRSIStrategy(period, oversold, overbought), nil
}

// periodParam reads a bar count, which must be a positive whole number.
func periodParam(params domain.Parameters, key string, def int) (int, error) {
	v := params.Float(key, float64(def))
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a whole number, got %v", ErrInvalidParameter, key, v)
	}
	if v <= 0 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidParameter, key, v)
	}
	return int(v), nil
}
