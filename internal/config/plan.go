package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/orchestrator"
)

// planFile is the YAML shape of a backtest plan.
type planFile struct {
	Name       string            `yaml:"name"`
	UserID     string            `yaml:"user_id"`
	Strategy   string            `yaml:"strategy"`
	Parameters domain.Parameters `yaml:"parameters"`
	Symbols    []string          `yaml:"symbols"`
	Start      string            `yaml:"start"`
	End        string            `yaml:"end"`
}

// LoadPlan reads a YAML backtest plan. Dates use YYYY-MM-DD and are UTC.
func LoadPlan(path string) (orchestrator.BacktestRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return orchestrator.BacktestRequest{}, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes a YAML backtest plan.
func ParsePlan(data []byte) (orchestrator.BacktestRequest, error) {
	var p planFile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return orchestrator.BacktestRequest{}, fmt.Errorf("%w: parse plan: %w", ErrInvalidConfig, err)
	}

	start, err := parseDate("start", p.Start)
	if err != nil {
		return orchestrator.BacktestRequest{}, err
	}
	end, err := parseDate("end", p.End)
	if err != nil {
		return orchestrator.BacktestRequest{}, err
	}

	return orchestrator.BacktestRequest{
		Strategy:   p.Strategy,
		Parameters: p.Parameters,
		Symbols:    p.Symbols,
		Start:      start,
		End:        end,
		UserID:     p.UserID,
		Name:       p.Name,
	}, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: plan %s date is required", ErrInvalidConfig, field)
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: plan %s date %q: %w", ErrInvalidConfig, field, value, err)
	}
	return t, nil
}
