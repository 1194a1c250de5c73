package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Storage.Backend != StorageMemory {
		t.Errorf("expected memory backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Feed.Price != FeedSynthetic {
		t.Errorf("expected synthetic feed, got %s", cfg.Feed.Price)
	}
	if cfg.Scheduler.Interval != time.Hour {
		t.Errorf("expected 1h interval, got %s", cfg.Scheduler.Interval)
	}
	if cfg.Engine.SignalLookbackDays != 100 || cfg.Engine.BacktestConcurrency != 4 {
		t.Errorf("unexpected engine defaults: %+v", cfg.Engine)
	}
	if cfg.Engine.RiskFreeRate != 0.02 || cfg.Engine.InitialCapital != 10000 {
		t.Errorf("unexpected capital defaults: %+v", cfg.Engine)
	}
	if cfg.Kafka.SignalTopic != "trading.signals" || cfg.Kafka.Brokers != nil {
		t.Errorf("unexpected kafka defaults: %+v", cfg.Kafka)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_PRETTY", "false")
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/signals")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("WATCHLIST", "AAPL,MSFT")
	t.Setenv("SCHEDULER_INTERVAL", "15m")
	t.Setenv("RISK_FREE_RATE", "0.05")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Pretty {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Storage.Backend != StoragePostgres {
		t.Errorf("expected postgres backend, got %s", cfg.Storage.Backend)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if !reflect.DeepEqual(cfg.Scheduler.Watchlist, []string{"AAPL", "MSFT"}) {
		t.Errorf("unexpected watchlist: %v", cfg.Scheduler.Watchlist)
	}
	if cfg.Scheduler.Interval != 15*time.Minute {
		t.Errorf("expected 15m, got %s", cfg.Scheduler.Interval)
	}
	if cfg.Engine.RiskFreeRate != 0.05 {
		t.Errorf("expected 0.05, got %v", cfg.Engine.RiskFreeRate)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server_port: \"7070\"\nwatchlist: TSLA\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from file, got %s", cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Scheduler.Watchlist, []string{"TSLA"}) {
		t.Errorf("unexpected watchlist: %v", cfg.Scheduler.Watchlist)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad interval", map[string]string{"SCHEDULER_INTERVAL": "hourly"}},
		{"postgres without dsn", map[string]string{"STORAGE_BACKEND": "postgres"}},
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "sqlite"}},
		{"unknown feed", map[string]string{"PRICE_FEED": "yahoo"}},
		{"alphavantage without key", map[string]string{"PRICE_FEED": "alphavantage"}},
		{"alpaca without secret", map[string]string{"PRICE_FEED": "alpaca", "ALPACA_API_KEY": "k"}},
		{"clickhouse without dsn", map[string]string{"PRICE_FEED": "clickhouse"}},
		{"zero concurrency", map[string]string{"BACKTEST_CONCURRENCY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	if got := SplitList(""); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := SplitList(" a ,,b "); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("unexpected split: %v", got)
	}
}
