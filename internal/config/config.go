// Package config loads service configuration from the environment,
// an optional .env file and an optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Price feeds.
const (
	FeedSynthetic    = "synthetic"
	FeedAlphaVantage = "alphavantage"
	FeedAlpaca       = "alpaca"
	FeedClickhouse   = "clickhouse"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type ServerConfig struct {
	Port string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type StorageConfig struct {
	Backend       string
	PostgresDSN   string
	ClickhouseDSN string
}

type FeedConfig struct {
	Price            string
	AlphaVantageKey  string
	AlphaVantageURL  string
	NewsAPIKey       string
	NewsAPIURL       string
	AlpacaKey        string
	AlpacaSecret     string
	FinnhubToken     string
	FinnhubStreamURL string
}

type KafkaConfig struct {
	Brokers     []string
	SignalTopic string
}

type SchedulerConfig struct {
	Interval  time.Duration
	Watchlist []string
}

type EngineConfig struct {
	SignalLookbackDays  int
	BacktestConcurrency int
	RiskFreeRate        float64
	InitialCapital      float64
}

// AppConfig is the full service configuration.
type AppConfig struct {
	Server    ServerConfig
	Log       LogConfig
	Storage   StorageConfig
	Feed      FeedConfig
	Kafka     KafkaConfig
	Scheduler SchedulerConfig
	Engine    EngineConfig
}

// Load reads configuration. Environment variables win over CONFIG_FILE
// values, which win over defaults. A missing .env file is ignored.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("STORAGE_BACKEND", StorageMemory)
	v.SetDefault("PRICE_FEED", FeedSynthetic)
	v.SetDefault("ALPHA_VANTAGE_URL", "https://www.alphavantage.co/query")
	v.SetDefault("NEWS_API_URL", "https://newsapi.org/v2")
	v.SetDefault("FINNHUB_WS_URL", "wss://ws.finnhub.io")
	v.SetDefault("KAFKA_SIGNAL_TOPIC", "trading.signals")
	v.SetDefault("SCHEDULER_INTERVAL", "1h")
	v.SetDefault("SIGNAL_LOOKBACK_DAYS", 100)
	v.SetDefault("BACKTEST_CONCURRENCY", 4)
	v.SetDefault("RISK_FREE_RATE", 0.02)
	v.SetDefault("INITIAL_CAPITAL", 10000.0)
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	interval, err := time.ParseDuration(v.GetString("SCHEDULER_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("%w: SCHEDULER_INTERVAL: %w", ErrInvalidConfig, err)
	}

	cfg := &AppConfig{
		Server: ServerConfig{
			Port: v.GetString("SERVER_PORT"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
		Storage: StorageConfig{
			Backend:       strings.ToLower(v.GetString("STORAGE_BACKEND")),
			PostgresDSN:   v.GetString("POSTGRES_DSN"),
			ClickhouseDSN: v.GetString("CLICKHOUSE_DSN"),
		},
		Feed: FeedConfig{
			Price:            strings.ToLower(v.GetString("PRICE_FEED")),
			AlphaVantageKey:  v.GetString("ALPHA_VANTAGE_API_KEY"),
			AlphaVantageURL:  v.GetString("ALPHA_VANTAGE_URL"),
			NewsAPIKey:       v.GetString("NEWS_API_KEY"),
			NewsAPIURL:       v.GetString("NEWS_API_URL"),
			AlpacaKey:        v.GetString("ALPACA_API_KEY"),
			AlpacaSecret:     v.GetString("ALPACA_API_SECRET"),
			FinnhubToken:     v.GetString("FINNHUB_TOKEN"),
			FinnhubStreamURL: v.GetString("FINNHUB_WS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:     SplitList(v.GetString("KAFKA_BROKERS")),
			SignalTopic: v.GetString("KAFKA_SIGNAL_TOPIC"),
		},
		Scheduler: SchedulerConfig{
			Interval:  interval,
			Watchlist: SplitList(v.GetString("WATCHLIST")),
		},
		Engine: EngineConfig{
			SignalLookbackDays:  v.GetInt("SIGNAL_LOOKBACK_DAYS"),
			BacktestConcurrency: v.GetInt("BACKTEST_CONCURRENCY"),
			RiskFreeRate:        v.GetFloat64("RISK_FREE_RATE"),
			InitialCapital:      v.GetFloat64("INITIAL_CAPITAL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *AppConfig) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: POSTGRES_DSN is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORAGE_BACKEND %q", ErrInvalidConfig, c.Storage.Backend)
	}

	switch c.Feed.Price {
	case FeedSynthetic:
	case FeedAlphaVantage:
		if c.Feed.AlphaVantageKey == "" {
			return fmt.Errorf("%w: ALPHA_VANTAGE_API_KEY is required for the alphavantage feed", ErrInvalidConfig)
		}
	case FeedAlpaca:
		if c.Feed.AlpacaKey == "" || c.Feed.AlpacaSecret == "" {
			return fmt.Errorf("%w: ALPACA_API_KEY and ALPACA_API_SECRET are required for the alpaca feed", ErrInvalidConfig)
		}
	case FeedClickhouse:
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("%w: CLICKHOUSE_DSN is required for the clickhouse feed", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown PRICE_FEED %q", ErrInvalidConfig, c.Feed.Price)
	}

	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("%w: SCHEDULER_INTERVAL must be positive", ErrInvalidConfig)
	}
	if c.Engine.SignalLookbackDays <= 0 {
		return fmt.Errorf("%w: SIGNAL_LOOKBACK_DAYS must be positive", ErrInvalidConfig)
	}
	if c.Engine.BacktestConcurrency <= 0 {
		return fmt.Errorf("%w: BACKTEST_CONCURRENCY must be positive", ErrInvalidConfig)
	}
	if c.Engine.InitialCapital <= 0 {
		return fmt.Errorf("%w: INITIAL_CAPITAL must be positive", ErrInvalidConfig)
	}
	return nil
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
