// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Signal metrics
	SignalsGenerated *prometheus.CounterVec
	SignalRuns       *prometheus.CounterVec
	SignalsPublished *prometheus.CounterVec

	// Backtest metrics
	BacktestsRun     *prometheus.CounterVec
	BacktestDuration *prometheus.HistogramVec
	TradesSimulated  prometheus.Counter
	SymbolsSkipped   *prometheus.CounterVec

	// Feed metrics
	FeedFetchLatency *prometheus.HistogramVec
	FeedErrors       *prometheus.CounterVec
	NewsReceived     prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulSignalRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "market_signal_lab"
	}

	return &Metrics{
		// Signal metrics
		SignalsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "generated_total",
			Help:      "Total number of signals generated by source and type",
		}, []string{"source", "type"}),
		SignalRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "runs_total",
			Help:      "Total number of signal generation runs by status",
		}, []string{"status"}),
		SignalsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "published_total",
			Help:      "Total number of signals published to the broker by status",
		}, []string{"status"}),

		// Backtest metrics
		BacktestsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtests run by strategy and status",
		}, []string{"strategy", "status"}),
		BacktestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}, []string{"strategy"}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
		SymbolsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "symbols_skipped_total",
			Help:      "Total number of symbols skipped for lack of data",
		}, []string{"component", "reason"}),

		// Feed metrics
		FeedFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "fetch_latency_seconds",
			Help:      "Market data fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"feed"}),
		FeedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of market data fetch errors",
		}, []string{"feed"}),
		NewsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "news_received_total",
			Help:      "Total number of news items received from streams",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulSignalRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_signal_run_timestamp",
			Help:      "Unix timestamp of last successful signal generation run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSignal increments the generated signals counter.
func RecordSignal(source, signalType string) {
	DefaultMetrics.SignalsGenerated.WithLabelValues(source, signalType).Inc()
}

// RecordSignalRun records a signal generation run.
func RecordSignalRun(status string, finishedAt float64) {
	DefaultMetrics.SignalRuns.WithLabelValues(status).Inc()
	if status == "success" {
		DefaultMetrics.LastSuccessfulSignalRun.Set(finishedAt)
	}
}

// RecordSignalPublished records a broker publish attempt.
func RecordSignalPublished(status string) {
	DefaultMetrics.SignalsPublished.WithLabelValues(status).Inc()
}

// RecordBacktest records a backtest run.
func RecordBacktest(strategy, status string, durationSeconds float64) {
	DefaultMetrics.BacktestsRun.WithLabelValues(strategy, status).Inc()
	DefaultMetrics.BacktestDuration.WithLabelValues(strategy).Observe(durationSeconds)
}

// RecordTrades adds n to the simulated trades counter.
func RecordTrades(n int) {
	DefaultMetrics.TradesSimulated.Add(float64(n))
}

// RecordSymbolSkipped records a symbol dropped from a run.
func RecordSymbolSkipped(component, reason string) {
	DefaultMetrics.SymbolsSkipped.WithLabelValues(component, reason).Inc()
}

// RecordFeedFetch records market data fetch latency and errors.
func RecordFeedFetch(feed string, seconds float64, err error) {
	DefaultMetrics.FeedFetchLatency.WithLabelValues(feed).Observe(seconds)
	if err != nil {
		DefaultMetrics.FeedErrors.WithLabelValues(feed).Inc()
	}
}

// RecordNewsReceived increments the streamed news counter.
func RecordNewsReceived() {
	DefaultMetrics.NewsReceived.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
