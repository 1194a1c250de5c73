package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBacktest(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.BacktestsRun.WithLabelValues("RSI_STRATEGY", "success"))
	RecordBacktest("RSI_STRATEGY", "success", 0.25)
	after := testutil.ToFloat64(DefaultMetrics.BacktestsRun.WithLabelValues("RSI_STRATEGY", "success"))

	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %f", after-before)
	}
}

func TestRecordFeedFetch_CountsErrors(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.FeedErrors.WithLabelValues("alphavantage"))
	RecordFeedFetch("alphavantage", 0.1, nil)
	RecordFeedFetch("alphavantage", 0.1, errors.New("boom"))
	after := testutil.ToFloat64(DefaultMetrics.FeedErrors.WithLabelValues("alphavantage"))

	if after-before != 1 {
		t.Errorf("expected 1 error recorded, got %f", after-before)
	}
}

func TestRecordSignalRun_UpdatesHealthGauge(t *testing.T) {
	RecordSignalRun("success", 1700000000)
	if got := testutil.ToFloat64(DefaultMetrics.LastSuccessfulSignalRun); got != 1700000000 {
		t.Errorf("expected gauge 1700000000, got %f", got)
	}

	RecordSignalRun("error", 1800000000)
	if got := testutil.ToFloat64(DefaultMetrics.LastSuccessfulSignalRun); got != 1700000000 {
		t.Errorf("expected gauge unchanged after failed run, got %f", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordTrades(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "market_signal_lab_backtest_trades_simulated_total") {
		t.Error("expected trades counter in output")
	}
}
