// Package http exposes the signal and backtest services over a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/orchestrator"
	"market-signal-lab/internal/portfolio"
	"market-signal-lab/internal/storage"
)

// UserHeader carries the caller's user id. Authentication happens upstream.
const UserHeader = "X-User-ID"

const (
	requestTimeout  = 10 * time.Second
	generateTimeout = 60 * time.Second
	maxBodyBytes    = 1 << 20
)

type SignalService interface {
	Generate(ctx context.Context, symbols []string) ([]*domain.Signal, error)
	Query(ctx context.Context, q orchestrator.SignalQuery) (*orchestrator.SignalPage, error)
	Recent(ctx context.Context, symbol string, limit int) ([]*domain.Signal, error)
	Get(ctx context.Context, id string) (*domain.Signal, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, days int) (*domain.SignalStats, error)
}

type BacktestService interface {
	Run(ctx context.Context, req orchestrator.BacktestRequest) (*domain.BacktestResult, error)
	List(ctx context.Context, userID string, page, limit int) ([]*domain.BacktestResult, int, error)
	Get(ctx context.Context, userID, id string) (*domain.BacktestResult, error)
	Delete(ctx context.Context, userID, id string) error
	Summary(ctx context.Context, userID string) (domain.BacktestSummary, error)
}

type PortfolioService interface {
	Create(ctx context.Context, req portfolio.CreateRequest) (*domain.Portfolio, error)
	List(ctx context.Context, userID string) ([]*domain.Portfolio, error)
	Get(ctx context.Context, userID, id string) (*domain.Portfolio, error)
	Delete(ctx context.Context, userID, id string) error
	AddPosition(ctx context.Context, userID, id string, req portfolio.PositionRequest) (*domain.Portfolio, error)
	RemovePosition(ctx context.Context, userID, id, symbol string, quantity int64) (*domain.Portfolio, error)
	Revalue(ctx context.Context, userID, id string) (*domain.Portfolio, error)
}

var (
	_ SignalService    = (*orchestrator.SignalService)(nil)
	_ BacktestService  = (*orchestrator.Backtester)(nil)
	_ PortfolioService = (*portfolio.Service)(nil)
)

// Router serves the API.
type Router struct {
	mux        chi.Router
	signals    SignalService
	backtests  BacktestService
	portfolios PortfolioService
	logger     zerolog.Logger
}

// New builds the router. A nil logger disables request logging.
func New(signals SignalService, backtests BacktestService, portfolios PortfolioService, logger *zerolog.Logger) *Router {
	r := &Router{
		mux:        chi.NewRouter(),
		signals:    signals,
		backtests:  backtests,
		portfolios: portfolios,
		logger:     zerolog.Nop(),
	}
	if logger != nil {
		r.logger = logger.With().Str("component", "http").Logger()
	}

	r.mux.Use(middleware.RequestID)
	r.mux.Use(middleware.RealIP)
	r.mux.Use(r.logRequests)
	r.mux.Use(middleware.Recoverer)

	r.mux.Get("/health", r.health)
	r.mux.Handle("/metrics", promhttp.Handler())

	r.mux.Route("/api/signals", func(api chi.Router) {
		api.Post("/generate", r.generateSignals)
		api.Get("/", r.listSignals)
		api.Get("/recent", r.recentSignals)
		api.Get("/stats", r.signalStats)
		api.Get("/{id}", r.getSignal)
		api.Delete("/{id}", r.deleteSignal)
	})

	r.mux.Route("/api/backtests", func(api chi.Router) {
		api.Use(requireUser)
		api.Post("/", r.runBacktest)
		api.Get("/", r.listBacktests)
		api.Get("/metrics", r.backtestMetrics)
		api.Get("/{id}", r.getBacktest)
		api.Delete("/{id}", r.deleteBacktest)
	})

	r.mux.Route("/api/portfolios", func(api chi.Router) {
		api.Use(requireUser)
		api.Post("/", r.createPortfolio)
		api.Get("/", r.listPortfolios)
		api.Get("/{id}", r.getPortfolio)
		api.Delete("/{id}", r.deletePortfolio)
		api.Post("/{id}/positions", r.addPosition)
		api.Delete("/{id}/positions/{symbol}", r.removePosition)
		api.Post("/{id}/update-values", r.revaluePortfolio)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: "healthy"})
}

func (r *Router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)
		r.logger.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(req.Context())).
			Msg("request")
	})
}

type userKey struct{}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		userID := req.Header.Get(UserHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, UserHeader+" header is required")
			return
		}
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), userKey{}, userID)))
	})
}

func userFrom(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

type envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Count      *int        `json:"count,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Error: msg})
}

// writeServiceError maps service errors to status codes.
func (r *Router) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidRequest), errors.Is(err, portfolio.ErrInvalidRequest),
		errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, portfolio.ErrPositionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		r.logger.Error().Err(err).Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func queryInt(req *http.Request, key string, def int) int {
	if v := req.URL.Query().Get(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

// queryLimit reads a page size, capped at storage.MaxPageLimit.
func queryLimit(req *http.Request, def int) int {
	return min(queryInt(req, "limit", def), storage.MaxPageLimit)
}

func decodeBody(w http.ResponseWriter, req *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	return dec.Decode(dst)
}

// parseTime accepts RFC3339 timestamps and plain dates.
func parseTime(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
