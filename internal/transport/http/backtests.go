package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/orchestrator"
)

type backtestPayload struct {
	Strategy   string            `json:"strategy"`
	Parameters domain.Parameters `json:"parameters"`
	Symbols    []string          `json:"symbols"`
	StartDate  string            `json:"startDate"`
	EndDate    string            `json:"endDate"`
	Name       string            `json:"name"`
}

func (r *Router) runBacktest(w http.ResponseWriter, req *http.Request) {
	var body backtestPayload
	if err := decodeBody(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Strategy == "" || len(body.Symbols) == 0 || body.StartDate == "" || body.EndDate == "" {
		writeError(w, http.StatusBadRequest, "strategy, symbols, startDate and endDate are required")
		return
	}
	start, ok := parseTime(body.StartDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid startDate")
		return
	}
	end, ok := parseTime(body.EndDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid endDate")
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), generateTimeout)
	defer cancel()

	result, err := r.backtests.Run(ctx, orchestrator.BacktestRequest{
		Strategy:   body.Strategy,
		Parameters: body.Parameters,
		Symbols:    body.Symbols,
		Start:      start,
		End:        end,
		UserID:     userFrom(req.Context()),
		Name:       body.Name,
	})
	if err != nil {
		r.writeServiceError(w, err, "failed to run backtest")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: result, Message: "backtest completed"})
}

func (r *Router) listBacktests(w http.ResponseWriter, req *http.Request) {
	page := queryInt(req, "page", 1)
	limit := queryLimit(req, orchestrator.DefaultListLimit)

	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	results, total, err := r.backtests.List(ctx, userFrom(req.Context()), page, limit)
	if err != nil {
		r.writeServiceError(w, err, "failed to fetch backtest history")
		return
	}
	if results == nil {
		results = []*domain.BacktestResult{}
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    results,
		Pagination: &pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	})
}

func (r *Router) backtestMetrics(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	summary, err := r.backtests.Summary(ctx, userFrom(req.Context()))
	if err != nil {
		r.writeServiceError(w, err, "failed to fetch backtest metrics")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: summary})
}

func (r *Router) getBacktest(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	result, err := r.backtests.Get(ctx, userFrom(req.Context()), chi.URLParam(req, "id"))
	if err != nil {
		r.writeServiceError(w, err, "failed to fetch backtest")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: result})
}

func (r *Router) deleteBacktest(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	if err := r.backtests.Delete(ctx, userFrom(req.Context()), chi.URLParam(req, "id")); err != nil {
		r.writeServiceError(w, err, "failed to delete backtest")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "backtest deleted"})
}
