package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"market-signal-lab/internal/orchestrator"
)

type generateRequest struct {
	Symbols []string `json:"symbols"`
}

func (r *Router) generateSignals(w http.ResponseWriter, req *http.Request) {
	var body generateRequest
	if err := decodeBody(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols array is required and cannot be empty")
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), generateTimeout)
	defer cancel()

	out, err := r.signals.Generate(ctx, body.Symbols)
	if err != nil {
		r.writeServiceError(w, err, "failed to generate signals")
		return
	}
	count := len(out)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: out, Count: &count})
}

func (r *Router) listSignals(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	page, err := r.signals.Query(ctx, orchestrator.SignalQuery{
		Symbol:     q.Get("symbol"),
		SignalType: q.Get("signalType"),
		Source:     q.Get("source"),
		Page:       queryInt(req, "page", 1),
		Limit:      queryLimit(req, 0),
	})
	if err != nil {
		r.writeServiceError(w, err, "failed to fetch signals")
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    page.Signals,
		Pagination: &pagination{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	})
}

func (r *Router) recentSignals(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	out, err := r.signals.Recent(ctx, req.URL.Query().Get("symbol"), queryLimit(req, 0))
	if err != nil {
		r.writeServiceError(w, err, "failed to fetch recent signals")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: out})
}

func (r *Router) signalStats(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	stats, err := r.signals.Stats(ctx, queryInt(req, "days", 0))
	if err != nil {
		r.writeServiceError(w, err, "failed to fetch signal statistics")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: stats})
}

func (r *Router) getSignal(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	sig, err := r.signals.Get(ctx, chi.URLParam(req, "id"))
	if err != nil {
		r.writeServiceError(w, err, "failed to fetch signal")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: sig})
}

func (r *Router) deleteSignal(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	if err := r.signals.Delete(ctx, chi.URLParam(req, "id")); err != nil {
		r.writeServiceError(w, err, "failed to delete signal")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "signal deleted"})
}
