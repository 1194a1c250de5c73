package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"market-signal-lab/internal/domain"
	"market-signal-lab/internal/portfolio"
)

func (r *Router) createPortfolio(w http.ResponseWriter, req *http.Request) {
	var body portfolio.CreateRequest
	if err := decodeBody(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Name == "" || body.InitialCapital == 0 {
		writeError(w, http.StatusBadRequest, "name and initialCapital are required")
		return
	}
	body.UserID = userFrom(req.Context())

	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	p, err := r.portfolios.Create(ctx, body)
	if err != nil {
		r.writeServiceError(w, err, "failed to create portfolio")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: p, Message: "portfolio created"})
}

func (r *Router) listPortfolios(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	list, err := r.portfolios.List(ctx, userFrom(req.Context()))
	if err != nil {
		r.writeServiceError(w, err, "failed to fetch portfolios")
		return
	}
	if list == nil {
		list = []*domain.Portfolio{}
	}
	n := len(list)
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: list, Count: &n})
}

func (r *Router) getPortfolio(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	p, err := r.portfolios.Get(ctx, userFrom(req.Context()), chi.URLParam(req, "id"))
	if err != nil {
		r.writeServiceError(w, err, "failed to fetch portfolio")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: p})
}

func (r *Router) deletePortfolio(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	if err := r.portfolios.Delete(ctx, userFrom(req.Context()), chi.URLParam(req, "id")); err != nil {
		r.writeServiceError(w, err, "failed to delete portfolio")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "portfolio deleted"})
}

func (r *Router) addPosition(w http.ResponseWriter, req *http.Request) {
	var body portfolio.PositionRequest
	if err := decodeBody(w, req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Symbol == "" || body.Quantity == 0 || body.AveragePrice == 0 {
		writeError(w, http.StatusBadRequest, "symbol, quantity and averagePrice are required")
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	p, err := r.portfolios.AddPosition(ctx, userFrom(req.Context()), chi.URLParam(req, "id"), body)
	if err != nil {
		r.writeServiceError(w, err, "failed to add position")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: p, Message: "position added"})
}

// removePosition sells ?quantity= shares, or the whole holding when omitted.
func (r *Router) removePosition(w http.ResponseWriter, req *http.Request) {
	var quantity int64
	if v := req.URL.Query().Get("quantity"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "quantity must be a positive integer")
			return
		}
		quantity = parsed
	}

	ctx, cancel := context.WithTimeout(req.Context(), requestTimeout)
	defer cancel()

	p, err := r.portfolios.RemovePosition(ctx, userFrom(req.Context()),
		chi.URLParam(req, "id"), chi.URLParam(req, "symbol"), quantity)
	if err != nil {
		r.writeServiceError(w, err, "failed to remove position")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: p, Message: "position removed"})
}

func (r *Router) revaluePortfolio(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), generateTimeout)
	defer cancel()

	p, err := r.portfolios.Revalue(ctx, userFrom(req.Context()), chi.URLParam(req, "id"))
	if err != nil {
		r.writeServiceError(w, err, "failed to update portfolio values")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: p, Message: "portfolio values updated"})
}
