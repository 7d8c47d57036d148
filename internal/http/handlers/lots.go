package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// GetLot returns the stored catalog record for one lot ref.
func (a *App) GetLot(w http.ResponseWriter, r *http.Request) {
	lotRef := chi.URLParam(r, "lotRef")
	if lotRef == "" {
		a.jsonError(w, http.StatusBadRequest, "lotRef is required")
		return
	}

	lot, err := a.Lots.GetByRef(r.Context(), lotRef)
	if err != nil {
		code := statusFromError(err)
		if code == http.StatusInternalServerError {
			a.Logger.Error().Err(err).Str("lot_ref", lotRef).Msg("lots: lookup failed")
			a.jsonError(w, code, "failed to load lot")
			return
		}
		a.jsonError(w, code, "lot not found")
		return
	}
	a.json(w, http.StatusOK, lot)
}

// ListLots returns the most recently processed lots.
func (a *App) ListLots(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	lots, err := a.Lots.ListRecent(r.Context(), limit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("lots: list failed")
		a.jsonError(w, http.StatusInternalServerError, "failed to list lots")
		return
	}
	a.json(w, http.StatusOK, lots)
}
