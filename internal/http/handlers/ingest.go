package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"valuer/internal/domain"
	"valuer/internal/parser"
)

// ingestRequest wraps the raw search-results payload. Keeping data as raw
// JSON lets the parser preserve unrecognized hit fields.
type ingestRequest struct {
	Data json.RawMessage `json:"data"`
}

type ingestResponse struct {
	Parsed int                `json:"parsed"`
	Stored int                `json:"stored"`
	Images int                `json:"images"`
	Lots   []domain.StoredLot `json:"lots"`
}

// Ingest accepts a search-results payload, normalizes its hits into auction
// lots, runs the image pipeline over them and upserts the catalog records.
// Lots whose image failed are still stored, with a null storage path.
func (a *App) Ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.jsonError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil || len(req.Data) == 0 {
		a.jsonError(w, http.StatusBadRequest, "request must carry a data payload")
		return
	}

	if err := parser.ValidateSearchResults(req.Data); err != nil {
		a.Logger.Warn().Err(err).Msg("ingest: invalid payload structure")
		a.jsonError(w, http.StatusBadRequest, "invalid search-results structure")
		return
	}

	lots, err := parser.ParseSearchResults(req.Data, a.Logger)
	if err != nil {
		a.jsonError(w, http.StatusBadRequest, "failed to parse search results")
		return
	}
	if len(lots) == 0 {
		a.Logger.Warn().Msg("ingest: no auction lots in payload")
		a.json(w, http.StatusOK, ingestResponse{Lots: []domain.StoredLot{}})
		return
	}

	refs := a.Pipeline.ProcessAll(r.Context(), lots)

	stored, err := a.Lots.UpsertAll(r.Context(), lots, refs)
	if err != nil {
		a.Logger.Error().Err(err).Msg("ingest: upsert failed")
		a.jsonError(w, http.StatusInternalServerError, "failed to store auction lots")
		return
	}

	a.Logger.Info().
		Int("parsed", len(lots)).
		Int("stored", len(stored)).
		Int("images", len(refs)).
		Msg("ingest: payload processed")

	a.json(w, http.StatusOK, ingestResponse{
		Parsed: len(lots),
		Stored: len(stored),
		Images: len(refs),
		Lots:   stored,
	})
}

// statusFromError maps domain errors onto HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
