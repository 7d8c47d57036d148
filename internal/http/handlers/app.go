package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"valuer/internal/domain"
	"valuer/internal/infra"
)

// ImagePipeline is the slice of the image pipeline the handlers depend on.
type ImagePipeline interface {
	ProcessAll(ctx context.Context, lots []domain.AuctionLot) map[string]string
}

// LotStore is the persistence contract used by the handlers.
type LotStore interface {
	UpsertAll(ctx context.Context, lots []domain.AuctionLot, refs map[string]string) ([]domain.StoredLot, error)
	GetByRef(ctx context.Context, lotRef string) (domain.StoredLot, error)
	ListRecent(ctx context.Context, limit int) ([]domain.StoredLot, error)
}

// App bundles the dependencies shared by all handlers.
type App struct {
	Logger   infra.Logger
	Pipeline ImagePipeline
	Lots     LotStore
}

func NewApp(logger infra.Logger, pipeline ImagePipeline, lots LotStore) *App {
	return &App{Logger: logger, Pipeline: pipeline, Lots: lots}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]string{"error": message})
}
