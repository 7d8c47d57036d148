package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"valuer/internal/http/handlers"
	"valuer/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer, middleware.Logger(logger))

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ingest", app.Ingest)
		r.Get("/lots", app.ListLots)
		r.Get("/lots/{lotRef}", app.GetLot)
	})

	return r
}
