package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"measure-tracker/internal/cards"
	"measure-tracker/internal/filter"
	"measure-tracker/internal/logger"
)

// Deps are the collaborators the router serves from
type Deps struct {
	Store       DatasetStore
	Engine      *filter.Engine
	Cards       *cards.Deck
	Log         *logger.Logger
	MapboxToken string
}

// NewRouter creates and configures the Chi router
func NewRouter(deps Deps) http.Handler {
	h := NewHandlers(deps)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(Logger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/data", h.GetData)
		r.Get("/results", h.GetResults)
		r.Get("/projects", h.GetProjects)
		r.Get("/payments", h.GetPayments)
		r.Get("/viewport", h.GetViewport)
		r.Get("/filters/options", h.GetFilterOptions)
		r.Get("/category-card", h.GetCategoryCard)
		r.Get("/category-cards", h.GetCategoryCards)
		r.Get("/config", h.GetConfig)
		r.Post("/regenerate", h.Regenerate)
	})

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
