package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/region-insights/internal/pkg/metrics"
)

// SetupRoutes configures all routes. health may be nil.
func SetupRoutes(h *Handlers, health *HealthChecker, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if health != nil {
		r.Get("/health", health.HandleHealth)
		r.Get("/health/live", health.HandleLiveness)
		r.Get("/health/ready", health.HandleReadiness)
	}
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/regions", h.GetRegions)
		r.Get("/regions/{code}/review", h.GetRegionReview)
		r.Get("/regions/{code}/alerts/history", h.GetAlertHistory)
		r.Get("/overview", h.GetOverview)
		r.Get("/alerts", h.GetAlerts)
		r.Get("/reviews", h.GetReviews)
		r.Post("/reports/publish", h.PublishReport)
		r.Get("/reports/latest", h.GetLatestReport)
	})

	return r
}
