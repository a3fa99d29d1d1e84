package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// buildRouter constructs the chi router with all routes and middleware.
func (s *server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware())

	if s.cfg.Server.RateLimit.Enabled {
		s.rateLimiter = newRateLimiterMap(
			s.cfg.Server.RateLimit.RequestsPerMinute,
		)
		r.Use(s.rateLimitMiddleware(s.rateLimiter))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Test records.
		r.Route("/tests", func(r chi.Router) {
			r.Get("/", s.handleQueryTests)
			r.Post("/", s.handleSubmitTest)
			r.Get("/{id}", s.handleGetTest)
			r.Delete("/{id}", s.handleDeleteTest)
			r.Post("/{id}/repair", s.handleGenerateRepair)
		})

		// Repair records.
		r.Route("/repairs", func(r chi.Router) {
			r.Get("/", s.handleQueryRepairs)
			r.Get("/{id}", s.handleGetRepair)
			r.Delete("/{id}", s.handleDeleteRepair)
			r.Post("/{id}/status", s.handleTransitionRepair)
			r.Post("/{id}/steps", s.handleAppendStep)
			r.Post("/{id}/checks", s.handleAddQualityCheck)
			r.Post("/{id}/materials", s.handleAddMaterial)
		})

		// Derived views.
		r.Get("/assets/{serial}/history", s.handleAssetHistory)
		r.Get("/stats", s.handleFleetStats)
	})

	return r
}

// corsMiddleware returns a CORS handler configured from the server config.
func (s *server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	origins := s.cfg.Server.CORSOrigins

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// Reflect the requesting origin so credentials work from any origin.
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool {
			return true
		}
	} else {
		opts.AllowedOrigins = origins
	}

	return cors.Handler(opts)
}
