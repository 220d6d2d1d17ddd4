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

	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.corsMiddleware())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/runs", func(r chi.Router) {
			if s.cfg.RateLimit.Enabled {
				r.Use(s.rateLimitMiddleware(s.cfg.RateLimit.RequestsPerMinute))
			}

			r.Get("/", s.handleListRuns)
			r.Get("/{id}", s.handleGetRun)
			r.Get("/{id}/ranking", s.handleGetRanking)
			r.Get("/{id}/report", s.handleGetReport)
		})
	})

	return r
}

// corsMiddleware returns a CORS handler configured from the API config.
func (s *server) corsMiddleware() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}

	origins := s.cfg.CORSOrigins

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowOriginFunc = func(_ *http.Request, _ string) bool {
			return true
		}
	} else {
		opts.AllowedOrigins = origins
	}

	return cors.Handler(opts)
}
