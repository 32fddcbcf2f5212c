package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SetupRouter creates and configures a Chi router with all API routes
func (s *Server) SetupRouter() http.Handler {
	r := chi.NewRouter()

	// Built-in Chi middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Custom middleware
	r.Use(s.LoggingMiddleware)

	r.Get("/api/health", s.HealthHandler)

	r.Route("/api/hosts", func(r chi.Router) {
		r.Get("/", s.HostsHandler)
		r.Get("/{host}", s.HostHandler)
		r.Get("/{host}/rates", s.HostRatesHandler)
		r.Post("/{host}/poll", s.PollHandler)
	})

	r.Post("/api/pause", s.PauseHandler)
	r.Post("/api/resume", s.ResumeHandler)

	if s.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler)
	}

	return r
}
