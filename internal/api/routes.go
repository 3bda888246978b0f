package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gestaopro/gestaopro-server/internal/auth"
)

// setupAPIRoutes sets up API routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Probes and metrics
	r.Route("/health", func(r chi.Router) {
		r.Get("/", s.HandleHealth)
		r.Get("/live", s.HandleLive)
		r.Get("/ready", s.HandleReady)
		r.Get("/db", s.HandleDatabaseHealth)
		r.Get("/detailed", s.HandleDetailedHealth)
	})
	r.Handle("/metrics", promhttp.Handler())

	// Auth routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.HandleSignup)
		r.Post("/signin", s.HandleSignin)
		r.Post("/signout", s.HandleSignout)
		r.With(s.authenticate).Get("/session", s.HandleSession)
	})

	// Table gateway
	r.Route("/data/{table}", func(r chi.Router) {
		r.Use(s.tableGuard)
		r.Use(s.authenticate)
		r.Use(auth.RequireTenant)
		r.Use(s.tableWriteRoles)

		r.Get("/", s.HandleListRows)
		r.Post("/", s.HandleCreateRow)
		r.Put("/{id}", s.HandleUpdateRow)
		r.Delete("/{id}", s.HandleDeleteRow)
	})
}
