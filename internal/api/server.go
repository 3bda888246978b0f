package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/gestaopro/gestaopro-server/internal/auth"
	"github.com/gestaopro/gestaopro-server/internal/config"
	"github.com/gestaopro/gestaopro-server/internal/events"
	"github.com/gestaopro/gestaopro-server/internal/gateway"
	"github.com/gestaopro/gestaopro-server/internal/observability"
	"github.com/gestaopro/gestaopro-server/internal/schema"
	"github.com/gestaopro/gestaopro-server/internal/storage"
	"github.com/gestaopro/gestaopro-server/internal/validation"
)

// RESTServer represents the REST API server
type RESTServer struct {
	config    *config.Config
	store     storage.Store
	registry  *schema.Registry
	tokens    *auth.JWTManager
	auth      *auth.Service
	gateway   *gateway.Gateway
	validator *validation.Validator
	router    chi.Router
	server    *http.Server
	startedAt time.Time
}

// NewRESTServer creates a new REST API server. publisher may be nil.
func NewRESTServer(cfg *config.Config, store storage.Store, publisher events.Publisher) *RESTServer {
	registry := schema.Default()
	tokens := auth.NewJWTManager(&cfg.JWT)

	s := &RESTServer{
		config:    cfg,
		store:     store,
		registry:  registry,
		tokens:    tokens,
		auth:      auth.NewService(store, tokens, &cfg.Auth),
		gateway:   gateway.New(registry, store, publisher, &cfg.Gateway),
		validator: validation.NewValidator(),
		router:    chi.NewRouter(),
		startedAt: time.Now(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.API.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root HTTP handler
func (s *RESTServer) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.config.API.RequestTimeout))
	s.router.Use(observability.MetricsMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.API.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.setupAPIRoutes(s.router)

	// Web UI for every other path
	webDir := s.config.Web.StaticDir
	if info, err := os.Stat(webDir); err != nil || !info.IsDir() {
		log.Warn().Str("dir", webDir).Msg("Web directory not found, Web UI will not be available")
		s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, http.StatusNotFound, "Rota não encontrada")
		})
		return
	}

	log.Info().Str("dir", webDir).Msg("Serving Web UI from directory")
	s.router.NotFound(spaHandler(webDir))
}

// spaHandler serves files from dir; paths without an extension get index.html
func spaHandler(dir string) http.HandlerFunc {
	fs := http.FileServer(http.Dir(dir))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		if r.URL.Path == "/" || !strings.Contains(filepath.Base(r.URL.Path), ".") {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}

		fs.ServeHTTP(w, r)
	}
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr

	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authenticate is the bearer token middleware
func (s *RESTServer) authenticate(next http.Handler) http.Handler {
	return auth.Middleware(s.tokens, s.store)(next)
}

// tableGuard rejects unregistered tables before authentication
func (s *RESTServer) tableGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.registry.Lookup(chi.URLParam(r, "table")); !ok {
			s.respondError(w, http.StatusBadRequest, msgTableNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// tableWriteRoles applies RequireRole to mutations of tables with write roles
func (s *RESTServer) tableWriteRoles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		table, _ := s.registry.Lookup(chi.URLParam(r, "table"))
		if r.Method == http.MethodGet || table == nil || len(table.Policy.WriteRoles) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		auth.RequireRole(table.Policy.WriteRoles...)(next).ServeHTTP(w, r)
	})
}
