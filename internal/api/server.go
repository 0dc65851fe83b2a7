// Package api provides the HTTP API server and handlers for the ReadingNook
// server.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/readingnook/readingnook-server/internal/http/response"
	"github.com/readingnook/readingnook-server/internal/metrics"
	"github.com/readingnook/readingnook-server/internal/ratelimit"
	"github.com/readingnook/readingnook-server/internal/search"
	"github.com/readingnook/readingnook-server/internal/sse"
	"github.com/readingnook/readingnook-server/internal/store"
)

// Options tunes the HTTP surface.
type Options struct {
	Title       string
	Version     string
	CORSOrigins []string

	// AssistLimiter throttles the lookup and suggest endpoints per client.
	// Nil disables throttling.
	AssistLimiter *ratelimit.KeyedRateLimiter
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      store.Repository
	index      *search.SearchIndex
	services   *Services
	sseHandler *sse.Handler
	sseManager *sse.Manager
	metrics    *metrics.Metrics
	router     *chi.Mux
	api        huma.API
	opts       Options
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	repo store.Repository,
	index *search.SearchIndex,
	services *Services,
	sseHandler *sse.Handler,
	sseManager *sse.Manager,
	m *metrics.Metrics,
	opts Options,
	logger *slog.Logger,
) *Server {
	if opts.Title == "" {
		opts.Title = "ReadingNook API"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		store:      repo,
		index:      index,
		services:   services,
		sseHandler: sseHandler,
		sseManager: sseManager,
		metrics:    m,
		router:     chi.NewRouter(),
		opts:       opts,
		logger:     logger,
	}

	s.setupMiddleware()
	s.setupAPI()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(clientIPMiddleware)
	s.router.Use(RateLimitMiddleware(s.opts.AssistLimiter, s.logger, "/api/v1/lookup", "/api/v1/suggest"))
	if s.services != nil && s.services.Auth != nil {
		s.router.Use(authMiddleware(s.services.Auth, s.logger))
	}
}

// setupAPI creates the huma API on top of the chi router.
func (s *Server) setupAPI() {
	humaConfig := huma.DefaultConfig(s.opts.Title, s.opts.Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerLibraryRoutes()
	s.registerSearchRoutes()
	s.registerSyncRoutes()
	s.registerSettingsRoutes()
	s.registerAssistRoutes()
	s.registerAuthRoutes()

	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.NotFound(w, "Not found", s.logger)
	})
}
