package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/scenario"
)

// Dependencies are the collaborators the handlers serve. Only Engine and
// Simulator are required.
type Dependencies struct {
	Engine    *engine.Engine
	Simulator *scenario.Simulator
	Scenarios domain.ScenarioStore
	Archive   domain.AssessmentRepository
	Cache     domain.Cache
	Bus       domain.EventBus
	Metrics   *metrics.Metrics

	// DefaultLanguage is used when a request names no supported language
	DefaultLanguage domain.Language
	Version         string
}

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, deps Dependencies) *Server {
	handler := NewHandler(deps)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)                           // CORS for browser clients
	router.Use(RecoverMiddleware)                        // Recover from panics
	router.Use(TracingMiddleware)                        // OpenTelemetry tracing
	router.Use(LanguageMiddleware(deps.DefaultLanguage)) // ?lang= / Accept-Language
	router.Use(LoggingMiddleware)                        // Request logging
	router.Use(middleware.RealIP)                        // Extract real IP
	router.Use(middleware.Compress(5))                   // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Handle("/metrics", deps.Metrics.Handler())

	// Scoring
	router.Post("/score", handler.Score)
	router.Get("/assessments/{id}", handler.GetAssessment)
	router.Get("/regions", handler.ListRegions)

	// Scenarios
	router.Post("/simulate", handler.Simulate)
	router.Post("/delta", handler.Delta)
	router.Get("/presets", handler.ListPresets)
	router.Get("/presets/{name}", handler.GetPreset)

	router.Route("/scenarios", func(r chi.Router) {
		r.Get("/", handler.ListScenarios)
		r.Post("/", handler.CreateScenario)
		r.Get("/{name}", handler.GetScenario)
		r.Put("/{name}", handler.UpdateScenario)
		r.Delete("/{name}", handler.DeleteScenario)
		r.Post("/{name}/run", handler.RunScenario)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
