// Package server provides the HTTP server and routing for quantdash.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/quantdash/quantdash/internal/config"
	"github.com/quantdash/quantdash/internal/database"
	"github.com/quantdash/quantdash/internal/modules/analytics"
	analyticshandlers "github.com/quantdash/quantdash/internal/modules/analytics/handlers"
	"github.com/quantdash/quantdash/internal/modules/calculations"
	derivativeshandlers "github.com/quantdash/quantdash/internal/modules/derivatives/handlers"
	"github.com/quantdash/quantdash/internal/modules/indicators"
	indicatorshandlers "github.com/quantdash/quantdash/internal/modules/indicators/handlers"
	"github.com/quantdash/quantdash/internal/modules/risk"
	riskhandlers "github.com/quantdash/quantdash/internal/modules/risk/handlers"
	"github.com/quantdash/quantdash/internal/modules/universe"
	universehandlers "github.com/quantdash/quantdash/internal/modules/universe/handlers"
)

// Config holds everything the server needs to wire its routes
type Config struct {
	Log       zerolog.Logger
	Cfg       *config.Config
	HistoryDB *database.DB
	CacheDB   *database.DB

	History    *universe.HistoryDB
	Analytics  *analytics.Service
	Risk       *risk.Service
	Indicators *indicators.Service
	Analysis   *calculations.AnalysisService
}

// Server is the quantdash HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates the HTTP server and mounts all module routes
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures the middleware stack
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// Monte Carlo runs with large simulation counts can take a while
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes mounts every module's routes under /api
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)

	systemHandlers := NewSystemHandlers(cfg.HistoryDB, cfg.CacheDB, cfg.History, cfg.Log)

	universeHandler := universehandlers.NewHandler(cfg.History, cfg.Log)
	analyticsHandler := analyticshandlers.NewHandler(cfg.Analytics, cfg.Analysis, cfg.Cfg.BenchmarkSymbol, cfg.Log)
	riskHandler := riskhandlers.NewHandler(cfg.Risk, cfg.Log)
	derivativesHandler := derivativeshandlers.NewHandler(cfg.Cfg.RiskFreeRate, cfg.Log)
	indicatorsHandler := indicatorshandlers.NewHandler(cfg.Indicators, cfg.Log)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/system/status", systemHandlers.HandleSystemStatus)

		universeHandler.RegisterRoutes(r)
		analyticsHandler.RegisterRoutes(r)
		riskHandler.RegisterRoutes(r)
		derivativesHandler.RegisterRoutes(r)
		indicatorsHandler.RegisterRoutes(r)
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// loggingMiddleware logs each request with latency
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}

// Start begins serving HTTP requests, blocking until shutdown
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// Router exposes the chi router, used by handler tests
func (s *Server) Router() chi.Router {
	return s.router
}
