// Package server provides the HTTP server and routing for the analytics
// engine.
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

	"github.com/ledgerscope/ledgerscope/internal/config"
	"github.com/ledgerscope/ledgerscope/internal/modules/anomalies"
	anomalieshandlers "github.com/ledgerscope/ledgerscope/internal/modules/anomalies/handlers"
	"github.com/ledgerscope/ledgerscope/internal/modules/cohorts"
	cohortshandlers "github.com/ledgerscope/ledgerscope/internal/modules/cohorts/handlers"
	"github.com/ledgerscope/ledgerscope/internal/modules/correlation"
	correlationhandlers "github.com/ledgerscope/ledgerscope/internal/modules/correlation/handlers"
	"github.com/ledgerscope/ledgerscope/internal/modules/forecasting"
	forecastinghandlers "github.com/ledgerscope/ledgerscope/internal/modules/forecasting/handlers"
	metricshandlers "github.com/ledgerscope/ledgerscope/internal/modules/metrics/handlers"
	"github.com/ledgerscope/ledgerscope/internal/modules/query"
	queryhandlers "github.com/ledgerscope/ledgerscope/internal/modules/query/handlers"
)

// Config holds server configuration
type Config struct {
	Log     zerolog.Logger
	Config  *config.Config
	Port    int
	DevMode bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server with all module routes registered
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		systemHandlers: NewSystemHandlers(cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.Log)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(log zerolog.Logger) {
	maxBatch := s.cfg.MaxBatchSize

	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/system/info", s.systemHandlers.HandleSystemInfo)

	detectorCfg := anomalies.DetectorConfig{
		LookbackMonths:      s.cfg.AnomalyLookbackMonths,
		RecentWindowMonths:  s.cfg.AnomalyRecentMonths,
		AbsoluteFloor:       s.cfg.AnomalyAbsoluteFloor,
		MaxFilteredFraction: s.cfg.OutlierFilterMaxDrop,
	}

	metricshandlers.NewHandler(maxBatch, log).RegisterRoutes(s.router)
	anomalieshandlers.NewHandler(detectorCfg, maxBatch, log).RegisterRoutes(s.router)
	forecastinghandlers.NewHandler(forecasting.NewService(log), maxBatch, log).RegisterRoutes(s.router)
	correlationhandlers.NewHandler(correlation.NewService(log), maxBatch, log).RegisterRoutes(s.router)
	cohortshandlers.NewHandler(cohorts.NewService(log), maxBatch, log).RegisterRoutes(s.router)
	queryhandlers.NewHandler(query.NewEngine(log), maxBatch, log).RegisterRoutes(s.router)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
