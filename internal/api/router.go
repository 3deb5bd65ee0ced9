// Package api provides the HTTP API for weatherodds.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/weatherodds/weatherodds/internal/api/handler"
	"github.com/weatherodds/weatherodds/internal/api/middleware"
	"github.com/weatherodds/weatherodds/internal/api/models"
	"github.com/weatherodds/weatherodds/internal/climate"
	"github.com/weatherodds/weatherodds/internal/history"
	"github.com/weatherodds/weatherodds/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Service runs analyses. If nil, a provider-less service that always
	// answers from fallback data is used.
	Service *climate.Service

	// History keeps analyses for lookup and re-export by ID. Optional.
	History history.Repository

	// Registry backs /v1/ops/status. Optional.
	Registry *resilience.Registry

	// RequireTLS rejects plain-HTTP requests forwarded by a proxy.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "weatherodds-api"
	}

	service := cfg.Service
	if service == nil {
		service = climate.NewService(climate.ServiceConfig{Logger: cfg.Logger})
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind a proxy

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		models.NewNotFound(middleware.GetRequestID(r.Context()), "no route matches "+r.URL.Path).
			WithInstance(r.URL.Path).
			Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		models.NewMethodNotAllowed(middleware.GetRequestID(r.Context()), r.Method, r.URL.Path).
			WithInstance(r.URL.Path).
			Write(w)
	})

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry)
	metadataHandler := handler.NewMetadataHandler()
	analysisHandler := handler.NewAnalysisHandler(service, cfg.History)

	analysisRateLimit := middleware.RateLimitByIP(middleware.AnalysisRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(standardRateLimit).Get("/status", opsHandler.SystemStatus)
		})

		// Metadata endpoints - standard rate limiting
		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/parameters", metadataHandler.ListParameters)
		})

		// Analyses call the climatology provider - strict rate limiting
		r.Group(func(r chi.Router) {
			r.Use(analysisRateLimit)
			r.Use(middleware.RequireJSON)
			r.Post("/analyses", analysisHandler.Analyze)
			r.Post("/analyses:export", analysisHandler.Export)
		})

		// Stored analyses are read-only lookups
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/analyses", analysisHandler.List)
			r.Get("/analyses/{analysisId}", analysisHandler.Get)
			r.Get("/analyses/{analysisId}/export", analysisHandler.ExportStored)
		})
	})

	return r
}
