// Package main provides the entrypoint for the weatherodds API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/weatherodds/weatherodds/internal/api"
	"github.com/weatherodds/weatherodds/internal/api/middleware"
	"github.com/weatherodds/weatherodds/internal/climate"
	"github.com/weatherodds/weatherodds/internal/config"
	"github.com/weatherodds/weatherodds/internal/provider/resilience"
	"github.com/weatherodds/weatherodds/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "weatherodds-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting weatherodds API")

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("failed to load .env")
	}
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Float64("sample_ratio", cfg.OTelSampleRatio).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize HTTP metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	climateMetrics, err := climate.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize climate metrics")
		os.Exit(1)
	}

	// Wire the analysis pipeline
	registry := resilience.NewRegistry()
	service := cfg.NewClimateService(config.ServiceDeps{
		Logger:   log,
		Registry: registry,
		Metrics:  climateMetrics,
	})
	log.Info().
		Str("provider", service.ProviderName()).
		Str("base_url", cfg.NASAPowerBaseURL).
		Int("window_years", cfg.WindowYears).
		Bool("split_requests", cfg.SplitRequests).
		Msg("climate service initialized")

	store, closeHistory, err := cfg.NewHistoryRepository(ctx, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize analysis history")
		os.Exit(1)
	}
	defer closeHistory()

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     httpMetrics,
		Service:     service,
		Registry:    registry,
		History:     store,
		RequireTLS:  cfg.RequireTLS,
	})

	// Provider calls are bounded by ProviderTimeout; leave headroom for encoding.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.ProviderTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		closeHistory()
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
