// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/weatherodds/weatherodds/internal/climate"
	"github.com/weatherodds/weatherodds/internal/climate/nasapower"
	"github.com/weatherodds/weatherodds/internal/history"
)

// Config holds the settings shared by the API server and the CLI.
type Config struct {
	Port        string
	Environment string

	// RequireTLS rejects plain-HTTP requests forwarded by a proxy.
	RequireTLS bool

	OTelEnabled     bool
	OTLPEndpoint    string
	OTelSampleRatio float64

	NASAPowerBaseURL   string
	NASAPowerCommunity string

	// WindowYears widens the reference date on each side.
	WindowYears int

	// SplitRequests issues one provider request per parameter code.
	SplitRequests bool

	ProviderTimeout    time.Duration
	ProviderMaxRetries uint64

	// ProviderCacheTTL of zero disables the series cache.
	ProviderCacheTTL        time.Duration
	ProviderCacheStaleTTL   time.Duration
	ProviderCacheMaxEntries int

	FallbackSeed    uint64
	FallbackSamples int

	// HistoryBackend is one of HistoryMemory, HistoryPostgres or HistoryNone.
	HistoryBackend  string
	HistoryCapacity int
}

// History backends.
const (
	HistoryMemory   = "memory"
	HistoryPostgres = "postgres"
	HistoryNone     = "none"
)

// LoadDotEnv loads variables from the given files (default: .env) without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv creates a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:               getEnvOrDefault("APP_PORT", "8080"),
		Environment:        getEnvOrDefault("APP_ENV", "development"),
		RequireTLS:         os.Getenv("REQUIRE_TLS") == "true",
		OTelEnabled:        os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint:       getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		NASAPowerBaseURL:   getEnvOrDefault("NASA_POWER_BASE_URL", nasapower.DefaultBaseURL),
		NASAPowerCommunity: getEnvOrDefault("NASA_POWER_COMMUNITY", nasapower.DefaultCommunity),
	}

	var err error
	if cfg.OTelSampleRatio, err = parseFloat("OTEL_SAMPLE_RATIO", "1"); err != nil {
		return Config{}, err
	}
	if cfg.WindowYears, err = parseInt("CLIMATE_WINDOW_YEARS", strconv.Itoa(climate.DefaultWindowYears)); err != nil {
		return Config{}, err
	}
	if cfg.WindowYears < 1 {
		return Config{}, fmt.Errorf("invalid CLIMATE_WINDOW_YEARS: must be at least 1")
	}
	if cfg.SplitRequests, err = parseBool("CLIMATE_SPLIT_REQUESTS", "false"); err != nil {
		return Config{}, err
	}
	if cfg.ProviderTimeout, err = parseDuration("PROVIDER_TIMEOUT", "10s"); err != nil {
		return Config{}, err
	}
	if cfg.ProviderMaxRetries, err = parseUint("PROVIDER_MAX_RETRIES", "0"); err != nil {
		return Config{}, err
	}
	if cfg.ProviderCacheTTL, err = parseDuration("PROVIDER_CACHE_TTL", "1h"); err != nil {
		return Config{}, err
	}
	if cfg.ProviderCacheStaleTTL, err = parseDuration("PROVIDER_CACHE_STALE_TTL", "24h"); err != nil {
		return Config{}, err
	}
	if cfg.ProviderCacheMaxEntries, err = parseInt("PROVIDER_CACHE_MAX_ENTRIES", "1024"); err != nil {
		return Config{}, err
	}
	if cfg.FallbackSeed, err = parseUint("FALLBACK_SEED", "0"); err != nil {
		return Config{}, err
	}
	if cfg.FallbackSamples, err = parseInt("FALLBACK_SAMPLES", strconv.Itoa(climate.DefaultFallbackSamples)); err != nil {
		return Config{}, err
	}

	cfg.HistoryBackend = getEnvOrDefault("HISTORY_BACKEND", HistoryMemory)
	switch cfg.HistoryBackend {
	case HistoryMemory, HistoryPostgres, HistoryNone:
	default:
		return Config{}, fmt.Errorf("invalid HISTORY_BACKEND: %q", cfg.HistoryBackend)
	}
	if cfg.HistoryCapacity, err = parseInt("HISTORY_CAPACITY", strconv.Itoa(history.DefaultCapacity)); err != nil {
		return Config{}, err
	}
	if cfg.HistoryCapacity < 1 {
		return Config{}, fmt.Errorf("invalid HISTORY_CAPACITY: must be at least 1")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key, def string) (int, error) {
	n, err := strconv.Atoi(getEnvOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseUint(key, def string) (uint64, error) {
	n, err := strconv.ParseUint(getEnvOrDefault(key, def), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key, def string) (float64, error) {
	f, err := strconv.ParseFloat(getEnvOrDefault(key, def), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parseBool(key, def string) (bool, error) {
	b, err := strconv.ParseBool(getEnvOrDefault(key, def))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnvOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
