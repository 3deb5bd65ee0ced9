package config

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/weatherodds/weatherodds/internal/climate"
	"github.com/weatherodds/weatherodds/internal/climate/nasapower"
	"github.com/weatherodds/weatherodds/internal/database"
	"github.com/weatherodds/weatherodds/internal/history"
	"github.com/weatherodds/weatherodds/internal/provider/resilience"
)

// ServiceDeps are the process-wide collaborators passed to NewClimateService.
type ServiceDeps struct {
	Logger   zerolog.Logger
	Registry *resilience.Registry
	Metrics  *climate.Metrics
}

// NewClimateService wires the NASA POWER provider, its resilient HTTP client,
// the optional series cache and the seeded fallback into an analysis service.
func (c Config) NewClimateService(deps ServiceDeps) *climate.Service {
	cb := resilience.DefaultCircuitBreakerConfig(nasapower.ProviderName)
	cb.OnStateChange = resilience.LogStateChanges(deps.Logger)

	httpCfg := resilience.DefaultClientConfig(nasapower.ProviderName)
	httpCfg.Timeout = c.ProviderTimeout
	httpCfg.MaxRetries = c.ProviderMaxRetries
	httpCfg.CircuitBreaker = &cb
	httpCfg.Registry = deps.Registry

	var provider climate.Provider = nasapower.NewClient(nasapower.ClientConfig{
		BaseURL:    c.NASAPowerBaseURL,
		Community:  c.NASAPowerCommunity,
		HTTPClient: resilience.NewClient(httpCfg),
		Logger:     deps.Logger,
	})
	if c.ProviderCacheTTL > 0 {
		provider = climate.NewCachingProvider(provider, climate.CacheConfig{
			TTL:             c.ProviderCacheTTL,
			StaleIfErrorTTL: c.ProviderCacheStaleTTL,
			MaxEntries:      c.ProviderCacheMaxEntries,
			Logger:          deps.Logger,
		})
	}

	return climate.NewService(climate.ServiceConfig{
		Provider:      provider,
		Fallback:      climate.NewSeededFallback(c.FallbackSeed, c.FallbackSamples),
		Logger:        deps.Logger,
		Metrics:       deps.Metrics,
		WindowYears:   c.WindowYears,
		SplitRequests: c.SplitRequests,
	})
}

// NewHistoryRepository opens the configured analysis store. The returned
// close func releases any pool and is never nil. A nil Repository means
// history is disabled.
func (c Config) NewHistoryRepository(ctx context.Context, log zerolog.Logger) (history.Repository, func(), error) {
	noop := func() {}

	switch c.HistoryBackend {
	case HistoryNone:
		log.Info().Msg("analysis history disabled")
		return nil, noop, nil
	case HistoryPostgres:
		dbCfg, err := database.ConfigFromEnv()
		if err != nil {
			return nil, noop, err
		}
		pool, err := database.Connect(ctx, dbCfg)
		if err != nil {
			return nil, noop, fmt.Errorf("connect history database: %w", err)
		}
		repo := history.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("migrate history schema: %w", err)
		}
		log.Info().Str("backend", HistoryPostgres).Msg("analysis history enabled")
		return repo, pool.Close, nil
	default:
		log.Info().Str("backend", HistoryMemory).Int("capacity", c.HistoryCapacity).Msg("analysis history enabled")
		return history.NewInMemoryRepository(c.HistoryCapacity), noop, nil
	}
}
