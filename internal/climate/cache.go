package climate

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// CacheConfig holds configuration for CachingProvider.
type CacheConfig struct {
	// TTL is how long a fetched series is served without refetching (default: 1 hour).
	TTL time.Duration

	// GridSize is the size of cache grid cells in degrees (default: 0.01).
	// Coordinates within the same cell share cached series.
	GridSize float64

	// StaleIfErrorTTL allows serving expired series on provider errors (default: 24 hours).
	StaleIfErrorTTL time.Duration

	// MaxEntries bounds the cache; expired entries are swept first (default: 1024).
	MaxEntries int

	// FetchTimeout bounds a shared upstream fetch, which runs detached from
	// any single caller's cancellation (default: 30 seconds).
	FetchTimeout time.Duration

	Logger zerolog.Logger

	// Now is the cache clock (default: time.Now).
	Now func() time.Time
}

// CachingProvider wraps a Provider with a TTL cache. Concurrent misses for
// the same key share one upstream call; a caller that gives up stops waiting
// without cancelling the call for the others.
type CachingProvider struct {
	inner    Provider
	ttl      time.Duration
	gridSize float64
	stale    time.Duration
	max      int
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]*cachedSeries
}

type cachedSeries struct {
	series    map[string]RawSample
	fetchedAt time.Time
	expiresAt time.Time
}

// NewCachingProvider creates a caching decorator around inner.
func NewCachingProvider(inner Provider, cfg CacheConfig) *CachingProvider {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.GridSize <= 0 {
		cfg.GridSize = 0.01
	}
	if cfg.StaleIfErrorTTL <= 0 {
		cfg.StaleIfErrorTTL = 24 * time.Hour
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1024
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &CachingProvider{
		inner:    inner,
		ttl:      cfg.TTL,
		gridSize: cfg.GridSize,
		stale:    cfg.StaleIfErrorTTL,
		max:      cfg.MaxEntries,
		timeout:  cfg.FetchTimeout,
		logger:   cfg.Logger,
		now:      cfg.Now,
		entries:  make(map[string]*cachedSeries),
	}
}

// Name returns the wrapped provider's name.
func (c *CachingProvider) Name() string {
	return c.inner.Name()
}

// FetchSeries returns cached series when fresh, otherwise fetches and caches them.
func (c *CachingProvider) FetchSeries(ctx context.Context, coord Coordinate, codes []string, window DateRange) (map[string]RawSample, error) {
	key := c.cacheKey(coord, codes, window)

	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(cached.expiresAt) {
		return copySeries(cached.series), nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		series, err := c.inner.FetchSeries(fetchCtx, coord, codes, window)
		if err != nil {
			return nil, err
		}
		c.store(key, series)
		return series, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	if err := res.Err; err != nil {
		if ok && c.now().Before(cached.fetchedAt.Add(c.stale)) {
			c.logger.Warn().Err(err).
				Str("provider", c.inner.Name()).
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale climatology series due to provider error")
			return copySeries(cached.series), nil
		}
		return nil, err
	}
	return copySeries(res.Val.(map[string]RawSample)), nil
}

// Len returns the number of cached entries.
func (c *CachingProvider) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *CachingProvider) store(key string, series map[string]RawSample) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		c.evictLocked(now)
	}
	c.entries[key] = &cachedSeries{
		series:    copySeries(series),
		fetchedAt: now,
		expiresAt: now.Add(c.ttl),
	}
}

// evictLocked drops entries past their stale window, or the oldest entry
// if none have aged out.
func (c *CachingProvider) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if now.After(e.fetchedAt.Add(c.stale)) {
			delete(c.entries, k)
			continue
		}
		if oldestKey == "" || e.fetchedAt.Before(oldest) {
			oldestKey, oldest = k, e.fetchedAt
		}
	}
	if len(c.entries) >= c.max && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// cacheKey groups nearby coordinates into grid cells. Code order does not matter.
func (c *CachingProvider) cacheKey(coord Coordinate, codes []string, window DateRange) string {
	gridLat := math.Floor(coord.Lat/c.gridSize) * c.gridSize
	gridLon := math.Floor(coord.Lon/c.gridSize) * c.gridSize
	sorted := slices.Clone(codes)
	slices.Sort(sorted)
	return fmt.Sprintf("%.4f:%.4f|%s|%s|%s",
		gridLat, gridLon, strings.Join(sorted, ","),
		window.Start.Format("20060102"), window.End.Format("20060102"))
}

func copySeries(in map[string]RawSample) map[string]RawSample {
	out := make(map[string]RawSample, len(in))
	for k, s := range in {
		out[k] = RawSample{Values: slices.Clone(s.Values)}
	}
	return out
}
