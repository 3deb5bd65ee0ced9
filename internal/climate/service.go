package climate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Provider fetches raw climatology series.
type Provider interface {
	// FetchSeries returns one sample per requested provider code. A code the
	// provider has no data for maps to an empty sample or is omitted.
	FetchSeries(ctx context.Context, coord Coordinate, codes []string, window DateRange) (map[string]RawSample, error)

	// Name returns the provider name for logging.
	Name() string
}

// DefaultWindowYears widens the reference date by this many years on each side.
const DefaultWindowYears = 5

// maxSplitRequests bounds concurrent per-code requests in split mode.
const maxSplitRequests = 4

// ServiceConfig holds configuration for the analysis service.
type ServiceConfig struct {
	// Provider is the climatology data provider.
	Provider Provider

	// Fallback supplies synthetic data on provider failure.
	// If nil, a SeededFallback with seed 0 is used.
	Fallback FallbackSource

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics is optional.
	Metrics *Metrics

	// WindowYears widens the reference date (default: 5).
	WindowYears int

	// SplitRequests issues one provider request per code instead of a single
	// batched call.
	SplitRequests bool

	// Now is the clock used for GeneratedAt (default: time.Now).
	Now func() time.Time
}

// Service runs the fetch, normalize and estimate pipeline.
// It holds no per-query state and is safe for concurrent use.
type Service struct {
	provider    Provider
	fallback    FallbackSource
	logger      zerolog.Logger
	metrics     *Metrics
	windowYears int
	split       bool
	now         func() time.Time
}

// NewService creates a new analysis service.
func NewService(cfg ServiceConfig) *Service {
	fallback := cfg.Fallback
	if fallback == nil {
		fallback = NewSeededFallback(0, DefaultFallbackSamples)
	}

	windowYears := cfg.WindowYears
	if windowYears <= 0 {
		windowYears = DefaultWindowYears
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider:    cfg.Provider,
		fallback:    fallback,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		windowYears: windowYears,
		split:       cfg.SplitRequests,
		now:         now,
	}
}

// ProviderName returns the configured provider name, or "none".
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return "none"
	}
	return s.provider.Name()
}

// Analyze validates the query and runs the pipeline. It returns a
// *ValidationError for bad input, or ctx.Err() if the caller gave up before
// the fetch started; provider failures produce a result tagged as fallback.
func (s *Service) Analyze(ctx context.Context, q Query) (*AnalysisResult, error) {
	keys, window, err := s.validate(q)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "climate.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("climate.lat", q.Coordinate.Lat),
		attribute.Float64("climate.lon", q.Coordinate.Lon),
		attribute.Int("climate.parameters", len(keys)),
	)

	samples, failed := s.fetch(ctx, q.Coordinate, keys, window)

	result := &AnalysisResult{
		ID:            "ana_" + uuid.NewString(),
		Coordinate:    q.Coordinate,
		ReferenceDate: q.ReferenceDate,
		DateRange:     window,
		Parameters:    keys,
		Results:       make(map[ParameterKey]ParameterResult, len(keys)),
		Provider:      s.ProviderName(),
		GeneratedAt:   s.now().UTC(),
	}

	for _, key := range keys {
		spec, _ := Spec(key)
		raw := samples[spec.ProviderCode]
		provenance := ProvenanceProvider
		if _, ok := failed[spec.ProviderCode]; ok {
			raw = s.fallback.Sample(key, q.Coordinate, q.ReferenceDate)
			provenance = ProvenanceFallback
			result.Fallback = true
			s.metrics.recordFallback(ctx, key)
		}

		pr, err := s.evaluate(spec, raw, provenance)
		if err != nil {
			// Keys were validated above, so this indicates a registry bug.
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error().Err(err).Str("parameter", string(key)).Msg("failed to evaluate parameter")
		}
		result.Results[key] = pr
	}

	span.SetAttributes(attribute.Bool("climate.fallback", result.Fallback))
	s.metrics.recordAnalysis(ctx, result.Fallback)

	s.logger.Info().
		Str("analysis_id", result.ID).
		Float64("lat", q.Coordinate.Lat).
		Float64("lon", q.Coordinate.Lon).
		Int("parameters", len(keys)).
		Bool("fallback", result.Fallback).
		Msg("analysis completed")

	return result, nil
}

func (s *Service) validate(q Query) ([]ParameterKey, DateRange, error) {
	if err := q.Coordinate.Validate(); err != nil {
		return nil, DateRange{}, err
	}
	if len(q.Parameters) == 0 {
		return nil, DateRange{}, &ValidationError{Field: "parameters", Reason: "at least one parameter is required"}
	}
	if q.ReferenceDate.IsZero() {
		return nil, DateRange{}, &ValidationError{Field: "date", Reason: "reference date is required"}
	}

	keys := make([]ParameterKey, 0, len(q.Parameters))
	seen := make(map[ParameterKey]struct{}, len(q.Parameters))
	for _, k := range q.Parameters {
		if _, ok := Spec(k); !ok {
			return nil, DateRange{}, &ValidationError{Field: "parameters", Reason: fmt.Sprintf("unknown parameter %q", k)}
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	window := WindowAround(q.ReferenceDate, s.windowYears)
	if err := window.Validate(); err != nil {
		return nil, DateRange{}, err
	}
	return keys, window, nil
}

// fetch returns samples by provider code and the set of codes whose fetch failed.
func (s *Service) fetch(ctx context.Context, coord Coordinate, keys []ParameterKey, window DateRange) (map[string]RawSample, map[string]struct{}) {
	wanted := ProviderCodes(keys)
	failed := make(map[string]struct{})

	if s.provider == nil {
		for _, c := range wanted {
			failed[c] = struct{}{}
		}
		s.logger.Warn().Msg("no climate provider configured, serving fallback data")
		return map[string]RawSample{}, failed
	}

	if !s.split {
		samples, err := s.call(ctx, coord, wanted, window)
		if err != nil {
			for _, c := range wanted {
				failed[c] = struct{}{}
			}
			return map[string]RawSample{}, failed
		}
		return samples, failed
	}

	var mu sync.Mutex
	samples := make(map[string]RawSample, len(wanted))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxSplitRequests)
	for _, code := range wanted {
		g.Go(func() error {
			got, err := s.call(gCtx, coord, []string{code}, window)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[code] = struct{}{}
				// Isolate the failure to this code.
				return nil
			}
			samples[code] = got[code]
			return nil
		})
	}
	_ = g.Wait()

	return samples, failed
}

func (s *Service) call(ctx context.Context, coord Coordinate, providerCodes []string, window DateRange) (map[string]RawSample, error) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "climate.FetchSeries")
	defer span.End()

	start := time.Now()
	samples, err := s.provider.FetchSeries(ctx, coord, providerCodes, window)
	s.metrics.recordProviderCall(ctx, s.provider.Name(), time.Since(start), err)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).
			Str("provider", s.provider.Name()).
			Strs("codes", providerCodes).
			Float64("lat", coord.Lat).
			Float64("lon", coord.Lon).
			Msg("climate provider failed, serving fallback data")
		return nil, fmt.Errorf("%w: %w", ErrProviderFailed, err)
	}
	if samples == nil {
		samples = map[string]RawSample{}
	}
	return samples, nil
}

func (s *Service) evaluate(spec ParameterSpec, raw RawSample, provenance Provenance) (ParameterResult, error) {
	pr := ParameterResult{
		Key:         spec.Key,
		Title:       spec.Title,
		Description: spec.Description,
		Unit:        spec.Unit,
		Provenance:  provenance,
	}

	normalized, err := Normalize(spec.Key, raw)
	if err != nil {
		return pr, err
	}
	stat, est, err := Estimate(spec.Key, normalized)
	if err != nil {
		return pr, err
	}
	pr.Statistic = stat
	pr.Estimate = est
	return pr, nil
}
