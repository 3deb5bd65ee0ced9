package climate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherodds/weatherodds/internal/climate"
	"github.com/weatherodds/weatherodds/internal/climate/nasapower"
	"github.com/weatherodds/weatherodds/internal/provider/resilience"
)

// mockProvider is a mock climatology provider for testing.
type mockProvider struct {
	mu      sync.Mutex
	calls   [][]string
	windows []climate.DateRange
	series  map[string][]float64
	failFor map[string]error
	err     error
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		series: map[string][]float64{
			"T2M":     {298.15, 300.15, 305.15},
			"PRECTOT": {0.001, 0.002, 0.003},
			"RH2M":    {60, 65, 70},
			"WS2M":    {3, 4, 5},
		},
		failFor: map[string]error{},
	}
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) FetchSeries(_ context.Context, _ climate.Coordinate, codes []string, window climate.DateRange) (map[string]climate.RawSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string(nil), codes...))
	m.windows = append(m.windows, window)

	if m.err != nil {
		return nil, m.err
	}

	out := make(map[string]climate.RawSample, len(codes))
	for _, c := range codes {
		if err, ok := m.failFor[c]; ok {
			return nil, err
		}
		if values, ok := m.series[c]; ok {
			out[c] = climate.RawSample{Values: append([]float64(nil), values...)}
		}
	}
	return out, nil
}

func (m *mockProvider) getCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func sanFranciscoQuery(t *testing.T, keys ...climate.ParameterKey) climate.Query {
	t.Helper()
	return climate.Query{
		Coordinate:    climate.Coordinate{Lat: 37.7749, Lon: -122.4194},
		Parameters:    keys,
		ReferenceDate: mustDate(t, "2024-07-15"),
	}
}

func TestService_Analyze(t *testing.T) {
	provider := newMockProvider()
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	service := climate.NewService(climate.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return now },
	})

	res, err := service.Analyze(context.Background(), sanFranciscoQuery(t, climate.ParamTemperature, climate.ParamHumidity))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Contains(t, res.ID, "ana_")
	assert.False(t, res.Fallback)
	assert.Equal(t, "mock", res.Provider)
	assert.Equal(t, now, res.GeneratedAt)
	assert.Equal(t, 2019, res.DateRange.Start.Year())
	assert.Equal(t, 2029, res.DateRange.End.Year())

	temp := res.Results[climate.ParamTemperature]
	assert.Equal(t, climate.ProvenanceProvider, temp.Provenance)
	require.False(t, temp.NoData())
	assert.Equal(t, 28.0, temp.Statistic.Average)
	assert.Equal(t, 89, temp.Estimate.ProbabilityPercent)
	assert.Equal(t, "°C", temp.Unit)

	calls := provider.getCalls()
	require.Len(t, calls, 1, "batched mode issues a single request")
	assert.Equal(t, []string{"T2M", "RH2M"}, calls[0])
}

func TestService_SharedProviderCodeRequestedOnce(t *testing.T) {
	provider := newMockProvider()
	service := climate.NewService(climate.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	res, err := service.Analyze(context.Background(), sanFranciscoQuery(t,
		climate.ParamPrecipitation, climate.ParamVeryWet, climate.ParamPrecipitation))
	require.NoError(t, err)

	assert.Equal(t, []climate.ParameterKey{climate.ParamPrecipitation, climate.ParamVeryWet}, res.Parameters)
	assert.Equal(t, []string{"PRECTOT"}, provider.getCalls()[0])
	assert.Equal(t,
		res.Results[climate.ParamPrecipitation].Statistic,
		res.Results[climate.ParamVeryWet].Statistic)
}

func TestService_ProviderFailureServesFallback(t *testing.T) {
	provider := newMockProvider()
	provider.err = errors.New("connection refused")

	service := climate.NewService(climate.ServiceConfig{
		Provider: provider,
		Fallback: climate.NewSeededFallback(1, 0),
		Logger:   zerolog.Nop(),
	})

	res, err := service.Analyze(context.Background(), sanFranciscoQuery(t, climate.ParamTemperature, climate.ParamWind))
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	for _, r := range res.Ordered() {
		assert.Equal(t, climate.ProvenanceFallback, r.Provenance)
		require.False(t, r.NoData())
		assert.Equal(t, climate.DefaultFallbackSamples, r.Statistic.SampleCount)
	}
}

func TestService_ProviderTimeoutServesFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	httpClient := resilience.NewClient(resilience.ClientConfig{
		Name:    "nasa-power",
		Timeout: 50 * time.Millisecond,
	})
	service := climate.NewService(climate.ServiceConfig{
		Provider: nasapower.NewClient(nasapower.ClientConfig{
			BaseURL:    server.URL,
			HTTPClient: httpClient,
		}),
		Logger: zerolog.Nop(),
	})

	res, err := service.Analyze(context.Background(), sanFranciscoQuery(t, climate.ParamTemperature))
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	temp := res.Results[climate.ParamTemperature]
	assert.Equal(t, climate.ProvenanceFallback, temp.Provenance)
	assert.False(t, temp.NoData())
}

func TestService_EmptyPrecipitationIsNoData(t *testing.T) {
	provider := newMockProvider()
	provider.series["PRECTOT"] = []float64{}

	service := climate.NewService(climate.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	res, err := service.Analyze(context.Background(), sanFranciscoQuery(t, climate.ParamPrecipitation, climate.ParamTemperature))
	require.NoError(t, err)

	precip, ok := res.Results[climate.ParamPrecipitation]
	require.True(t, ok, "no-data parameters are still present")
	assert.True(t, precip.NoData())
	assert.Nil(t, precip.Statistic)
	assert.Nil(t, precip.Estimate)
	assert.Equal(t, climate.ProvenanceProvider, precip.Provenance)
	assert.False(t, res.Fallback)

	assert.False(t, res.Results[climate.ParamTemperature].NoData())
}

func TestService_MissingCodeIsNoData(t *testing.T) {
	provider := newMockProvider()
	service := climate.NewService(climate.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	res, err := service.Analyze(context.Background(), sanFranciscoQuery(t, climate.ParamVeryWindy))
	require.NoError(t, err)

	assert.True(t, res.Results[climate.ParamVeryWindy].NoData())
	assert.False(t, res.Fallback)
}

func TestService_SplitRequests(t *testing.T) {
	provider := newMockProvider()
	provider.failFor["RH2M"] = errors.New("upstream 503")

	service := climate.NewService(climate.ServiceConfig{
		Provider:      provider,
		Logger:        zerolog.Nop(),
		SplitRequests: true,
	})

	res, err := service.Analyze(context.Background(), sanFranciscoQuery(t,
		climate.ParamTemperature, climate.ParamHumidity, climate.ParamWind, climate.ParamVeryUncomfortable))
	require.NoError(t, err)

	calls := provider.getCalls()
	require.Len(t, calls, 3, "one request per distinct code")
	flat := make([]string, 0, len(calls))
	for _, c := range calls {
		require.Len(t, c, 1)
		flat = append(flat, c[0])
	}
	sort.Strings(flat)
	assert.Equal(t, []string{"RH2M", "T2M", "WS2M"}, flat)

	assert.True(t, res.Fallback)
	assert.Equal(t, climate.ProvenanceProvider, res.Results[climate.ParamTemperature].Provenance)
	assert.Equal(t, climate.ProvenanceProvider, res.Results[climate.ParamWind].Provenance)
	assert.Equal(t, climate.ProvenanceFallback, res.Results[climate.ParamHumidity].Provenance)
	assert.Equal(t, climate.ProvenanceFallback, res.Results[climate.ParamVeryUncomfortable].Provenance)

	// Results join by key regardless of completion order.
	assert.Equal(t, 28.0, res.Results[climate.ParamTemperature].Statistic.Average)
	assert.Equal(t, 4.0, res.Results[climate.ParamWind].Statistic.Average)
}

func TestService_NoProviderServesFallback(t *testing.T) {
	service := climate.NewService(climate.ServiceConfig{
		Fallback: climate.FixtureFallback{Series: map[climate.ParameterKey][]float64{
			climate.ParamWind: {2, 2, 2},
		}},
		Logger: zerolog.Nop(),
	})

	res, err := service.Analyze(context.Background(), sanFranciscoQuery(t, climate.ParamWind, climate.ParamHumidity))
	require.NoError(t, err)

	assert.Equal(t, "none", res.Provider)
	assert.True(t, res.Fallback)
	assert.Equal(t, 95, res.Results[climate.ParamWind].Estimate.ProbabilityPercent)
	assert.True(t, res.Results[climate.ParamHumidity].NoData())
	assert.Equal(t, climate.ProvenanceFallback, res.Results[climate.ParamHumidity].Provenance)
}

func TestService_WindowYears(t *testing.T) {
	provider := newMockProvider()
	service := climate.NewService(climate.ServiceConfig{
		Provider:    provider,
		Logger:      zerolog.Nop(),
		WindowYears: 2,
	})

	_, err := service.Analyze(context.Background(), sanFranciscoQuery(t, climate.ParamTemperature))
	require.NoError(t, err)

	require.Len(t, provider.windows, 1)
	assert.Equal(t, 2022, provider.windows[0].Start.Year())
	assert.Equal(t, 2026, provider.windows[0].End.Year())
}

func TestService_ValidationErrors(t *testing.T) {
	provider := newMockProvider()
	service := climate.NewService(climate.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})
	ref := mustDate(t, "2024-07-15")

	tests := []struct {
		name  string
		query climate.Query
		field string
	}{
		{
			name:  "latitude out of range",
			query: climate.Query{Coordinate: climate.Coordinate{Lat: 91}, Parameters: []climate.ParameterKey{climate.ParamWind}, ReferenceDate: ref},
			field: "lat",
		},
		{
			name:  "longitude out of range",
			query: climate.Query{Coordinate: climate.Coordinate{Lon: 200}, Parameters: []climate.ParameterKey{climate.ParamWind}, ReferenceDate: ref},
			field: "lon",
		},
		{
			name:  "no parameters",
			query: climate.Query{ReferenceDate: ref},
			field: "parameters",
		},
		{
			name:  "unknown parameter",
			query: climate.Query{Parameters: []climate.ParameterKey{"snowfall"}, ReferenceDate: ref},
			field: "parameters",
		},
		{
			name:  "missing date",
			query: climate.Query{Parameters: []climate.ParameterKey{climate.ParamWind}},
			field: "date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := service.Analyze(context.Background(), tt.query)
			assert.Nil(t, res)

			var verr *climate.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, climate.ErrValidation)
		})
	}

	assert.Empty(t, provider.getCalls(), "validation happens before any I/O")
}

func TestService_ConcurrentAnalyze(t *testing.T) {
	provider := newMockProvider()
	service := climate.NewService(climate.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	query := sanFranciscoQuery(t, climate.ParamTemperature)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := service.Analyze(context.Background(), query)
			assert.NoError(t, err)
			assert.Equal(t, 89, res.Results[climate.ParamTemperature].Estimate.ProbabilityPercent)
		}()
	}
	wg.Wait()

	assert.Len(t, provider.getCalls(), 20)
}

func TestService_WithMetrics(t *testing.T) {
	metrics, err := climate.NewMetrics()
	require.NoError(t, err)

	service := climate.NewService(climate.ServiceConfig{
		Provider: newMockProvider(),
		Logger:   zerolog.Nop(),
		Metrics:  metrics,
	})

	_, err = service.Analyze(context.Background(), sanFranciscoQuery(t, climate.ParamWind))
	assert.NoError(t, err)
}

func TestService_CancelledBeforeFetch(t *testing.T) {
	provider := newMockProvider()
	service := climate.NewService(climate.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := service.Analyze(ctx, sanFranciscoQuery(t, climate.ParamTemperature))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Empty(t, provider.getCalls(), "provider is not called for an abandoned query")

	// Invalid input is still reported as such.
	_, err = service.Analyze(ctx, climate.Query{Coordinate: climate.Coordinate{Lat: 91}})
	assert.ErrorIs(t, err, climate.ErrValidation)
}

func TestService_AnalysisIDsUseFullUUID(t *testing.T) {
	service := climate.NewService(climate.ServiceConfig{Provider: newMockProvider(), Logger: zerolog.Nop()})

	res, err := service.Analyze(context.Background(), sanFranciscoQuery(t, climate.ParamWind))
	require.NoError(t, err)

	id, ok := strings.CutPrefix(res.ID, "ana_")
	require.True(t, ok)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}
