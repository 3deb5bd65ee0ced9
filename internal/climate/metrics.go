package climate

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/weatherodds/weatherodds/internal/climate"

// Metrics holds the OpenTelemetry instruments for the analysis pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	analyses        metric.Int64Counter
	fallbacks       metric.Int64Counter
	providerLatency metric.Float64Histogram
}

// NewMetrics creates the pipeline instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	analyses, err := meter.Int64Counter(
		"climate.analysis.total",
		metric.WithDescription("Total number of completed analyses"),
		metric.WithUnit("{analysis}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"climate.fallback.total",
		metric.WithDescription("Parameters served from synthetic fallback data"),
		metric.WithUnit("{parameter}"),
	)
	if err != nil {
		return nil, err
	}

	providerLatency, err := meter.Float64Histogram(
		"climate.provider.request.duration",
		metric.WithDescription("Duration of climatology provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		analyses:        analyses,
		fallbacks:       fallbacks,
		providerLatency: providerLatency,
	}, nil
}

func (m *Metrics) recordAnalysis(ctx context.Context, fallback bool) {
	if m == nil {
		return
	}
	m.analyses.Add(ctx, 1, metric.WithAttributes(attribute.Bool("fallback", fallback)))
}

func (m *Metrics) recordFallback(ctx context.Context, key ParameterKey) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("parameter", string(key))))
}

func (m *Metrics) recordProviderCall(ctx context.Context, provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.providerLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider.name", provider),
		attribute.Bool("error", err != nil),
	))
}
