// Package climate derives historical weather probabilities from climatology series.
//
// The pipeline is Fetcher -> Normalizer -> Estimator. Only input validation errors
// reach the caller; provider failures degrade to tagged fallback data.
package climate

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Climate errors.
var (
	ErrValidation       = errors.New("invalid analysis request")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrProviderFailed   = errors.New("climate provider failed")
)

// ValidationError describes a rejected query field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match ErrValidation with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Coordinate is a point on the globe in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Validate checks that the coordinate is finite and within range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return &ValidationError{Field: "lat", Reason: "must be between -90 and 90"}
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return &ValidationError{Field: "lon", Reason: "must be between -180 and 180"}
	}
	return nil
}

// DateRange is an inclusive window of days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate checks that the range is not inverted.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return &ValidationError{Field: "dateRange", Reason: "start must not be after end"}
	}
	return nil
}

// WindowAround widens a reference date symmetrically by the given number of years.
func WindowAround(ref time.Time, years int) DateRange {
	if years < 0 {
		years = -years
	}
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return DateRange{
		Start: day.AddDate(-years, 0, 0),
		End:   day.AddDate(years, 0, 0),
	}
}

// RawSample is an ordered series of observations for one parameter.
// An empty sample means the provider had no data for the window.
type RawSample struct {
	Values []float64
}

// Len returns the number of observations.
func (s RawSample) Len() int {
	return len(s.Values)
}

// Statistic summarizes a normalized sample in display units.
type Statistic struct {
	Average     float64
	Min         float64
	Max         float64
	SampleCount int
}

// Level is the qualitative label for a probability score.
type Level string

const (
	LevelVeryLow  Level = "Very Low"
	LevelLow      Level = "Low"
	LevelModerate Level = "Moderate"
	LevelHigh     Level = "High"
	LevelVeryHigh Level = "Very High"
)

// ProbabilityEstimate is the consistency-heuristic score for a parameter.
//
// ProbabilityPercent is NOT a calibrated likelihood: it rewards low-variance
// historical series with a high number. Consumers should present it as a
// consistency indicator.
type ProbabilityEstimate struct {
	Parameter          ParameterKey
	ProbabilityPercent int
	Level              Level
	Recommendation     string
}

// Provenance tells whether data came from the provider or was synthesized.
type Provenance string

const (
	ProvenanceProvider Provenance = "provider"
	ProvenanceFallback Provenance = "fallback"
)

// Query is an analysis request.
type Query struct {
	Coordinate    Coordinate
	Parameters    []ParameterKey
	ReferenceDate time.Time
}

// ParameterResult holds the outcome for one parameter.
// Statistic and Estimate are both nil when no samples were available.
type ParameterResult struct {
	Key         ParameterKey
	Title       string
	Description string
	Unit        string
	Provenance  Provenance
	Statistic   *Statistic
	Estimate    *ProbabilityEstimate
}

// NoData reports whether the parameter has no usable observations.
func (r ParameterResult) NoData() bool {
	return r.Statistic == nil || r.Estimate == nil
}

// AnalysisResult is the aggregate returned for one query.
type AnalysisResult struct {
	ID            string
	Coordinate    Coordinate
	ReferenceDate time.Time
	DateRange     DateRange
	Parameters    []ParameterKey
	Results       map[ParameterKey]ParameterResult

	// Fallback is true when any parameter was served from synthetic data.
	Fallback    bool
	Provider    string
	GeneratedAt time.Time
}

// Ordered returns the parameter results in query order.
func (a *AnalysisResult) Ordered() []ParameterResult {
	out := make([]ParameterResult, 0, len(a.Parameters))
	for _, key := range a.Parameters {
		if r, ok := a.Results[key]; ok {
			out = append(out, r)
		}
	}
	return out
}
