package models

import (
	"time"

	"github.com/weatherodds/weatherodds/internal/climate"
)

// AnalysisRequest is the body of POST /v1/analyses.
type AnalysisRequest struct {
	Lat        *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon        *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Date       string   `json:"date" validate:"required,datetime=2006-01-02"`
	Parameters []string `json:"parameters" validate:"required,min=1,max=9,dive,parameter"`
}

// Query converts a validated request into a climate query.
func (r AnalysisRequest) Query() (climate.Query, error) {
	date, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return climate.Query{}, &climate.ValidationError{Field: "date", Reason: "must be formatted as YYYY-MM-DD"}
	}

	keys := make([]climate.ParameterKey, 0, len(r.Parameters))
	for _, p := range r.Parameters {
		key, err := climate.ParseParameterKey(p)
		if err != nil {
			return climate.Query{}, &climate.ValidationError{Field: "parameters", Reason: err.Error()}
		}
		keys = append(keys, key)
	}

	q := climate.Query{Parameters: keys, ReferenceDate: date}
	if r.Lat != nil {
		q.Coordinate.Lat = *r.Lat
	}
	if r.Lon != nil {
		q.Coordinate.Lon = *r.Lon
	}
	return q, nil
}

// DateWindow is the historical window that was analyzed.
type DateWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Statistics summarizes the historical series in display units.
type Statistics struct {
	Average     float64 `json:"average"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	SampleCount int     `json:"sampleCount"`
}

// ParameterResult is the outcome for one requested parameter.
// Probability and Statistics are omitted when NoData is true.
type ParameterResult struct {
	Parameter      string      `json:"parameter"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Unit           string      `json:"unit"`
	Source         string      `json:"source"`
	NoData         bool        `json:"noData"`
	Probability    *int        `json:"probability,omitempty"`
	Level          string      `json:"level,omitempty"`
	Recommendation string      `json:"recommendation,omitempty"`
	Statistics     *Statistics `json:"statistics,omitempty"`
}

// AnalysisResponse is the body returned by POST /v1/analyses.
type AnalysisResponse struct {
	ID          string            `json:"id"`
	Location    Point             `json:"location"`
	Date        string            `json:"date"`
	Window      DateWindow        `json:"window"`
	Fallback    bool              `json:"fallback"`
	Provider    string            `json:"provider"`
	GeneratedAt Timestamp         `json:"generatedAt"`
	Results     []ParameterResult `json:"results"`
}

// NewAnalysisResponse maps a climate result onto the wire format, keeping query order.
func NewAnalysisResponse(res *climate.AnalysisResult) AnalysisResponse {
	out := AnalysisResponse{
		ID:       res.ID,
		Location: Point{Lat: res.Coordinate.Lat, Lon: res.Coordinate.Lon},
		Date:     res.ReferenceDate.Format(DateLayout),
		Window: DateWindow{
			Start: res.DateRange.Start.Format(DateLayout),
			End:   res.DateRange.End.Format(DateLayout),
		},
		Fallback:    res.Fallback,
		Provider:    res.Provider,
		GeneratedAt: Timestamp(res.GeneratedAt),
		Results:     make([]ParameterResult, 0, len(res.Parameters)),
	}

	for _, r := range res.Ordered() {
		pr := ParameterResult{
			Parameter:   string(r.Key),
			Title:       r.Title,
			Description: r.Description,
			Unit:        r.Unit,
			Source:      string(r.Provenance),
			NoData:      r.NoData(),
		}
		if !pr.NoData {
			p := r.Estimate.ProbabilityPercent
			pr.Probability = &p
			pr.Level = string(r.Estimate.Level)
			pr.Recommendation = r.Estimate.Recommendation
			pr.Statistics = &Statistics{
				Average:     r.Statistic.Average,
				Min:         r.Statistic.Min,
				Max:         r.Statistic.Max,
				SampleCount: r.Statistic.SampleCount,
			}
		}
		out.Results = append(out.Results, pr)
	}
	return out
}
