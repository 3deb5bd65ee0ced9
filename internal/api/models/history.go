package models

import "github.com/weatherodds/weatherodds/internal/history"

// AnalysisSummary is one entry of GET /v1/analyses.
type AnalysisSummary struct {
	ID          string    `json:"id"`
	Location    Point     `json:"location"`
	Date        string    `json:"date"`
	Parameters  []string  `json:"parameters"`
	Fallback    bool      `json:"fallback"`
	GeneratedAt Timestamp `json:"generatedAt"`
}

// AnalysisList is the body of GET /v1/analyses, newest first.
type AnalysisList struct {
	Items []AnalysisSummary `json:"items"`
	Limit int               `json:"limit"`
}

// NewAnalysisList maps stored summaries onto the wire format.
func NewAnalysisList(summaries []history.Summary, limit int) AnalysisList {
	out := AnalysisList{Items: make([]AnalysisSummary, 0, len(summaries)), Limit: limit}
	for _, s := range summaries {
		params := make([]string, len(s.Parameters))
		for i, p := range s.Parameters {
			params[i] = string(p)
		}
		out.Items = append(out.Items, AnalysisSummary{
			ID:          s.ID,
			Location:    Point{Lat: s.Coordinate.Lat, Lon: s.Coordinate.Lon},
			Date:        s.ReferenceDate.Format(DateLayout),
			Parameters:  params,
			Fallback:    s.Fallback,
			GeneratedAt: Timestamp(s.GeneratedAt),
		})
	}
	return out
}
