// Package history keeps completed analyses so they can be fetched and
// re-exported by ID.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/weatherodds/weatherodds/internal/climate"
)

// ErrNotFound is returned when no analysis exists for an ID.
var ErrNotFound = errors.New("analysis not found")

// DefaultListLimit and MaxListLimit bound List page sizes.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Summary is the listing view of a stored analysis.
type Summary struct {
	ID            string
	Coordinate    climate.Coordinate
	ReferenceDate time.Time
	Parameters    []climate.ParameterKey
	Fallback      bool
	GeneratedAt   time.Time
}

// Repository stores analysis results.
type Repository interface {
	// Save stores a result. Saving an ID twice keeps the first copy.
	Save(ctx context.Context, res *climate.AnalysisResult) error

	// Get returns the result for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*climate.AnalysisResult, error)

	// List returns up to limit summaries, newest first.
	List(ctx context.Context, limit int) ([]Summary, error)
}

// ClampLimit applies DefaultListLimit and MaxListLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

func summarize(res *climate.AnalysisResult) Summary {
	return Summary{
		ID:            res.ID,
		Coordinate:    res.Coordinate,
		ReferenceDate: res.ReferenceDate,
		Parameters:    append([]climate.ParameterKey(nil), res.Parameters...),
		Fallback:      res.Fallback,
		GeneratedAt:   res.GeneratedAt,
	}
}

var (
	_ Repository = (*InMemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)
