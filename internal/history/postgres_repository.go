package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weatherodds/weatherodds/internal/climate"
)

// Schema creates the analyses table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY,
	lat            DOUBLE PRECISION NOT NULL,
	lon            DOUBLE PRECISION NOT NULL,
	reference_date DATE NOT NULL,
	parameters     TEXT[] NOT NULL,
	fallback       BOOLEAN NOT NULL,
	provider       TEXT NOT NULL,
	generated_at   TIMESTAMPTZ NOT NULL,
	result         JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS analyses_generated_at_idx ON analyses (generated_at DESC);
`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL analysis repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate applies Schema.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply analyses schema: %w", err)
	}
	return nil
}

// Save inserts an analysis; an existing ID is left untouched.
func (r *PostgresRepository) Save(ctx context.Context, res *climate.AnalysisResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	query := `
		INSERT INTO analyses (
			id, lat, lon, reference_date, parameters,
			fallback, provider, generated_at, result
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = r.pool.Exec(ctx, query,
		res.ID,
		res.Coordinate.Lat,
		res.Coordinate.Lon,
		res.ReferenceDate,
		parameterStrings(res.Parameters),
		res.Fallback,
		res.Provider,
		res.GeneratedAt,
		data,
	)
	return err
}

// Get retrieves an analysis by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*climate.AnalysisResult, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT result FROM analyses WHERE id = $1`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var res climate.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", id, err)
	}
	return &res, nil
}

// List returns the newest analyses first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `
		SELECT id, lat, lon, reference_date, parameters, fallback, generated_at
		FROM analyses
		ORDER BY generated_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			s      Summary
			params []string
		)
		if err := rows.Scan(
			&s.ID,
			&s.Coordinate.Lat,
			&s.Coordinate.Lon,
			&s.ReferenceDate,
			&params,
			&s.Fallback,
			&s.GeneratedAt,
		); err != nil {
			return nil, err
		}
		for _, p := range params {
			s.Parameters = append(s.Parameters, climate.ParameterKey(p))
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func parameterStrings(keys []climate.ParameterKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}
