package history_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherodds/weatherodds/internal/history"
)

// Runs only when WEATHERODDS_TEST_DATABASE_URL points at a disposable database.
func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("WEATHERODDS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("WEATHERODDS_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := history.NewPostgresRepository(pool)
	require.NoError(t, repo.Migrate(ctx))
	_, err = pool.Exec(ctx, `TRUNCATE analyses`)
	require.NoError(t, err)

	older := newResult(t, "ana_pg_1", time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))
	newer := newResult(t, "ana_pg_2", time.Date(2024, 7, 1, 11, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))
	require.NoError(t, repo.Save(ctx, older), "duplicate save is a no-op")

	got, err := repo.Get(ctx, "ana_pg_1")
	require.NoError(t, err)
	assert.Equal(t, older.Parameters, got.Parameters)
	assert.True(t, got.GeneratedAt.Equal(older.GeneratedAt))

	_, err = repo.Get(ctx, "ana_missing")
	assert.ErrorIs(t, err, history.ErrNotFound)

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ana_pg_2", list[0].ID)
	assert.Equal(t, older.Coordinate, list[1].Coordinate)
}
