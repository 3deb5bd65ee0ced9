package resilience_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatherodds/weatherodds/internal/provider/resilience"
)

func TestRegistry_TrackOnConstruction(t *testing.T) {
	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("nasa-power")
	cfg.Registry = registry

	client := resilience.NewClient(cfg)

	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, "nasa-power", client.Name())

	status, ok := registry.Status("nasa-power")
	require.True(t, ok)
	assert.Equal(t, gobreaker.StateClosed, status.State)
	assert.True(t, status.Available())
	assert.False(t, status.Probing())
	assert.True(t, status.LastSuccess.IsZero())
	assert.Zero(t, status.Calls)

	_, ok = registry.Status("open-meteo")
	assert.False(t, ok)
}

func TestRegistry_ObserveIgnoresUntracked(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Observe("unknown", errors.New("boom"))
	assert.Equal(t, 0, registry.Len())
	assert.Empty(t, registry.Snapshot())
}

func TestRegistry_RecordsOutcomesFromClient(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("nasa-power")
	cfg.CircuitBreaker = neverTrip()
	cfg.Registry = registry
	client := resilience.NewClient(cfg)

	resp, err := client.Do(newRequest(t, context.Background(), server.URL))
	require.NoError(t, err)
	resp.Body.Close()

	snap, _ := registry.Status("nasa-power")
	assert.False(t, snap.LastSuccess.IsZero())
	assert.True(t, snap.LastFailure.IsZero())
	assert.Equal(t, uint64(1), snap.Calls)

	status = http.StatusServiceUnavailable
	resp, err = client.Do(newRequest(t, context.Background(), server.URL))
	require.NoError(t, err)
	resp.Body.Close()

	snap, _ = registry.Status("nasa-power")
	assert.False(t, snap.LastFailure.IsZero())
	assert.Contains(t, snap.LastError, "Service Unavailable")
	assert.Equal(t, uint64(2), snap.Calls)
	assert.Equal(t, uint64(1), snap.Failures)
}

func TestRegistry_SnapshotSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		_ = resilience.NewClient(cfg)
	}

	all := registry.Snapshot()
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "mid", all[1].Name)
	assert.Equal(t, "zeta", all[2].Name)
}

func TestLogStateChanges(t *testing.T) {
	var buf bytes.Buffer
	hook := resilience.LogStateChanges(zerolog.New(&buf))

	hook("nasa-power", gobreaker.StateClosed, gobreaker.StateOpen)

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"provider":"nasa-power"`)
	assert.Contains(t, buf.String(), `"to":"open"`)
}
