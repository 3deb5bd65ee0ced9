package handler

import (
	"net/http"
	"time"

	"github.com/weatherodds/weatherodds/internal/api/models"
	"github.com/weatherodds/weatherodds/internal/api/response"
	"github.com/weatherodds/weatherodds/internal/provider/resilience"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler. registry may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// Analyses degrade to fallback data when providers are down, so the
// service stays ready and reports the provider count for context.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	providers := 0
	if h.registry != nil {
		providers = h.registry.Len()
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(h.now()),
		Details: map[string]any{"providers": providers},
	})
}

// SystemStatus handles GET /v1/ops/status - climatology provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(h.now()),
		Providers: []models.ProviderStatus{},
	}

	if h.registry != nil {
		for _, snap := range h.registry.Snapshot() {
			ps := providerStatus(snap)
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func providerStatus(snap resilience.ProviderStatus) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            snap.Name,
		Status:              models.HealthStatusOK,
		CircuitState:        snap.State.String(),
		ConsecutiveFailures: snap.ConsecutiveFailures,
		Calls:               snap.Calls,
		Failures:            snap.Failures,
		LastSuccessAt:       optionalTimestamp(snap.LastSuccess),
		LastFailureAt:       optionalTimestamp(snap.LastFailure),
	}

	switch {
	case snap.Probing():
		ps.Status = models.HealthStatusDegraded
	case !snap.Available():
		ps.Status = models.HealthStatusFail
	}

	if snap.LastError != "" {
		msg := snap.LastError
		ps.Message = &msg
	}
	return ps
}

func optionalTimestamp(t time.Time) *models.Timestamp {
	if t.IsZero() {
		return nil
	}
	ts := models.Timestamp(t)
	return &ts
}
