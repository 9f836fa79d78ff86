package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarroi/solarroi/internal/api/handler"
	"github.com/solarroi/solarroi/internal/api/models"
	"github.com/solarroi/solarroi/internal/provider/resilience"
)

type fakeReporter struct {
	state    gobreaker.State
	failures uint32
}

func (f fakeReporter) CircuitBreakerState() gobreaker.State { return f.state }
func (f fakeReporter) CircuitBreakerCounts() gobreaker.Counts {
	return gobreaker.Counts{ConsecutiveFailures: f.failures}
}

func okCheck(context.Context) error { return nil }

func TestOpsHandler_HealthCheck(t *testing.T) {
	h := handler.NewOpsHandler("1.2.3", "2026-10-01", nil)

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "1.2.3", health.Details["version"])
}

func TestOpsHandler_ReadinessCheck(t *testing.T) {
	t.Run("all subsystems up", func(t *testing.T) {
		h := handler.NewOpsHandler("dev", "", nil, handler.Subsystem{Name: "postgres", Check: okCheck})

		w := httptest.NewRecorder()
		h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("database down", func(t *testing.T) {
		h := handler.NewOpsHandler("dev", "", nil, handler.Subsystem{
			Name:  "postgres",
			Check: func(context.Context) error { return errors.New("connection refused") },
		})

		w := httptest.NewRecorder()
		h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var health models.Health
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
		assert.Equal(t, models.HealthStatusFail, health.Status)
		assert.Equal(t, "connection refused", health.Details["postgres"])
	})
}

func TestOpsHandler_SystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.Register("openweathermap", fakeReporter{state: gobreaker.StateClosed})
	registry.Register("ml-service", fakeReporter{state: gobreaker.StateOpen, failures: 5})
	registry.RecordFailure("ml-service", errors.New("server error: Bad Gateway"))

	h := handler.NewOpsHandler("dev", "", registry, handler.Subsystem{Name: "postgres", Check: okCheck})

	w := httptest.NewRecorder()
	h.SystemStatus(w, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))

	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	assert.Equal(t, "dev", status.Version)
	assert.Equal(t, []string{"ml-service: heuristic generation"}, status.ActiveFallbacks)
	require.Len(t, status.Providers, 2)

	ml := status.Providers[0]
	assert.Equal(t, "ml-service", ml.Provider)
	assert.Equal(t, models.HealthStatusFail, ml.Status)
	assert.Equal(t, "open", ml.CircuitState)
	assert.Equal(t, uint32(5), ml.ConsecutiveFailures)
	assert.Equal(t, "heuristic generation", ml.Fallback)
	require.NotNil(t, ml.Message)
	assert.Equal(t, "server error: Bad Gateway", *ml.Message)
	assert.NotNil(t, ml.LastFailureAt)

	owm := status.Providers[1]
	assert.Equal(t, "openweathermap", owm.Provider)
	assert.Equal(t, models.HealthStatusOK, owm.Status)
	assert.Equal(t, "closed", owm.CircuitState)
	assert.Equal(t, "none: calculations fail with 502", owm.Fallback)

	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, models.HealthStatusOK, status.Subsystems[0].Status)
}

func TestOpsHandler_SystemStatus_SubsystemFailure(t *testing.T) {
	h := handler.NewOpsHandler("dev", "", resilience.NewRegistry(), handler.Subsystem{
		Name:  "postgres",
		Check: func(context.Context) error { return errors.New("timeout") },
	})

	w := httptest.NewRecorder()
	h.SystemStatus(w, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusFail, status.Status)
	assert.Empty(t, status.Providers)
}

func TestGlossary(t *testing.T) {
	w := httptest.NewRecorder()
	handler.Glossary(w, httptest.NewRequest(http.MethodGet, "/v1/glossary", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.GlossaryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Terms, 3)
	assert.Equal(t, []string{"kW", "On-grid", "ROI"}, []string{resp.Terms[0].Term, resp.Terms[1].Term, resp.Terms[2].Term})
	for _, term := range resp.Terms {
		assert.NotEmpty(t, term.Meaning)
	}
}
