package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/solarroi/solarroi/internal/advisory/gemini"
	"github.com/solarroi/solarroi/internal/api/models"
	"github.com/solarroi/solarroi/internal/api/response"
	"github.com/solarroi/solarroi/internal/generation/mlservice"
	"github.com/solarroi/solarroi/internal/provider/resilience"
	"github.com/solarroi/solarroi/internal/weather/openweathermap"
)

const subsystemCheckTimeout = 2 * time.Second

// providerFallbacks describes how a calculation degrades without each
// provider.
var providerFallbacks = map[string]string{
	openweathermap.ProviderName: "none: calculations fail with 502",
	mlservice.ProviderName:      "heuristic generation",
	gemini.ProviderName:         "template explanation",
}

// Subsystem is a dependency checked by the readiness and status endpoints,
// such as the history database.
type Subsystem struct {
	Name  string
	Check func(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	providers  *resilience.Registry
	subsystems []Subsystem
}

// NewOpsHandler creates a new OpsHandler. providers may be nil.
func NewOpsHandler(version, buildTime string, providers *resilience.Registry, subsystems ...Subsystem) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		providers:  providers,
		subsystems: subsystems,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready. It fails with 503 when any
// subsystem check fails; provider circuits do not affect readiness.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	statuses := h.checkSubsystems(r.Context())

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	for _, s := range statuses {
		if s.Status != models.HealthStatusOK {
			health.Status = models.HealthStatusFail
			if health.Details == nil {
				health.Details = map[string]any{}
			}
			health.Details[s.Name] = *s.Detail
		}
	}

	status := http.StatusOK
	if health.Status != models.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Version:    h.version,
		Subsystems: h.checkSubsystems(r.Context()),
		Providers:  []models.ProviderStatus{},
	}

	if h.providers != nil {
		for _, p := range h.providers.GetAllHealth() {
			ps := models.ProviderStatus{
				Provider:            p.Name,
				Status:              providerStatus(p),
				CircuitState:        p.CircuitState.String(),
				ConsecutiveFailures: p.Counts.ConsecutiveFailures,
				Fallback:            fallbackFor(p.Name),
				LastSuccessAt:       timestampPtr(p.LastSuccessAt),
				LastFailureAt:       timestampPtr(p.LastFailureAt),
			}
			if p.LastError != "" {
				msg := p.LastError
				ps.Message = &msg
			}
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
				status.ActiveFallbacks = append(status.ActiveFallbacks, p.Name+": "+ps.Fallback)
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	for _, s := range status.Subsystems {
		if s.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusFail
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) checkSubsystems(ctx context.Context) []models.SubsystemStatus {
	statuses := make([]models.SubsystemStatus, 0, len(h.subsystems))
	for _, s := range h.subsystems {
		checkCtx, cancel := context.WithTimeout(ctx, subsystemCheckTimeout)
		err := s.Check(checkCtx)
		cancel()

		st := models.SubsystemStatus{Name: s.Name, Status: models.HealthStatusOK}
		if err != nil {
			detail := err.Error()
			st.Status = models.HealthStatusFail
			st.Detail = &detail
		}
		statuses = append(statuses, st)
	}
	return statuses
}

func providerStatus(p *resilience.ProviderHealth) models.HealthStatus {
	switch {
	case p.IsUnhealthy():
		return models.HealthStatusFail
	case p.IsDegraded():
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func fallbackFor(provider string) string {
	if f, ok := providerFallbacks[provider]; ok {
		return f
	}
	return "unknown"
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	ts := models.Timestamp(*t)
	return &ts
}
