package models

// Health is the liveness and readiness payload.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus reports the history store and every upstream the ROI
// pipeline calls. ActiveFallbacks names the degraded paths calculations are
// currently taking, e.g. "ml-service: heuristic generation".
type SystemStatus struct {
	Status          HealthStatus      `json:"status"`
	Time            Timestamp         `json:"time"`
	Version         string            `json:"version"`
	Subsystems      []SubsystemStatus `json:"subsystems"`
	Providers       []ProviderStatus  `json:"providers"`
	ActiveFallbacks []string          `json:"activeFallbacks,omitempty"`
}

// SubsystemStatus is the result of one readiness check.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus is the circuit view of one upstream. Fallback describes what
// a calculation does while the provider is failing.
type ProviderStatus struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	Fallback            string       `json:"fallback"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	Message             *string      `json:"message,omitempty"`
}
