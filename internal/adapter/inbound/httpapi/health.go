package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// Pinger is anything that can verify its backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker verifies component health.
type HealthChecker struct {
	storeBackend string
	pinger       Pinger
	version      string
}

// NewHealthChecker creates a HealthChecker.
// pinger may be nil when the store has no meaningful liveness probe.
func NewHealthChecker(storeBackend string, pinger Pinger, version string) *HealthChecker {
	return &HealthChecker{
		storeBackend: storeBackend,
		pinger:       pinger,
		version:      version,
	}
}

// Check performs health checks on all components.
func (h *HealthChecker) Check(ctx context.Context) HealthResponse {
	checks := map[string]string{
		"session_store": "ok",
	}
	healthy := true

	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			checks["session_store"] = err.Error()
			healthy = false
		}
	}
	checks["backend"] = h.storeBackend

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an http.Handler serving the health check.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check(r.Context())
		status := http.StatusOK
		if resp.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	})
}
