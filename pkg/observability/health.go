package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is satisfied by *sql.DB and by the storage backends
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthChecker reports liveness and readiness of the service
type HealthChecker struct {
	version      string
	dependencies map[string]Pinger
	timeout      time.Duration
}

// NewHealthChecker creates a new health checker. Dependencies are pinged on
// every readiness check; a nil map means the service has none.
func NewHealthChecker(version string, dependencies map[string]Pinger) *HealthChecker {
	if dependencies == nil {
		dependencies = map[string]Pinger{}
	}
	return &HealthChecker{
		version:      version,
		dependencies: dependencies,
		timeout:      5 * time.Second,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
)

// Liveness answers {"status":"ok","time":...} while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]string{
		"status": StatusOK,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness pings every dependency and answers 503 if any of them fails
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

// Check pings all dependencies
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusOK,
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(h.dependencies)),
	}

	for name, dep := range h.dependencies {
		ds := checkDependency(ctx, dep)
		status.Dependencies[name] = ds
		if ds.Status == StatusUnhealthy {
			status.Status = StatusUnhealthy
		}
	}

	return status
}

func checkDependency(ctx context.Context, dep Pinger) DependencyStatus {
	start := time.Now()
	err := dep.PingContext(ctx)
	status := DependencyStatus{
		Status:    StatusOK,
		LatencyMS: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		status.Status = StatusUnhealthy
		status.Message = err.Error()
	}
	return status
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
