// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charityrun/runproof/internal/ledger"
	"github.com/charityrun/runproof/internal/utils"
)

const healthCheckTimeout = 5 * time.Second

// HealthStatus is the state of one checked component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// HealthCheck is one component's result.
type HealthCheck struct {
	Status   HealthStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
	Duration string       `json:"duration"`
}

// HealthHandler reports service health. The ledger is the only
// external dependency checked; a failing ledger makes the whole
// service unhealthy since every submission needs it.
type HealthHandler struct {
	store   ledger.Store
	version string
	logger  utils.Logger
}

// NewHealthHandler creates the /healthz handler.
func NewHealthHandler(store ledger.Store, version string, logger utils.Logger) *HealthHandler {
	return &HealthHandler{store: store, version: version, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	response := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Checks:    make(map[string]HealthCheck),
	}

	start := time.Now()
	check := HealthCheck{Status: HealthStatusHealthy}
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warnf("health check: ledger ping failed: %v", err)
		check.Status = HealthStatusUnhealthy
		check.Error = err.Error()
		response.Status = HealthStatusUnhealthy
	}
	check.Duration = time.Since(start).String()
	response.Checks["ledger"] = check

	status := http.StatusOK
	if response.Status != HealthStatusHealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
