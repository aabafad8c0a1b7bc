package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	checks  map[string]Check
	timeout time.Duration
	logger  zerolog.Logger
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewHealthHandler creates a health handler running checks on every request.
func NewHealthHandler(checks map[string]Check, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 2 * time.Second,
		logger:  logger.With().Str("handler", "health").Logger(),
	}
}

// ServeHTTP handles GET /health requests.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthStatus{Status: "healthy", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn().Err(err).Str("check", name).Msg("health check failed")
			status.Status = "degraded"
			status.Checks[name] = "down"
			continue
		}
		status.Checks[name] = "up"
	}

	if status.Status != "healthy" {
		writeEnvelope(w, http.StatusServiceUnavailable, Response{Success: false, Data: status})
		return
	}
	writeJSON(w, http.StatusOK, status)
}
