package api

import (
	"context"
	"net/http"
)

// ReadinessChecker reports whether the service can take work.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// HealthHandler handles liveness and readiness probes.
type HealthHandler struct {
	checker ReadinessChecker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(checker ReadinessChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// HandleHealth handles GET /healthz. It only proves the process serves HTTP.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleReady handles GET /readyz.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.checker.Ready(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", WrapKind("api.ready", ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ready"})
}
