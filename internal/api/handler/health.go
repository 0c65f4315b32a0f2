package handler

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	DBPool any               `json:"db_pool,omitempty"`
}

// HealthHandler reports liveness of the API and its dependencies.
type HealthHandler struct {
	checks  map[string]CheckFunc
	stats   func() any
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler. stats may be nil.
func NewHealthHandler(checks map[string]CheckFunc, stats func() any) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		stats:   stats,
		timeout: 2 * time.Second,
	}
}

// Health handles GET /health. Any failing dependency turns the response
// into a 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	if h.stats != nil {
		resp.DBPool = h.stats()
	}

	JSON(w, status, resp)
}
