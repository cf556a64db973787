package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"
)

// ServiceName is reported by the health endpoints.
const ServiceName = "orca"

// ReadinessCheck reports the state of one dependency. A non-nil error marks
// the service as not ready.
type ReadinessCheck func(ctx context.Context) (string, error)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseCheck returns a readiness check that pings the database.
func DatabaseCheck(db Pinger) ReadinessCheck {
	return func(ctx context.Context) (string, error) {
		if err := db.Ping(ctx); err != nil {
			return "unreachable", err
		}
		return "ok", nil
	}
}

// HealthHandler provides HTTP health check and metrics endpoints for the risk service.
type HealthHandler struct {
	startTime    time.Time
	logger       *slog.Logger
	checks       map[string]ReadinessCheck
	metrics      http.Handler
	checkTimeout time.Duration
}

// NewHealthHandler creates a new health check handler. metrics may be nil.
func NewHealthHandler(logger *slog.Logger, checks map[string]ReadinessCheck, metrics http.Handler) *HealthHandler {
	return &HealthHandler{
		logger:       logger,
		startTime:    time.Now(),
		checks:       checks,
		metrics:      metrics,
		checkTimeout: 2 * time.Second,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the JSON response for readiness checks.
type ReadinessResponse struct {
	Checks  map[string]string `json:"checks"`
	Status  string            `json:"status"`
	Service string            `json:"service"`
}

// RegisterRoutes registers health and metrics endpoints on the provided ServeMux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

// Healthz handles liveness checks.
func (h *HealthHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Readyz handles readiness checks.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
	defer cancel()

	resp := ReadinessResponse{
		Status:  "ready",
		Service: ServiceName,
		Checks:  make(map[string]string, len(h.checks)),
	}
	code := http.StatusOK

	for _, name := range slices.Sorted(maps.Keys(h.checks)) {
		state, err := h.checks[name](ctx)
		resp.Checks[name] = state
		if err != nil {
			h.logger.Warn("readiness check failed",
				slog.String("check", name),
				slog.String("error", err.Error()),
			)
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
		}
	}

	h.writeJSON(w, code, resp)
}

func (h *HealthHandler) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write health response", slog.String("error", err.Error()))
	}
}
