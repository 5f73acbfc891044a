package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bizplanner/internal/agents"
	"bizplanner/pkg/logger"
)

// Pinger is a dependency that can report its connectivity.
type Pinger interface {
	Health(ctx context.Context) error
}

// StateSource exposes the pipeline state machine.
type StateSource interface {
	State() agents.State
}

// Handler provides health check endpoints next to /metrics
type Handler struct {
	log         *logger.Logger
	redis       Pinger
	pipeline    StateSource
	startTime   time.Time
	serviceName string
	clock       func() time.Time
}

// New creates a new health check handler. redis may be nil when the
// search cache runs in memory.
func New(log *logger.Logger, redis Pinger, pipeline StateSource, serviceName string) *Handler {
	return &Handler{
		log:         log,
		redis:       redis,
		pipeline:    pipeline,
		startTime:   time.Now(),
		serviceName: serviceName,
		clock:       time.Now,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service   string                     `json:"service"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Pipeline  string                     `json:"pipeline,omitempty"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Routes returns the endpoints to mount on the metrics listener
func (h *Handler) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		"/healthz": http.HandlerFunc(h.HandleHealth),
		"/readyz":  http.HandlerFunc(h.HandleReadiness),
	}
}

// HandleReadiness returns 503 when a configured dependency is unreachable
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := h.runChecks(ctx)
	status := h.status(checks)

	statusCode := http.StatusOK
	for _, c := range checks {
		if c.Status == "unhealthy" {
			status.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
			h.log.Warnw("Readiness check failed", "checks", checks)
			break
		}
	}

	writeJSON(w, statusCode, status)
}

// HandleHealth returns detailed status including the pipeline stage.
// A failed run or a down cache only degrades it.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := h.runChecks(ctx)
	status := h.status(checks)

	for _, c := range checks {
		if c.Status == "unhealthy" {
			status.Status = "degraded"
		}
	}
	if h.pipeline != nil && h.pipeline.State().Status == agents.StatusFailed {
		status.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) status(checks map[string]ComponentHealth) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Uptime:    h.clock().Sub(h.startTime).Round(time.Second).String(),
		Timestamp: h.clock().Format(time.RFC3339),
		Checks:    checks,
	}
	if h.pipeline != nil {
		status.Pipeline = h.pipeline.State().String()
	}
	return status
}

func (h *Handler) runChecks(ctx context.Context) map[string]ComponentHealth {
	checks := make(map[string]ComponentHealth)
	if h.redis == nil {
		checks["redis"] = ComponentHealth{Status: "disabled"}
	} else {
		checks["redis"] = h.checkRedis(ctx)
	}
	return checks
}

// checkRedis verifies Redis connectivity
func (h *Handler) checkRedis(ctx context.Context) ComponentHealth {
	start := time.Now()
	err := h.redis.Health(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Errorw("Redis health check failed", "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
