package handler

import (
	"context"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

// Version is stamped at build time with -ldflags
var Version = "dev"

var startedAt = time.Now()

type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves the health endpoints. Only the database gates readiness; the
// catalog cache is reported but optional.
type HealthHandler struct {
	db    Pinger
	cache Pinger
}

// NewHealthHandler accepts a nil cache when the service runs without Redis.
func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Uptime  string            `json:"uptime,omitempty"`
	Checks  map[string]string `json:"checks"`
}

func newHealthResponse(status string, checks map[string]string) HealthResponse {
	return HealthResponse{
		Status:  status,
		Version: Version,
		Uptime:  time.Since(startedAt).Round(time.Second).String(),
		Checks:  checks,
	}
}

// GetHealth handles GET /health
func GetHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, newHealthResponse("ok", map[string]string{}), http.StatusOK)
}

// GetLiveness handles GET /health/live
func GetLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "alive"}, http.StatusOK)
}

// GetReadiness handles GET /health/ready
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	if !healthy(r.Context(), h.db) {
		respondError(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, map[string]string{"status": "ready"}, http.StatusOK)
}

// GetHealthDetailed handles GET /health/detailed
func (h *HealthHandler) GetHealthDetailed(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "healthy"}
	status, code := "ok", http.StatusOK

	if !healthy(r.Context(), h.db) {
		checks["database"] = "unhealthy"
		status, code = "degraded", http.StatusServiceUnavailable
	}

	if h.cache != nil {
		checks["cache"] = "healthy"
		if !healthy(r.Context(), h.cache) {
			checks["cache"] = "unavailable"
		}
	}

	respondJSON(w, newHealthResponse(status, checks), code)
}

func healthy(ctx context.Context, p Pinger) bool {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return p.Ping(ctx) == nil
}
