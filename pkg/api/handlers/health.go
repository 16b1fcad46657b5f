package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/excelsior/pkg/api/response"
	"github.com/marmos91/excelsior/pkg/backend"
)

// readinessPingTimeout bounds the backend probe in Readiness.
const readinessPingTimeout = 2 * time.Second

// LivenessInfo is the payload of GET /health.
type LivenessInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessInfo is the payload of GET /health/ready.
type ReadinessInfo struct {
	Backend   string        `json:"backend"`
	Tracing   bool          `json:"tracing"`
	Latency   string        `json:"latency,omitempty"`
	PoolStats backend.Stats `json:"pool"`
}

// Liveness handles GET /health. It succeeds whenever the process can serve.
func Liveness(w http.ResponseWriter, r *http.Request) {
	s, ok := stateOrError(w, r)
	if !ok {
		return
	}
	response.Healthy(w, LivenessInfo{
		Service: "excelsior",
		Version: s.Version(),
		Uptime:  time.Since(s.StartedAt()).Round(time.Second).String(),
	})
}

// Readiness handles GET /health/ready. A stand-in backend is ready by
// definition; a live backend must answer a ping.
func Readiness(w http.ResponseWriter, r *http.Request) {
	s, ok := stateOrError(w, r)
	if !ok {
		return
	}
	b := s.Backend()

	info := ReadinessInfo{
		Backend:   b.Kind().String(),
		Tracing:   s.Telemetry().Enabled(),
		PoolStats: b.Stats(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessPingTimeout)
	defer cancel()

	start := time.Now()
	if err := b.Ping(ctx); err != nil {
		response.Unhealthy(w, info, "backend ping failed: "+err.Error())
		return
	}
	info.Latency = time.Since(start).String()
	response.Healthy(w, info)
}
