package api

import (
	"net/http"

	"github.com/marmos91/excelsior/pkg/api/middleware"
	"github.com/marmos91/excelsior/pkg/api/state"
)

// Stage wraps a handler with one pipeline concern.
type Stage func(http.Handler) http.Handler

// Stages returns the pipeline stages for s and limits, outermost first:
// trace, compress, body limit, timeout.
func Stages(s *state.State, limits Limits) []Stage {
	limits.applyDefaults()
	return []Stage{
		middleware.Trace(s.Telemetry(), s.HTTPMetrics()),
		middleware.Compress(limits.CompressionLevel),
		middleware.BodyLimit(limits.BodyLimit),
		middleware.Timeout(limits.RequestTimeout),
	}
}

// BuildPipeline wraps routes with the stages from Stages. The order is fixed
// at build time and the result is safe for concurrent use.
func BuildPipeline(routes http.Handler, s *state.State, limits Limits) http.Handler {
	stages := Stages(s, limits)
	h := routes
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i](h)
	}
	return h
}
