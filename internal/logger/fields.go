package logger

import "log/slog"

// Standard field keys for structured logging. Use these consistently so
// log aggregation can query by the same names across components.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// HTTP request
	KeyRequestID = "request_id"
	KeyMethod    = "method"
	KeyRoute     = "route"
	KeyPath      = "path"
	KeyStatus    = "status"
	KeyBytes     = "bytes"
	KeyClientIP  = "client_ip"

	// Lifecycle
	KeyPhase     = "phase"
	KeyAddr      = "addr"
	KeyInFlight  = "in_flight"
	KeyComponent = "component"

	// Backend
	KeyBackend  = "backend"
	KeyDatabase = "database"
	KeyHost     = "host"

	// Operation metadata
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyOperation  = "operation"
)

// TraceID returns a slog attribute for trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog attribute for span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Method returns a slog attribute for the HTTP method
func Method(m string) slog.Attr {
	return slog.String(KeyMethod, m)
}

// Route returns a slog attribute for the matched route pattern
func Route(r string) slog.Attr {
	return slog.String(KeyRoute, r)
}

// Status returns a slog attribute for the HTTP status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// Phase returns a slog attribute for a runner lifecycle phase
func Phase(p string) slog.Attr {
	return slog.String(KeyPhase, p)
}

// Backend returns a slog attribute for the active backend kind
func Backend(kind string) slog.Attr {
	return slog.String(KeyBackend, kind)
}

// DurationMs returns a slog attribute for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog attribute for an error. Nil errors produce an empty attr,
// which the handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
