package logger

import "context"

type logContextKey struct{}

// LogContext carries the request fields that the *Ctx helpers prepend to
// every record. It is set once by the trace middleware and treated as
// immutable afterwards; the With* methods return copies.
type LogContext struct {
	TraceID   string
	SpanID    string
	RequestID string
	Method    string
	ClientIP  string // without port
}

// WithContext attaches lc to ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey{}, lc)
}

// FromContext returns the LogContext attached to ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey{}).(*LogContext)
	return lc
}

// NewLogContext starts the context for one HTTP request.
func NewLogContext(method, clientIP string) *LogContext {
	return &LogContext{Method: method, ClientIP: clientIP}
}

// Clone returns a shallow copy; nil stays nil.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

// WithTrace returns a copy carrying the active span's identifiers.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.TraceID, c.SpanID = traceID, spanID
	}
	return c
}

// WithRequestID returns a copy carrying the chi request ID.
func (lc *LogContext) WithRequestID(id string) *LogContext {
	c := lc.Clone()
	if c != nil {
		c.RequestID = id
	}
	return c
}
