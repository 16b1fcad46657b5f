package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow OpenTelemetry semantic conventions; the
// rest are service specific.
const (
	// ========================================================================
	// Client / HTTP
	// ========================================================================
	AttrClientIP       = "client.address"
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrURLPath        = "url.path"
	AttrLatencyMs      = "excelsior.latency_ms"

	// ========================================================================
	// Backend
	// ========================================================================
	AttrBackendKind = "excelsior.backend.kind"
	AttrDBSystem    = "db.system"
	AttrDBOperation = "db.operation.name"
	AttrUserID      = "excelsior.user.id"
	AttrRowCount    = "excelsior.db.rows"

	// ========================================================================
	// Outbound calls
	// ========================================================================
	AttrPeerService = "peer.service"
)

// Event names recorded on spans.
const (
	EventRequestFailed  = "request.failed"
	EventBackendStandIn = "backend.stand_in"
)

// StartSpan starts a child span from the session tracer.
// The caller must call span.End() when done.
func (h *Handle) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return h.Tracer().Start(ctx, name, opts...)
}

// StartBackendSpan starts a client span for a backend operation.
func (h *Handle) StartBackendSpan(ctx context.Context, operation, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{
		attribute.String(AttrDBOperation, operation),
		BackendKind(kind),
	}, attrs...)
	return h.StartSpan(ctx, "backend."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(all...))
}

// SpanFromContext returns the current span from the context.
// If there is no span in the context, returns a no-op span.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddEvent adds an event to the current span in the context.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span and marks it failed.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordFailure marks the current span as a failed request: an error event
// carrying the status and latency, and an Error span status.
func RecordFailure(ctx context.Context, status int, latency time.Duration) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(EventRequestFailed, trace.WithAttributes(
		HTTPStatus(status),
		LatencyMs(latency),
	))
	span.SetStatus(codes.Error, "server error")
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// TraceID returns the trace ID from the current span context.
// Returns empty string if no span is active.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// SpanID returns the span ID from the current span context.
// Returns empty string if no span is active.
func SpanID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasSpanID() {
		return sc.SpanID().String()
	}
	return ""
}

func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

func HTTPRoute(route string) attribute.KeyValue {
	return attribute.String(AttrHTTPRoute, route)
}

func HTTPStatus(code int) attribute.KeyValue {
	return attribute.Int(AttrHTTPStatusCode, code)
}

// LatencyMs records a duration in fractional milliseconds.
func LatencyMs(d time.Duration) attribute.KeyValue {
	return attribute.Float64(AttrLatencyMs, float64(d)/float64(time.Millisecond))
}

func BackendKind(kind string) attribute.KeyValue {
	return attribute.String(AttrBackendKind, kind)
}

func UserID(id string) attribute.KeyValue {
	return attribute.String(AttrUserID, id)
}

func RowCount(n int) attribute.KeyValue {
	return attribute.Int(AttrRowCount, n)
}

func PeerService(name string) attribute.KeyValue {
	return attribute.String(AttrPeerService, name)
}
