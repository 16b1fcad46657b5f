// Package middleware implements the stages of the request pipeline.
package middleware

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/internal/telemetry"
	"github.com/marmos91/excelsior/pkg/metrics"
)

// Trace is the outermost pipeline stage. Every request gets a request ID, a
// server span named "METHOD route", a log context carrying the trace IDs,
// and request metrics. Responses with a 5xx status are classified as
// failures: the span gets an error event and status, and the completion is
// logged at ERROR. Panics below this stage become 500s.
func Trace(tel *telemetry.Handle, m metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		observed := observe(m, chimw.Recoverer(next))

		traced := otelhttp.NewHandler(observed, "http.server",
			otelhttp.WithTracerProvider(tel.TracerProvider()),
			otelhttp.WithPropagators(telemetry.Propagator()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)

		return chimw.RequestID(chimw.RealIP(withRouteContext(traced)))
	}
}

// withRouteContext pre-creates chi's routing context so that stages running
// before the router can read the matched pattern once the request returns.
func withRouteContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chi.RouteContext(r.Context()) == nil {
			ctx := context.WithValue(r.Context(), chi.RouteCtxKey, chi.NewRouteContext())
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func observe(m metrics.HTTPMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		lc := logger.NewLogContext(r.Method, clientIP(r)).
			WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)).
			WithRequestID(chimw.GetReqID(ctx))
		ctx = logger.WithContext(ctx, lc)

		if m != nil {
			m.RequestStarted(r.Method)
		}
		logger.DebugCtx(ctx, "Request started", logger.KeyPath, r.URL.Path)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			latency := time.Since(start)
			route := routePattern(ctx)

			span := trace.SpanFromContext(ctx)
			if route != "" {
				span.SetName(r.Method + " " + route)
				span.SetAttributes(telemetry.HTTPRoute(route))
			}
			span.SetAttributes(telemetry.HTTPStatus(status), telemetry.LatencyMs(latency))

			args := []any{
				logger.Route(route),
				logger.KeyPath, r.URL.Path,
				logger.Status(status),
				logger.KeyBytes, ww.BytesWritten(),
				logger.DurationMs(float64(latency) / float64(time.Millisecond)),
			}
			if status >= http.StatusInternalServerError {
				telemetry.RecordFailure(ctx, status, latency)
				logger.ErrorCtx(ctx, "Request failed", args...)
			} else {
				logger.InfoCtx(ctx, "Request completed", args...)
			}

			if m != nil {
				m.RequestFinished(r.Method, route, status, latency, ww.BytesWritten())
			}
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func routePattern(ctx context.Context) string {
	if rctx := chi.RouteContext(ctx); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// clientIP returns the address set by RealIP without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
