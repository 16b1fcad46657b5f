// Package state holds the application state shared by every request.
//
// A State is built once before the server starts listening and is read-only
// afterwards. The router attaches it to each request context; handlers
// retrieve it with FromContext instead of reaching for globals.
package state

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/marmos91/excelsior/internal/telemetry"
	"github.com/marmos91/excelsior/pkg/backend"
	"github.com/marmos91/excelsior/pkg/metrics"
)

// Routes carries the settings individual routes need.
type Routes struct {
	// ProtectedHeader and ProtectedValue gate /protected-enter.
	ProtectedHeader string
	ProtectedValue  string

	// ExternalURL is the base URL called by /external/ping. Empty disables it.
	ExternalURL string

	// ExternalTimeout bounds the outbound call.
	ExternalTimeout time.Duration
}

// Config is the input to New.
type Config struct {
	Backend     *backend.Handle
	Telemetry   *telemetry.Handle
	HTTPMetrics metrics.HTTPMetrics
	Routes      Routes
	Version     string

	// Transport is the base outbound transport, wrapped for trace
	// propagation. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// State is the immutable per-process application state.
type State struct {
	backend     *backend.Handle
	telemetry   *telemetry.Handle
	httpMetrics metrics.HTTPMetrics
	client      *http.Client
	routes      Routes
	version     string
	startedAt   time.Time
}

// New builds the state. The backend must be non-nil.
func New(cfg Config) *State {
	if cfg.Routes.ProtectedHeader == "" {
		cfg.Routes.ProtectedHeader = "X-Custom-Header"
	}
	if cfg.Routes.ProtectedValue == "" {
		cfg.Routes.ProtectedValue = "secret-value"
	}
	if cfg.Routes.ExternalTimeout <= 0 {
		cfg.Routes.ExternalTimeout = 10 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{
		Transport: otelhttp.NewTransport(base,
			otelhttp.WithTracerProvider(cfg.Telemetry.TracerProvider()),
			otelhttp.WithPropagators(telemetry.Propagator()),
		),
		Timeout: cfg.Routes.ExternalTimeout,
	}

	return &State{
		backend:     cfg.Backend,
		telemetry:   cfg.Telemetry,
		httpMetrics: cfg.HTTPMetrics,
		client:      client,
		routes:      cfg.Routes,
		version:     cfg.Version,
		startedAt:   time.Now(),
	}
}

func (s *State) Backend() *backend.Handle         { return s.backend }
func (s *State) Telemetry() *telemetry.Handle     { return s.telemetry }
func (s *State) HTTPMetrics() metrics.HTTPMetrics { return s.httpMetrics }
func (s *State) Client() *http.Client             { return s.client }
func (s *State) Routes() Routes                   { return s.routes }
func (s *State) Version() string                  { return s.version }
func (s *State) StartedAt() time.Time             { return s.startedAt }

type contextKey struct{}

// WithContext returns a copy of ctx carrying s.
func WithContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the state attached by the router, or nil.
func FromContext(ctx context.Context) *State {
	s, _ := ctx.Value(contextKey{}).(*State)
	return s
}

// Middleware attaches s to every request.
func Middleware(s *State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), s)))
		})
	}
}
