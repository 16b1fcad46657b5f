// Package telemetry owns the process-wide tracing session. Init may succeed at
// most once per process; the returned Handle is passed explicitly to every
// component that emits spans and is shut down last by the service runner.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/marmos91/excelsior/internal/logger"
)

// ErrAlreadyInitialized is returned by Init when a session already exists in
// this process.
var ErrAlreadyInitialized = errors.New("telemetry already initialized")

// initialized guards the global tracer provider, which can only be installed once.
var initialized atomic.Bool

// State is the lifecycle position of a Handle.
type State int32

const (
	StateUninitialized State = iota
	StateActive
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateShutDown:
		return "shut_down"
	default:
		return "unknown"
	}
}

// Option customizes Init.
type Option func(*options)

type options struct {
	exporter sdktrace.SpanExporter
}

// WithExporter replaces the OTLP exporter, typically with an in-memory one.
// Supplying an exporter enables tracing regardless of Config.Enabled.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) {
		o.exporter = exp
	}
}

// Handle is the telemetry session. It is safe for concurrent use.
type Handle struct {
	cfg      Config
	provider *sdktrace.TracerProvider // nil when disabled
	tracer   trace.Tracer

	state        atomic.Int32
	shutdownOnce sync.Once
	shutdownErr  error
}

// Init starts the telemetry session. A collector that is unreachable at this
// point does not fail Init; spans are dropped until it becomes reachable.
func Init(ctx context.Context, cfg Config, opts ...Option) (*Handle, error) {
	if !initialized.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}

	h, err := newHandle(ctx, cfg, opts...)
	if err != nil {
		initialized.Store(false)
		return nil, err
	}
	return h, nil
}

func newHandle(ctx context.Context, cfg Config, opts ...Option) (*Handle, error) {
	cfg.applyDefaults()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	h := &Handle{cfg: cfg}

	if !cfg.Enabled && o.exporter == nil {
		h.tracer = noop.NewTracerProvider().Tracer(cfg.ServiceName)
		h.state.Store(int32(StateActive))
		logger.Debug("Tracing disabled")
		return h, nil
	}
	h.cfg.Enabled = true

	exporter := o.exporter
	if exporter == nil {
		var err error
		exporter, err = otlptracegrpc.New(ctx, exporterOptions(cfg)...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil && !errors.Is(err, resource.ErrPartialResource) {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	h.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
			sdktrace.WithBatchTimeout(cfg.BatchTimeout),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	)

	otel.SetTracerProvider(h.provider)
	otel.SetTextMapPropagator(Propagator())

	h.tracer = h.provider.Tracer(cfg.ServiceName)
	h.state.Store(int32(StateActive))

	logger.Info("Tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment)
	return h, nil
}

func exporterOptions(cfg Config) []otlptracegrpc.Option {
	var opts []otlptracegrpc.Option
	if strings.Contains(cfg.Endpoint, "://") {
		opts = append(opts, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlptracegrpc.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts,
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlptracegrpc.WithInsecure(),
		)
	}
	return opts
}

func newSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// Propagator returns the W3C trace-context and baggage propagator used for
// inbound extraction and outbound injection.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// Tracer returns the session tracer. It is a no-op tracer when tracing is
// disabled or h is nil.
func (h *Handle) Tracer() trace.Tracer {
	if h == nil || h.tracer == nil {
		return noop.NewTracerProvider().Tracer("excelsior")
	}
	return h.tracer
}

// TracerProvider returns the provider backing Tracer, for instrumentation
// libraries that take one.
func (h *Handle) TracerProvider() trace.TracerProvider {
	if h == nil || h.provider == nil {
		return noop.NewTracerProvider()
	}
	return h.provider
}

// Enabled reports whether spans are exported.
func (h *Handle) Enabled() bool {
	return h != nil && h.provider != nil
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	if h == nil {
		return StateUninitialized
	}
	return State(h.state.Load())
}

// Config returns the effective configuration after defaults.
func (h *Handle) Config() Config {
	return h.cfg
}

// ForceFlush exports all spans ended so far.
func (h *Handle) ForceFlush(ctx context.Context) error {
	if h == nil || h.provider == nil {
		return nil
	}
	return h.provider.ForceFlush(ctx)
}

// Shutdown flushes buffered spans and stops the exporter, bounded by
// Config.ShutdownTimeout. Only the first call does work; later calls return
// nil. The process-wide guard stays set, so the session cannot be restarted.
func (h *Handle) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}

	first := false
	h.shutdownOnce.Do(func() {
		first = true
		h.shutdownErr = h.shutdown(ctx)
		h.state.Store(int32(StateShutDown))
	})
	if !first {
		return nil
	}
	return h.shutdownErr
}

func (h *Handle) shutdown(ctx context.Context) error {
	if h.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := h.provider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush spans: %w", err))
	}
	if err := h.provider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
	}
	return errors.Join(errs...)
}
