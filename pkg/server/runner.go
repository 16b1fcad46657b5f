// Package server runs the excelsior HTTP service from startup to shutdown.
//
// A Runner moves through four phases:
//
//	Starting -> Listening -> Draining -> Stopped
//
// Starting binds the listener, initializes tracing and profiling, acquires
// the backend and builds the request pipeline. Any failure there is returned
// as a *StartupError. The listener is bound first so a port conflict fails
// before anything else is initialized; until Listening, connections the
// kernel accepts wait in the backlog, typically no longer than the backend
// probe's connect timeout. Listening serves until the Run context is cancelled.
// Draining stops accepting connections and gives in-flight requests a grace
// period; requests still running at its end are cancelled. Stopped releases
// the backend, stops profiling and shuts telemetry down last so spans from
// the drained requests are flushed.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/internal/telemetry"
	"github.com/marmos91/excelsior/pkg/api"
	"github.com/marmos91/excelsior/pkg/api/state"
	"github.com/marmos91/excelsior/pkg/backend"
	"github.com/marmos91/excelsior/pkg/metrics"
	promMetrics "github.com/marmos91/excelsior/pkg/metrics/prometheus"
)

// Phase is the runner's lifecycle phase.
type Phase int32

const (
	PhaseStarting Phase = iota
	PhaseListening
	PhaseDraining
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseListening:
		return "listening"
	case PhaseDraining:
		return "draining"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ErrAlreadyRun is returned when Run is called more than once.
var ErrAlreadyRun = errors.New("runner has already been started")

// StartupError is returned by Run when the service could not reach the
// Listening phase. The process should exit non-zero.
type StartupError struct {
	Step string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed during %s: %v", e.Step, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Options is everything the runner needs to build the service.
type Options struct {
	Server    Config
	Limits    api.Limits
	Telemetry telemetry.Config
	Profiling telemetry.ProfilingConfig
	Backend   backend.Config
	Routes    state.Routes
	Version   string

	// Metrics exposes GET /metrics on the service listener.
	Metrics bool
}

// Option customizes a Runner.
type Option func(*Runner)

// WithTelemetryOptions passes options through to telemetry.Init.
func WithTelemetryOptions(opts ...telemetry.Option) Option {
	return func(r *Runner) {
		r.telOpts = append(r.telOpts, opts...)
	}
}

// WithRegistry sets the Prometheus registry. By default each runner builds
// its own.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(r *Runner) {
		r.reg = reg
	}
}

// Runner owns the service lifecycle. Create one with New and call Run once.
type Runner struct {
	opts    Options
	telOpts []telemetry.Option
	reg     *prometheus.Registry

	lifecycle metrics.LifecycleMetrics

	phase atomic.Int32
	ready chan struct{}
	ran   atomic.Bool

	mu      sync.Mutex
	addr    net.Addr
	tel     *telemetry.Handle
	prof    *telemetry.Profiler
	backend *backend.Handle
}

// New creates a runner in the Starting phase. Nothing is started until Run.
func New(opts Options, options ...Option) *Runner {
	opts.Server.applyDefaults()

	r := &Runner{
		opts:  opts,
		ready: make(chan struct{}),
	}
	for _, o := range options {
		o(r)
	}
	if r.reg == nil {
		r.reg = promMetrics.NewRegistry()
	}
	r.lifecycle = promMetrics.NewLifecycleMetrics(r.reg)
	r.setPhase(PhaseStarting)
	return r
}

// Phase returns the current lifecycle phase.
func (r *Runner) Phase() Phase {
	return Phase(r.phase.Load())
}

// Ready is closed once the runner is Listening.
func (r *Runner) Ready() <-chan struct{} {
	return r.ready
}

// Addr returns the bound address, or nil before the listener exists.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.addr
}

// Telemetry returns the tracing session, or nil before it is initialized.
func (r *Runner) Telemetry() *telemetry.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tel
}

// Backend returns the acquired backend, or nil before acquisition.
func (r *Runner) Backend() *backend.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend
}

// Registry returns the Prometheus registry the runner reports to.
func (r *Runner) Registry() *prometheus.Registry {
	return r.reg
}

func (r *Runner) setPhase(p Phase) {
	r.phase.Store(int32(p))
	r.lifecycle.SetPhase(p.String())
	logger.Debug("Runner phase changed", logger.Phase(p.String()))
}

// Run starts the service and blocks until ctx is cancelled and shutdown has
// completed, or until startup fails. A nil error means a clean stop.
func (r *Runner) Run(ctx context.Context) error {
	if !r.ran.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	logger.Info("Starting excelsior", "version", r.opts.Version,
		logger.KeyAddr, r.opts.Server.Address())

	hs, err := r.start(ctx)
	if err != nil {
		r.setPhase(PhaseStopped)
		logger.Error("Startup failed", logger.Err(err))
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- hs.serve()
	}()

	r.setPhase(PhaseListening)
	close(r.ready)
	logger.Info("Listening", logger.KeyAddr, hs.ln.Addr().String(),
		logger.Backend(r.backend.Kind().String()),
		"tracing", r.tel.Enabled())

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, draining",
			logger.KeyInFlight, hs.inFlight(),
			"grace", r.opts.Server.ShutdownTimeout.String())
	case err := <-serveErr:
		runErr = fmt.Errorf("server stopped unexpectedly: %w", err)
		logger.Error("Server stopped unexpectedly", logger.Err(err))
	}

	r.setPhase(PhaseDraining)
	began := time.Now()
	abandoned := hs.drain(r.opts.Server.ShutdownTimeout, r.opts.Server.SettleTimeout)
	r.lifecycle.ObserveDrain(time.Since(began), abandoned)
	if runErr == nil {
		if err := <-serveErr; err != nil {
			runErr = fmt.Errorf("server stopped with error: %w", err)
		}
	}
	logger.Info("Drained", "duration", time.Since(began).String(), "abandoned", abandoned)

	r.release()
	r.setPhase(PhaseStopped)
	logger.Info("Stopped")
	return runErr
}

// start performs the Starting phase. On failure everything acquired so far
// is released.
func (r *Runner) start(ctx context.Context) (hs *httpServer, err error) {
	// Bind first: a port conflict should fail before any slow startup work.
	ln, err := net.Listen("tcp", r.opts.Server.Address())
	if err != nil {
		return nil, &StartupError{Step: "listen", Err: err}
	}
	r.mu.Lock()
	r.addr = ln.Addr()
	r.mu.Unlock()

	defer func() {
		if err != nil {
			_ = ln.Close()
			r.release()
		}
	}()

	telCfg := r.opts.Telemetry
	if telCfg.ServiceVersion == "" {
		telCfg.ServiceVersion = r.opts.Version
	}
	tel, err := telemetry.Init(ctx, telCfg, r.telOpts...)
	if err != nil {
		return nil, &StartupError{Step: "telemetry", Err: err}
	}
	r.mu.Lock()
	r.tel = tel
	r.mu.Unlock()

	profCfg := r.opts.Profiling
	if profCfg.ServiceVersion == "" {
		profCfg.ServiceVersion = r.opts.Version
	}
	prof, err := telemetry.InitProfiling(profCfg)
	if err != nil {
		return nil, &StartupError{Step: "profiling", Err: err}
	}
	r.mu.Lock()
	r.prof = prof
	r.mu.Unlock()

	b := backend.Acquire(ctx, r.opts.Backend, backend.WithTelemetry(tel))
	r.mu.Lock()
	r.backend = b
	r.mu.Unlock()
	r.lifecycle.SetBackendKind(b.Kind().String())
	if err := promMetrics.RegisterPoolCollector(r.reg, b); err != nil {
		return nil, &StartupError{Step: "metrics", Err: err}
	}

	s := state.New(state.Config{
		Backend:     b,
		Telemetry:   tel,
		HTTPMetrics: promMetrics.NewHTTPMetrics(r.reg),
		Routes:      r.opts.Routes,
		Version:     r.opts.Version,
	})

	var metricsHandler http.Handler
	if r.opts.Metrics {
		metricsHandler = promMetrics.Handler(r.reg)
	}

	handler := api.NewHandler(s, r.opts.Limits, metricsHandler)
	return newHTTPServer(ln, handler, r.opts.Server), nil
}

// release closes the backend, stops profiling and shuts telemetry down, in
// that order. Each step is skipped if it was never acquired.
func (r *Runner) release() {
	r.mu.Lock()
	b, prof, tel := r.backend, r.prof, r.tel
	r.mu.Unlock()

	if b != nil {
		b.Close()
	}
	if prof != nil {
		if err := prof.Stop(); err != nil {
			logger.Warn("Profiler stop failed", logger.Err(err))
		}
	}
	if tel != nil {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", logger.Err(err))
		}
	}
}
