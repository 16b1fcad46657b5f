package telemetry

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/grafana/pyroscope-go"

	"github.com/marmos91/excelsior/internal/logger"
)

// ProfilingConfig contains configuration for Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool

	// ServiceName is the application name shown in Pyroscope
	ServiceName string

	ServiceVersion string
	Environment    string

	// Endpoint is the Pyroscope server URL (e.g., "http://localhost:4040")
	Endpoint string

	// ProfileTypes selects what to collect. Valid values: cpu, alloc_objects,
	// alloc_space, inuse_objects, inuse_space, goroutines, mutex_count,
	// mutex_duration, block_count, block_duration.
	ProfileTypes []string
}

var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// Profiler is a running profiling session. The zero value and nil are valid
// and stop as no-ops.
type Profiler struct {
	p *pyroscope.Profiler
}

// InitProfiling starts Pyroscope continuous profiling when enabled.
// The runner stops it right before the telemetry session is shut down.
func InitProfiling(cfg ProfilingConfig) (*Profiler, error) {
	if !cfg.Enabled {
		return &Profiler{}, nil
	}

	types, err := parseProfileTypes(cfg.ProfileTypes)
	if err != nil {
		return nil, err
	}

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags: map[string]string{
			"version":     cfg.ServiceVersion,
			"environment": cfg.Environment,
		},
		ProfileTypes: types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}

	logger.Info("Profiling enabled", "endpoint", cfg.Endpoint, "types", strings.Join(cfg.ProfileTypes, ","))
	return &Profiler{p: p}, nil
}

// Enabled reports whether a profiler is running.
func (p *Profiler) Enabled() bool {
	return p != nil && p.p != nil
}

// Stop flushes and stops the profiler. Safe to call more than once.
func (p *Profiler) Stop() error {
	if p == nil || p.p == nil {
		return nil
	}
	err := p.p.Stop()
	p.p = nil
	return err
}

// parseProfileTypes maps names to Pyroscope types and turns on the runtime
// sampling that mutex and block profiles depend on.
func parseProfileTypes(names []string) ([]pyroscope.ProfileType, error) {
	types := make([]pyroscope.ProfileType, 0, len(names))
	for _, name := range names {
		pt, ok := profileTypes[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("invalid profile type %q", name)
		}
		types = append(types, pt)

		switch pt {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(5)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(5)
		}
	}
	return types, nil
}
