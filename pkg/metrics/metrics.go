// Package metrics defines the metric sinks used by the request pipeline and
// the service runner. Implementations live in pkg/metrics/prometheus.
//
// Every interface here is optional: callers accept nil and skip recording.
//
// Example usage:
//
//	reg := prometheus.NewRegistry()
//	st := state.New(state.Config{HTTPMetrics: prometheus.NewHTTPMetrics(reg)})
package metrics

import "time"

// HTTPMetrics observes requests flowing through the pipeline.
type HTTPMetrics interface {
	// RequestStarted increments the in-flight gauge.
	RequestStarted(method string)

	// RequestFinished decrements the in-flight gauge and records the
	// outcome. route is the matched pattern (e.g. "/params/{id}/another_p/{name}"),
	// never the raw path, to keep label cardinality bounded.
	RequestFinished(method, route string, status int, duration time.Duration, bytesWritten int)
}

// LifecycleMetrics observes the service runner.
type LifecycleMetrics interface {
	// SetPhase records the runner's current phase.
	SetPhase(phase string)

	// SetBackendKind records which backend variant was acquired.
	SetBackendKind(kind string)

	// ObserveDrain records how long draining took and how many requests
	// were still running when the grace period ended.
	ObserveDrain(duration time.Duration, abandoned int)
}
