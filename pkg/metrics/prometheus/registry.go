// Package prometheus implements the metric sinks in pkg/metrics with the
// Prometheus client library.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marmos91/excelsior/internal/logger"
)

// namespace prefixes every metric name.
const namespace = "excelsior"

// NewRegistry returns a private registry preloaded with the Go runtime and
// process collectors. A private registry keeps tests independent and avoids
// clashes with libraries that register on the default one.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry:          reg,
		ErrorLog:          promLogger{},
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
}

// promLogger routes promhttp errors to the service logger.
type promLogger struct{}

func (promLogger) Println(v ...any) {
	logger.Warn("Metrics exposition error", "detail", v)
}
