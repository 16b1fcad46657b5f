package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/excelsior/pkg/metrics"
)

// httpMetrics is the Prometheus implementation of metrics.HTTPMetrics.
type httpMetrics struct {
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	responseBytes *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	failures      *prometheus.CounterVec
}

// NewHTTPMetrics registers the request metrics on reg.
func NewHTTPMetrics(reg prometheus.Registerer) metrics.HTTPMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets: []float64{
					0.001, // 1ms - ping
					0.005,
					0.01,
					0.05,
					0.1,
					0.5,
					1,
					5,
					10,
					60, // request timeout
				},
			},
			[]string{"method", "route"},
		),
		responseBytes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "Response body size in bytes, after compression",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8), // 64B .. 1MiB
			},
			[]string{"method", "route"},
		),
		inFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Requests currently being served",
			},
		),
		failures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_request_failures_total",
				Help:      "Requests that ended with a 5xx status",
			},
			[]string{"method", "route"},
		),
	}
}

func (m *httpMetrics) RequestStarted(string) {
	m.inFlight.Inc()
}

func (m *httpMetrics) RequestFinished(method, route string, status int, duration time.Duration, bytesWritten int) {
	m.inFlight.Dec()
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
	m.responseBytes.WithLabelValues(method, route).Observe(float64(bytesWritten))
	if status >= 500 {
		m.failures.WithLabelValues(method, route).Inc()
	}
}
