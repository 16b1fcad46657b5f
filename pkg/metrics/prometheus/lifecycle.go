package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/excelsior/pkg/backend"
	"github.com/marmos91/excelsior/pkg/metrics"
)

var (
	phases       = []string{"starting", "listening", "draining", "stopped"}
	backendKinds = []string{backend.KindLive.String(), backend.KindStandIn.String()}
)

// lifecycleMetrics is the Prometheus implementation of metrics.LifecycleMetrics.
type lifecycleMetrics struct {
	phase         *prometheus.GaugeVec
	backendKind   *prometheus.GaugeVec
	drainDuration prometheus.Histogram
	abandoned     prometheus.Counter
}

// NewLifecycleMetrics registers the runner metrics on reg.
func NewLifecycleMetrics(reg prometheus.Registerer) metrics.LifecycleMetrics {
	f := promauto.With(reg)
	return &lifecycleMetrics{
		phase: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runner_phase",
				Help:      "1 for the runner's current phase, 0 otherwise",
			},
			[]string{"phase"},
		),
		backendKind: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backend_kind",
				Help:      "1 for the active backend variant (live or stand-in)",
			},
			[]string{"kind"},
		),
		drainDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "runner_drain_duration_seconds",
				Help:      "Time spent draining in-flight requests on shutdown",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
		abandoned: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runner_abandoned_requests_total",
				Help:      "Requests force-cancelled at the end of the grace period",
			},
		),
	}
}

func (m *lifecycleMetrics) SetPhase(phase string) {
	setOneHot(m.phase, phases, phase)
}

func (m *lifecycleMetrics) SetBackendKind(kind string) {
	setOneHot(m.backendKind, backendKinds, kind)
}

func (m *lifecycleMetrics) ObserveDrain(d time.Duration, abandoned int) {
	m.drainDuration.Observe(d.Seconds())
	m.abandoned.Add(float64(abandoned))
}

func setOneHot(g *prometheus.GaugeVec, labels []string, active string) {
	for _, l := range labels {
		v := 0.0
		if l == active {
			v = 1
		}
		g.WithLabelValues(l).Set(v)
	}
}

// poolCollector exports backend pool statistics at scrape time.
type poolCollector struct {
	stats func() backend.Stats

	total    *prometheus.Desc
	idle     *prometheus.Desc
	acquired *prometheus.Desc
	max      *prometheus.Desc
	acquires *prometheus.Desc
	empty    *prometheus.Desc
}

// RegisterPoolCollector exports h's pool statistics on reg. The stand-in
// reports zeros.
func RegisterPoolCollector(reg prometheus.Registerer, h *backend.Handle) error {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "db_pool", name), help, []string{"kind"}, nil)
	}
	return reg.Register(&poolCollector{
		stats:    h.Stats,
		total:    desc("connections_total", "Connections currently open"),
		idle:     desc("connections_idle", "Idle connections"),
		acquired: desc("connections_acquired", "Connections checked out by requests"),
		max:      desc("connections_max", "Configured maximum pool size"),
		acquires: desc("acquires_total", "Successful connection acquisitions"),
		empty:    desc("empty_acquires_total", "Acquisitions that had to wait for a connection"),
	})
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.acquired
	ch <- c.max
	ch <- c.acquires
	ch <- c.empty
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns), s.Kind)
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns), s.Kind)
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns), s.Kind)
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns), s.Kind)
	ch <- prometheus.MustNewConstMetric(c.acquires, prometheus.CounterValue, float64(s.AcquireCount), s.Kind)
	ch <- prometheus.MustNewConstMetric(c.empty, prometheus.CounterValue, float64(s.EmptyAcquires), s.Kind)
}
