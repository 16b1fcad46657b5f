package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/excelsior/pkg/backend"
)

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg).(*httpMetrics)

	m.RequestStarted("GET")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))

	m.RequestFinished("GET", "/ping", 200, 2*time.Millisecond, 5)
	m.RequestStarted("GET")
	m.RequestFinished("GET", "/users", 503, 10*time.Millisecond, 40)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/ping", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/users", "503")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("GET", "/users")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.failures))
}

func TestHTTPMetrics_UnmatchedRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg).(*httpMetrics)

	m.RequestStarted("GET")
	m.RequestFinished("GET", "", 404, time.Millisecond, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

func TestLifecycleMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLifecycleMetrics(reg).(*lifecycleMetrics)

	m.SetPhase("listening")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("listening")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.phase.WithLabelValues("starting")))

	m.SetPhase("draining")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.phase.WithLabelValues("listening")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("draining")))

	m.SetBackendKind("stand-in")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.backendKind.WithLabelValues("stand-in")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.backendKind.WithLabelValues("live")))

	m.ObserveDrain(time.Second, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.abandoned))
}

func TestPoolCollector_StandIn(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := backend.NewStandIn()
	require.NoError(t, RegisterPoolCollector(reg, h))

	expected := `
# HELP excelsior_db_pool_connections_max Configured maximum pool size
# TYPE excelsior_db_pool_connections_max gauge
excelsior_db_pool_connections_max{kind="stand-in"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "excelsior_db_pool_connections_max"))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	m := NewHTTPMetrics(reg)
	m.RequestStarted("GET")
	m.RequestFinished("GET", "/ping", 200, time.Millisecond, 5)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `excelsior_http_requests_total{method="GET",route="/ping",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
