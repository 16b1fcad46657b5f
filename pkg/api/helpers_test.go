package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/marmos91/excelsior/internal/telemetry"
	"github.com/marmos91/excelsior/pkg/api/response"
	"github.com/marmos91/excelsior/pkg/api/state"
	"github.com/marmos91/excelsior/pkg/backend"
	promMetrics "github.com/marmos91/excelsior/pkg/metrics/prometheus"
)

var (
	telOnce  sync.Once
	telemH   *telemetry.Handle
	spanSink *tracetest.InMemoryExporter
)

// sharedTelemetry returns the test binary's telemetry session. Init may run
// only once per process, so every test shares one in-memory exporter.
func sharedTelemetry(t *testing.T) (*telemetry.Handle, *tracetest.InMemoryExporter) {
	t.Helper()
	telOnce.Do(func() {
		spanSink = tracetest.NewInMemoryExporter()
		h, err := telemetry.Init(context.Background(),
			telemetry.Config{ServiceName: "excelsior-api-test", SampleRate: 1.0},
			telemetry.WithExporter(spanSink))
		if err != nil {
			panic(err)
		}
		telemH = h
	})
	return telemH, spanSink
}

// findSpan flushes the session and returns the first span with name.
func findSpan(t *testing.T, name string) (tracetest.SpanStub, bool) {
	t.Helper()
	h, exp := sharedTelemetry(t)
	require.NoError(t, h.ForceFlush(context.Background()))
	for _, s := range exp.GetSpans() {
		if s.Name == name {
			return s, true
		}
	}
	return tracetest.SpanStub{}, false
}

// findSpanWithStatus is findSpan restricted to spans that recorded status.
func findSpanWithStatus(t *testing.T, name string, status int) (tracetest.SpanStub, bool) {
	t.Helper()
	h, exp := sharedTelemetry(t)
	require.NoError(t, h.ForceFlush(context.Background()))
	for _, s := range exp.GetSpans() {
		if s.Name != name {
			continue
		}
		for _, kv := range s.Attributes {
			if string(kv.Key) == telemetry.AttrHTTPStatusCode && kv.Value.AsInt64() == int64(status) {
				return s, true
			}
		}
	}
	return tracetest.SpanStub{}, false
}

func spanAttrs(s tracetest.SpanStub) map[string]any {
	attrs := map[string]any{}
	for _, kv := range s.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	return attrs
}

type testEnv struct {
	state   *state.State
	handler http.Handler
	reg     *prometheus.Registry
}

type envOption func(*state.Config, *Limits)

func withRoutes(r state.Routes) envOption {
	return func(c *state.Config, _ *Limits) { c.Routes = r }
}

func withLimits(l Limits) envOption {
	return func(_ *state.Config, lim *Limits) { *lim = l }
}

// newTestEnv builds the full handler over a stand-in backend.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	tel, _ := sharedTelemetry(t)
	reg := promMetrics.NewRegistry()

	b := backend.NewStandIn(backend.WithTelemetry(tel))
	t.Cleanup(b.Close)

	cfg := state.Config{
		Backend:     b,
		Telemetry:   tel,
		HTTPMetrics: promMetrics.NewHTTPMetrics(reg),
		Version:     "test",
	}
	limits := DefaultLimits()
	for _, opt := range opts {
		opt(&cfg, &limits)
	}

	s := state.New(cfg)
	return &testEnv{
		state:   s,
		handler: NewHandler(s, limits, promMetrics.Handler(reg)),
		reg:     reg,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}
