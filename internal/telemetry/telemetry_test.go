package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newTestHandle initializes a session backed by an in-memory exporter and
// releases the process-wide guard when the test ends.
func newTestHandle(t *testing.T) (*Handle, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	h, err := Init(context.Background(), Config{SampleRate: 1.0, ServiceName: "excelsior-test"}, WithExporter(exp))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = h.Shutdown(context.Background())
		initialized.Store(false)
	})
	return h, exp
}

func flushed(t *testing.T, h *Handle, exp *tracetest.InMemoryExporter) tracetest.SpanStubs {
	t.Helper()
	require.NoError(t, h.ForceFlush(context.Background()))
	return exp.GetSpans()
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "excelsior", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestInit_Disabled(t *testing.T) {
	t.Cleanup(func() { initialized.Store(false) })

	h, err := Init(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	assert.Equal(t, StateActive, h.State())
	assert.False(t, h.Enabled())

	_, span := h.StartSpan(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, StateShutDown, h.State())
}

func TestInit_SecondCallFails(t *testing.T) {
	newTestHandle(t)

	h, err := Init(context.Background(), Config{})
	assert.Nil(t, h)
	assert.True(t, errors.Is(err, ErrAlreadyInitialized))
}

func TestInit_UnreachableCollector(t *testing.T) {
	t.Cleanup(func() { initialized.Store(false) })

	h, err := Init(context.Background(), Config{
		Enabled:         true,
		Endpoint:        "127.0.0.1:1",
		Insecure:        true,
		SampleRate:      1.0,
		ShutdownTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, h.Enabled())
	assert.Equal(t, StateActive, h.State())

	// Export errors are tolerated; only the state transition matters here.
	_ = h.Shutdown(context.Background())
	assert.Equal(t, StateShutDown, h.State())
}

func TestShutdown_FlushesAndIsIdempotent(t *testing.T) {
	h, exp := newTestHandle(t)

	_, span := h.StartSpan(context.Background(), "work")
	span.End()

	spans := flushed(t, h, exp)
	require.Len(t, spans, 1)
	assert.Equal(t, "work", spans[0].Name)

	require.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, StateShutDown, h.State())
	assert.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, StateShutDown, h.State())
}

func TestShutdown_GuardStaysSet(t *testing.T) {
	h, _ := newTestHandle(t)
	require.NoError(t, h.Shutdown(context.Background()))

	_, err := Init(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestNilHandle(t *testing.T) {
	var h *Handle

	assert.Equal(t, StateUninitialized, h.State())
	assert.False(t, h.Enabled())
	assert.NotNil(t, h.Tracer())
	assert.NotNil(t, h.TracerProvider())
	assert.NoError(t, h.Shutdown(context.Background()))
	assert.NoError(t, h.ForceFlush(context.Background()))
}

func TestResourceAttributes(t *testing.T) {
	h, exp := newTestHandle(t)

	_, span := h.StartSpan(context.Background(), "res")
	span.End()

	spans := flushed(t, h, exp)
	require.Len(t, spans, 1)

	attrs := map[string]string{}
	for _, kv := range spans[0].Resource.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "excelsior-test", attrs["service.name"])
	assert.Equal(t, "dev", attrs["service.version"])
	assert.Equal(t, "development", attrs["deployment.environment"])
}

func TestRecordFailure(t *testing.T) {
	h, exp := newTestHandle(t)

	ctx, span := h.StartSpan(context.Background(), "GET /boom")
	RecordFailure(ctx, 503, 12*time.Millisecond)
	span.End()

	spans := flushed(t, h, exp)
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, EventRequestFailed, spans[0].Events[0].Name)
}

func TestRecordError(t *testing.T) {
	h, exp := newTestHandle(t)

	ctx, span := h.StartSpan(context.Background(), "op")
	RecordError(ctx, nil)
	RecordError(ctx, errors.New("boom"))
	span.End()

	spans := flushed(t, h, exp)
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "boom", spans[0].Status.Description)
}

func TestStartBackendSpan(t *testing.T) {
	h, exp := newTestHandle(t)

	_, span := h.StartBackendSpan(context.Background(), "list_users", "live", RowCount(3))
	span.End()

	spans := flushed(t, h, exp)
	require.Len(t, spans, 1)
	assert.Equal(t, "backend.list_users", spans[0].Name)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
	assert.Contains(t, spans[0].Attributes, BackendKind("live"))
	assert.Contains(t, spans[0].Attributes, RowCount(3))
}

func TestTraceAndSpanID(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
	assert.Empty(t, SpanID(context.Background()))

	h, _ := newTestHandle(t)
	ctx, span := h.StartSpan(context.Background(), "ids")
	defer span.End()

	assert.Len(t, TraceID(ctx), 32)
	assert.Len(t, SpanID(ctx), 16)
}

func TestAttributeHelpers(t *testing.T) {
	assert.Equal(t, AttrHTTPStatusCode, string(HTTPStatus(200).Key))
	assert.Equal(t, int64(200), HTTPStatus(200).Value.AsInt64())
	assert.Equal(t, "10.0.0.1", ClientIP("10.0.0.1").Value.AsString())
	assert.Equal(t, "/users", HTTPRoute("/users").Value.AsString())
	assert.Equal(t, 1.5, LatencyMs(1500*time.Microsecond).Value.AsFloat64())
	assert.Equal(t, "abc", UserID("abc").Value.AsString())
	assert.Equal(t, "upstream", PeerService("upstream").Value.AsString())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "shut_down", StateShutDown.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestProfiling(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		p, err := InitProfiling(ProfilingConfig{Enabled: false})
		require.NoError(t, err)
		assert.False(t, p.Enabled())
		assert.NoError(t, p.Stop())
		assert.NoError(t, p.Stop())
	})

	t.Run("InvalidType", func(t *testing.T) {
		_, err := InitProfiling(ProfilingConfig{Enabled: true, ProfileTypes: []string{"cpu", "bogus"}})
		assert.Error(t, err)
	})

	t.Run("ParsesTypes", func(t *testing.T) {
		types, err := parseProfileTypes([]string{"CPU", " inuse_space "})
		require.NoError(t, err)
		assert.Len(t, types, 2)
	})

	t.Run("NilProfiler", func(t *testing.T) {
		var p *Profiler
		assert.False(t, p.Enabled())
		assert.NoError(t, p.Stop())
	})
}
