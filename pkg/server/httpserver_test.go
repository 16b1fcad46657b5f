package server

import (
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	status int
	body   string
	err    error
}

// startHTTPServer serves h on a loopback port and returns the server and its
// base URL.
func startHTTPServer(t *testing.T, h http.Handler) (*httpServer, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	hs := newHTTPServer(ln, h, Config{ReadHeaderTimeout: time.Second, IdleTimeout: time.Second})
	go func() { _ = hs.serve() }()
	return hs, "http://" + ln.Addr().String()
}

func get(url string, out chan<- result) {
	resp, err := http.Get(url)
	if err != nil {
		out <- result{err: err}
		return
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	out <- result{status: resp.StatusCode, body: string(b), err: err}
}

func TestDrain_SlowRequestCompletes(t *testing.T) {
	hs, url := startHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("done"))
	}))

	out := make(chan result, 1)
	go get(url, out)
	require.Eventually(t, func() bool { return hs.inFlight() == 1 }, 2*time.Second, 5*time.Millisecond)

	abandoned := hs.drain(5*time.Second, 100*time.Millisecond)
	assert.Zero(t, abandoned)

	res := <-out
	require.NoError(t, res.err)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "done", res.body)
}

func TestDrain_RefusesNewConnections(t *testing.T) {
	hs, url := startHTTPServer(t, http.NotFoundHandler())
	addr := hs.ln.Addr().String()

	hs.drain(time.Second, 100*time.Millisecond)

	_, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
	assert.Error(t, err)
	_, err = http.Get(url)
	assert.Error(t, err)
}

func TestDrain_GraceExpiryCancelsRequests(t *testing.T) {
	var cancelled atomic.Bool
	hs, url := startHTTPServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		cancelled.Store(true)
	}))

	out := make(chan result, 1)
	go get(url, out)
	require.Eventually(t, func() bool { return hs.inFlight() == 1 }, 2*time.Second, 5*time.Millisecond)

	start := time.Now()
	abandoned := hs.drain(100*time.Millisecond, time.Second)

	assert.Zero(t, abandoned)
	assert.True(t, cancelled.Load())
	assert.Less(t, time.Since(start), time.Second)
	<-out
}

func TestDrain_ReportsAbandonedHandlers(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	hs, url := startHTTPServer(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))

	out := make(chan result, 1)
	go get(url, out)
	require.Eventually(t, func() bool { return hs.inFlight() == 1 }, 2*time.Second, 5*time.Millisecond)

	abandoned := hs.drain(50*time.Millisecond, 50*time.Millisecond)
	assert.Equal(t, 1, abandoned)
}

func TestDrain_BoundedByGraceThenSettle(t *testing.T) {
	const (
		grace  = time.Second
		settle = 100 * time.Millisecond
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/slow", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(400 * time.Millisecond)
		_, _ = w.Write([]byte("done"))
	})
	mux.HandleFunc("/hijack", func(w http.ResponseWriter, _ *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		time.Sleep(3 * time.Second)
		_ = conn.Close()
	})
	hs, url := startHTTPServer(t, mux)

	raw, err := net.Dial("tcp", hs.ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	_, err = raw.Write([]byte("GET /hijack HTTP/1.1\r\nHost: test\r\n\r\n"))
	require.NoError(t, err)

	out := make(chan result, 1)
	go get(url+"/slow", out)
	require.Eventually(t, func() bool { return hs.inFlight() == 2 }, 2*time.Second, 5*time.Millisecond)

	start := time.Now()
	abandoned := hs.drain(grace, settle)
	elapsed := time.Since(start)

	assert.Equal(t, 1, abandoned)
	assert.Less(t, elapsed, grace+settle+300*time.Millisecond)

	res := <-out
	require.NoError(t, res.err)
	assert.Equal(t, "done", res.body)
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Zero(t, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Second, cfg.SettleTimeout)
	assert.Equal(t, "0.0.0.0:3000", DefaultConfig().Address())
}
