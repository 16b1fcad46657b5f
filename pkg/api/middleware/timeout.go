package middleware

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/pkg/api/response"
	"github.com/marmos91/excelsior/pkg/bufpool"
)

// Timeout runs the handler with a deadline of d. The handler writes into a
// buffer; if it finishes in time the buffer is copied to the client,
// otherwise the buffer is discarded and the client receives 408 Request
// Timeout. The handler's context is cancelled at the deadline so it can stop
// early, but it is not waited for. No retry is attempted.
//
// A handler still running after the 408 is outside the server's in-flight
// accounting, so draining does not wait for it and spans it ends after
// telemetry shutdown are dropped.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			r = r.WithContext(ctx)

			tw := &timeoutWriter{w: w, h: make(http.Header), buf: bufpool.Get()}
			done := make(chan struct{})
			panicked := make(chan any, 1)

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(tw, r)
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				tw.flush()
			case <-ctx.Done():
				select {
				case <-done:
					tw.flush()
					return
				default:
				}
				tw.expire()
				logger.WarnCtx(r.Context(), "Request timed out", "timeout", d.String())
				response.RequestTimeout(w, "request exceeded "+d.String())
			}
		})
	}
}

// timeoutWriter buffers a handler's response until Timeout decides whether
// to send it or drop it.
type timeoutWriter struct {
	w http.ResponseWriter
	h http.Header

	mu          sync.Mutex
	buf         *bytes.Buffer // pooled; nil once released
	code        int
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.h
}

func (tw *timeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.buf == nil {
		return 0, http.ErrHandlerTimeout
	}
	if !tw.wroteHeader {
		tw.writeHeaderLocked(http.StatusOK)
	}
	return tw.buf.Write(p)
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut || tw.wroteHeader {
		return
	}
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	tw.wroteHeader = true
	tw.code = code
}

// expire makes every later write from the handler fail and drops the
// buffered output.
func (tw *timeoutWriter) expire() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.timedOut = true
	tw.releaseLocked()
}

func (tw *timeoutWriter) releaseLocked() {
	bufpool.Put(tw.buf)
	tw.buf = nil
}

// flush copies the buffered response to the client.
func (tw *timeoutWriter) flush() {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	dst := tw.w.Header()
	for k, vv := range tw.h {
		dst[k] = vv
	}
	if !tw.wroteHeader {
		tw.code = http.StatusOK
	}
	tw.w.WriteHeader(tw.code)
	_, _ = tw.w.Write(tw.buf.Bytes())
	tw.releaseLocked()
}
