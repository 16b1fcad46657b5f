package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/excelsior/internal/logger"
)

// httpServer serves one listener and knows how to drain it. Every request
// holds the wait group for its whole duration, so draining can tell when the
// last handler has returned even after its connection was force-closed.
type httpServer struct {
	srv      *http.Server
	ln       net.Listener
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	active   atomic.Int64
}

func newHTTPServer(ln net.Listener, handler http.Handler, cfg Config) *httpServer {
	base, cancel := context.WithCancel(context.Background())
	s := &httpServer{ln: ln, cancel: cancel}
	s.srv = &http.Server{
		Handler:           s.track(handler),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return base },
		ErrorLog:          logger.StdLogger("http.server"),
	}
	return s
}

func (s *httpServer) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.inflight.Add(1)
		s.active.Add(1)
		defer func() {
			s.active.Add(-1)
			s.inflight.Done()
		}()
		next.ServeHTTP(w, r)
	})
}

// serve blocks until the server is shut down. A clean shutdown returns nil.
func (s *httpServer) serve() error {
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// inFlight returns the number of handlers currently running.
func (s *httpServer) inFlight() int {
	return int(s.active.Load())
}

// drain stops accepting connections and waits up to grace for in-flight
// requests. Requests still running at the deadline have their context
// cancelled and their connections closed; drain then waits at most settle for
// their handlers to return and reports how many had not.
func (s *httpServer) drain(grace, settle time.Duration) (abandoned int) {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	err := s.srv.Shutdown(ctx)
	if err == nil {
		// Shutdown only tracks connections; hijacked or detached handlers
		// may still be finishing. They get what is left of the grace period.
		deadline, _ := ctx.Deadline()
		if s.wait(time.Until(deadline)) {
			s.cancel()
			return 0
		}
	}

	logger.Warn("Grace period expired, cancelling in-flight requests",
		logger.KeyInFlight, s.inFlight(), "grace", grace.String())
	s.cancel()
	_ = s.srv.Close()

	if !s.wait(settle) {
		abandoned = s.inFlight()
		logger.Warn("Handlers still running after cancellation",
			logger.KeyInFlight, abandoned, "settle", settle.String())
	}
	return abandoned
}

// wait reports whether every tracked handler returned within d.
func (s *httpServer) wait(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	if d <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}
