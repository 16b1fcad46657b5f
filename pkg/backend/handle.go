// Package backend provides the data backend used by request handlers.
//
// A Handle is either live (a PostgreSQL connection pool) or a stand-in that
// answers every operation without persistence. The variant is chosen once by
// Acquire from a connectivity probe and never changes for the life of the
// handle; there is no failover in either direction.
package backend

import (
	"context"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/internal/telemetry"
)

// Kind identifies the backend variant.
type Kind int

const (
	KindStandIn Kind = iota
	KindLive
)

func (k Kind) String() string {
	switch k {
	case KindLive:
		return "live"
	case KindStandIn:
		return "stand-in"
	default:
		return "unknown"
	}
}

// Option customizes Acquire.
type Option func(*Handle)

// WithTelemetry attaches the tracing session used for backend spans.
func WithTelemetry(t *telemetry.Handle) Option {
	return func(h *Handle) {
		h.tel = t
	}
}

// Handle is the backend shared by all requests. It is safe for concurrent use.
type Handle struct {
	kind   Kind
	pool   *pgxpool.Pool // nil for the stand-in
	cfg    Config
	tel    *telemetry.Handle
	closed atomic.Bool
}

// Acquire probes the configured database and returns a live handle, or a
// stand-in when the URL is empty or anything in the probe fails. It never
// returns an error; failures are logged at WARN.
func Acquire(ctx context.Context, cfg Config, opts ...Option) *Handle {
	cfg.ApplyDefaults()

	if cfg.URL == "" {
		logger.Warn("No database URL configured, using stand-in backend",
			logger.Backend(KindStandIn.String()))
		return NewStandIn(opts...)
	}

	pool, err := connect(ctx, cfg)
	if err != nil {
		logger.Warn("Database unreachable, using stand-in backend",
			logger.Backend(KindStandIn.String()), logger.Err(err))
		return NewStandIn(opts...)
	}

	if cfg.Migrate {
		if _, err := RunMigrations(ctx, cfg.URL); err != nil {
			pool.Close()
			logger.Warn("Database migrations failed, using stand-in backend",
				logger.Backend(KindStandIn.String()), logger.Err(err))
			return NewStandIn(opts...)
		}
	}

	h := &Handle{kind: KindLive, pool: pool, cfg: cfg}
	for _, opt := range opts {
		opt(h)
	}
	logger.Info("Database connected", logger.Backend(KindLive.String()),
		logger.KeyHost, pool.Config().ConnConfig.Host,
		logger.KeyDatabase, pool.Config().ConnConfig.Database,
		"max_conns", cfg.MaxConns)
	return h
}

// NewStandIn returns a handle that serves every operation without a database.
func NewStandIn(opts ...Option) *Handle {
	h := &Handle{kind: KindStandIn}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Kind returns the variant chosen at acquisition.
func (h *Handle) Kind() Kind {
	return h.kind
}

// IsLive reports whether the handle is backed by a database.
func (h *Handle) IsLive() bool {
	return h.kind == KindLive
}

// Ping checks connectivity. The stand-in always succeeds.
func (h *Handle) Ping(ctx context.Context) error {
	if h.closed.Load() {
		return ErrClosed
	}
	switch h.kind {
	case KindLive:
		return h.livePing(ctx)
	default:
		return nil
	}
}

// ListUsers returns all users. The stand-in returns an empty list.
func (h *Handle) ListUsers(ctx context.Context) ([]User, error) {
	if h.closed.Load() {
		return nil, ErrClosed
	}
	ctx, span := h.tel.StartBackendSpan(ctx, "list_users", h.kind.String())
	defer span.End()

	var (
		users []User
		err   error
	)
	switch h.kind {
	case KindLive:
		users, err = h.liveListUsers(ctx)
	default:
		users = standInListUsers()
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	span.SetAttributes(telemetry.RowCount(len(users)))
	return users, nil
}

// CreateUser stores a user. The stand-in echoes the input back with a fresh
// ID and does not persist it.
func (h *Handle) CreateUser(ctx context.Context, in NewUser) (User, error) {
	if h.closed.Load() {
		return User{}, ErrClosed
	}
	ctx, span := h.tel.StartBackendSpan(ctx, "create_user", h.kind.String())
	defer span.End()

	var (
		u   User
		err error
	)
	switch h.kind {
	case KindLive:
		u, err = h.liveCreateUser(ctx, in)
	default:
		u = standInCreateUser(in)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		return User{}, err
	}
	span.SetAttributes(telemetry.UserID(u.ID.String()))
	return u, nil
}

// SaveMessage records a received message. The stand-in discards it.
func (h *Handle) SaveMessage(ctx context.Context, m Message) error {
	if h.closed.Load() {
		return ErrClosed
	}
	ctx, span := h.tel.StartBackendSpan(ctx, "save_message", h.kind.String())
	defer span.End()

	var err error
	switch h.kind {
	case KindLive:
		err = h.liveSaveMessage(ctx, m)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
	}
	return err
}

// Stats returns pool statistics; zero apart from Kind for the stand-in.
func (h *Handle) Stats() Stats {
	s := Stats{Kind: h.kind.String()}
	if h.kind != KindLive || h.closed.Load() {
		return s
	}
	ps := h.pool.Stat()
	s.TotalConns = ps.TotalConns()
	s.IdleConns = ps.IdleConns()
	s.AcquiredConns = ps.AcquiredConns()
	s.MaxConns = ps.MaxConns()
	s.AcquireCount = ps.AcquireCount()
	s.EmptyAcquires = ps.EmptyAcquireCount()
	s.CanceledAcquire = ps.CanceledAcquireCount()
	return s
}

// Close releases the pool. Only the first call has an effect.
func (h *Handle) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	if h.pool != nil {
		logger.Info("Closing database pool")
		h.pool.Close()
	}
}
