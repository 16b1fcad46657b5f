package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// connect builds the pool and pings it, both bounded by ConnectTimeout.
func connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	if cfg.QueryTimeout > 0 {
		poolConfig.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%dms", cfg.QueryTimeout.Milliseconds())
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return pool, nil
}

// withConn acquires a pool connection under AcquireTimeout and releases it
// when fn returns. pgxpool has no acquire timeout of its own, so without this
// an exhausted pool blocks until the request context ends.
func (h *Handle) withConn(ctx context.Context, operation string, fn func(*pgxpool.Conn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	acquireCtx, cancel := context.WithTimeout(ctx, h.cfg.AcquireTimeout)
	defer cancel()

	conn, err := h.pool.Acquire(acquireCtx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %v", operation, ErrUnavailable, err)
	}
	defer conn.Release()

	return mapPgError(fn(conn), operation)
}

func (h *Handle) livePing(ctx context.Context) error {
	return h.withConn(ctx, "ping", func(c *pgxpool.Conn) error {
		return c.Ping(ctx)
	})
}

const listUsersSQL = `SELECT id, name, email, created_at FROM users ORDER BY created_at, id`

func (h *Handle) liveListUsers(ctx context.Context) ([]User, error) {
	var users []User
	err := h.withConn(ctx, "list_users", func(c *pgxpool.Conn) error {
		rows, err := c.Query(ctx, listUsersSQL)
		if err != nil {
			return err
		}
		users, err = pgx.CollectRows(rows, pgx.RowToStructByName[User])
		return err
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

const createUserSQL = `INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
RETURNING id, name, email, created_at`

func (h *Handle) liveCreateUser(ctx context.Context, in NewUser) (User, error) {
	var u User
	err := h.withConn(ctx, "create_user", func(c *pgxpool.Conn) error {
		rows, err := c.Query(ctx, createUserSQL, uuid.New(), in.Name, in.Email)
		if err != nil {
			return err
		}
		u, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[User])
		return err
	})
	if err != nil && errors.Is(err, ErrNotFound) {
		return User{}, fmt.Errorf("create_user: insert returned no row")
	}
	return u, err
}

const saveMessageSQL = `INSERT INTO messages (code, message_text) VALUES ($1, $2)`

func (h *Handle) liveSaveMessage(ctx context.Context, m Message) error {
	return h.withConn(ctx, "save_message", func(c *pgxpool.Conn) error {
		_, err := c.Exec(ctx, saveMessageSQL, m.Code, m.MessageText)
		return err
	})
}
