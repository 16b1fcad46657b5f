package backend

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrUnavailable is returned when no pool connection could be obtained
	// in time. Callers surface it as 503.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrAlreadyExists is returned when a unique constraint rejects a write.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned by operations on a closed handle.
	ErrClosed = errors.New("backend closed")
)

// mapPgError translates pgx errors into the package's sentinel errors while
// keeping the original error in the chain.
func mapPgError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", operation, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		// 23505: unique_violation
		case "23505":
			return fmt.Errorf("%s: %w: %s", operation, ErrAlreadyExists, pgErr.ConstraintName)
		// 53300: too_many_connections, 57P03: cannot_connect_now
		case "53300", "57P03":
			return fmt.Errorf("%s: %w: %v", operation, ErrUnavailable, err)
		}
		return fmt.Errorf("%s: %w", operation, err)
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %v", operation, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
