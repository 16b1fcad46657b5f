package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/pkg/backend/migrations"
)

// RunMigrations applies all pending embedded migrations and returns the
// resulting schema version. golang-migrate takes a PostgreSQL advisory lock,
// so concurrent instances do not race.
func RunMigrations(ctx context.Context, url string) (uint, error) {
	m, closeFn, err := newMigrator(ctx, url)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	logger.Info("Applying database migrations")
	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No migrations to apply, schema is up to date")
	case err != nil:
		return 0, fmt.Errorf("migration failed: %w", err)
	}

	return schemaVersion(m)
}

// RollbackMigrations reverts the given number of migration steps.
func RollbackMigrations(ctx context.Context, url string, steps int) (uint, error) {
	if steps <= 0 {
		return 0, fmt.Errorf("rollback steps must be positive, got %d", steps)
	}

	m, closeFn, err := newMigrator(ctx, url)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	logger.Info("Rolling back database migrations", "steps", steps)
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("rollback failed: %w", err)
	}
	return schemaVersion(m)
}

func newMigrator(ctx context.Context, url string) (*migrate.Migrate, func(), error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	closeFn := func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Debug("Closing migrator", logger.Err(err))
		}
	}
	return m, closeFn, nil
}

func schemaVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	logger.Info("Database schema ready", "version", version)
	return version, nil
}
