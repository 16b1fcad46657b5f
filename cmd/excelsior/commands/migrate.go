package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/pkg/backend"
)

var migrateDown int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply the embedded schema migrations to the database named by
DATABASE_URL (or database.url in the config file).

The server also applies pending migrations at startup unless
database.migrate is false; this command is for running them ahead of a
deploy or for rolling back.

Examples:
  # Apply all pending migrations
  DATABASE_URL=postgres://localhost/app excelsior migrate

  # Roll back the most recent migration
  excelsior migrate --down 1`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migrateDown, "down", 0, "Roll back this many migrations instead of applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return errors.New("no database configured: set DATABASE_URL or database.url")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout+cfg.Database.QueryTimeout)
	defer cancel()

	var version uint
	if migrateDown > 0 {
		version, err = backend.RollbackMigrations(ctx, cfg.Database.URL, migrateDown)
	} else {
		version, err = backend.RunMigrations(ctx, cfg.Database.URL)
	}
	if err != nil {
		return err
	}

	logger.Debug("Migration command finished", "version", version)
	fmt.Fprintf(cmd.OutOrStdout(), "Database schema at version %d\n", version)
	return nil
}
