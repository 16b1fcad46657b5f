package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/pkg/config"
	"github.com/marmos91/excelsior/pkg/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the excelsior server",
	Long: `Start the excelsior server in the foreground.

The server runs until it receives SIGINT or SIGTERM, then stops accepting
connections and gives in-flight requests the configured grace period
(server.shutdown_timeout) to finish.

Examples:
  # Start with environment configuration only
  DATABASE_URL=postgres://localhost/app PORT=3000 excelsior start

  # Start with a config file
  excelsior start --config /etc/excelsior/config.yaml

  # Override a config value
  EXCELSIOR_LOGGING_LEVEL=DEBUG excelsior start`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("Configuration loaded", "source", cfg.Source(),
		"level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if cfg.Telemetry.Enabled {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint,
			"sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if cfg.Telemetry.Profiling.Enabled {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint,
			"profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	}

	if cfg.Source() != "defaults" {
		if err := config.Watch(cfg.Source(), config.ApplyLogLevel); err != nil && !errors.Is(err, config.ErrNoConfigFile) {
			logger.Warn("Configuration changes will not be applied live", logger.Err(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg.RunnerOptions(Version)).Run(ctx)
}
