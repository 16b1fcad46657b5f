package commands

import (
	"fmt"

	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// loadConfig loads configuration and initializes the logger from it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
