package config

import (
	"errors"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/marmos91/excelsior/internal/logger"
)

// ErrNoConfigFile is returned by Watch when there is no file to watch.
var ErrNoConfigFile = errors.New("no configuration file to watch")

// Watch re-reads the configuration file whenever it is written and passes
// the result to onChange. Invalid edits are logged and skipped. Watching
// lasts for the rest of the process.
func Watch(configPath string, onChange func(*Config)) error {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoConfigFile
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring invalid configuration change",
				logger.KeyPath, e.Name, logger.Err(err))
			return
		}
		cfg.source = v.ConfigFileUsed()
		onChange(cfg)
	})
	v.WatchConfig()

	logger.Debug("Watching configuration file", logger.KeyPath, v.ConfigFileUsed())
	return nil
}

// ApplyLogLevel is a Watch callback that applies logging.level changes.
func ApplyLogLevel(cfg *Config) {
	if cfg.Logging.Level == logger.GetLevel().String() {
		return
	}
	logger.SetLevel(cfg.Logging.Level)
	logger.Info("Log level changed", "level", cfg.Logging.Level)
}
