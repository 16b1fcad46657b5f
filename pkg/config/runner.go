package config

import (
	"github.com/marmos91/excelsior/internal/logger"
	"github.com/marmos91/excelsior/internal/telemetry"
	"github.com/marmos91/excelsior/pkg/api/state"
	"github.com/marmos91/excelsior/pkg/server"
)

// LoggerConfig returns the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: c.Logging.Output,
	}
}

// RunnerOptions maps the configuration onto the service runner.
func (c *Config) RunnerOptions(version string) server.Options {
	return server.Options{
		Server: c.Server,
		Limits: c.Limits,
		Telemetry: telemetry.Config{
			Enabled:        c.Telemetry.Enabled,
			ServiceName:    c.Telemetry.ServiceName,
			ServiceVersion: version,
			Environment:    c.Telemetry.Environment,
			Endpoint:       c.Telemetry.Endpoint,
			Insecure:       c.Telemetry.Insecure,
			SampleRate:     c.Telemetry.SampleRate,
		},
		Profiling: telemetry.ProfilingConfig{
			Enabled:        c.Telemetry.Profiling.Enabled,
			ServiceName:    c.Telemetry.ServiceName,
			ServiceVersion: version,
			Environment:    c.Telemetry.Environment,
			Endpoint:       c.Telemetry.Profiling.Endpoint,
			ProfileTypes:   c.Telemetry.Profiling.ProfileTypes,
		},
		Backend: c.Database,
		Routes: state.Routes{
			ProtectedHeader: c.Protected.Header,
			ProtectedValue:  c.Protected.Value,
			ExternalURL:     c.External.URL,
			ExternalTimeout: c.External.Timeout,
		},
		Version: version,
		Metrics: c.Metrics.Enabled,
	}
}
