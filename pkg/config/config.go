// Package config loads the excelsior configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (EXCELSIOR_<SECTION>_<KEY>, plus the well-known
//     DATABASE_URL, EXTERNAL_SERVICE_URL, OTEL_EXPORTER_OTLP_ENDPOINT,
//     OTEL_SERVICE_NAME, ENVIRONMENT, LOG_LEVEL and PORT)
//  2. Configuration file (YAML)
//  3. Default values
//
// A configuration file is optional; the service runs on environment
// variables and defaults alone.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/excelsior/internal/bytesize"
	"github.com/marmos91/excelsior/pkg/api"
	"github.com/marmos91/excelsior/pkg/backend"
	"github.com/marmos91/excelsior/pkg/server"
)

// EnvPrefix prefixes every structured environment override.
const EnvPrefix = "EXCELSIOR"

// Config represents the excelsior configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing and Pyroscope profiling
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Server configures the listener and graceful shutdown
	Server server.Config `mapstructure:"server" yaml:"server"`

	// Limits configures the request pipeline (body size, timeout, compression)
	Limits api.Limits `mapstructure:"limits" yaml:"limits"`

	// Database configures the live backend. An empty URL selects the stand-in.
	Database backend.Config `mapstructure:"database" yaml:"database"`

	// External configures the outbound call made by /external/ping
	External ExternalConfig `mapstructure:"external" yaml:"external"`

	// Protected configures the header gate on /protected-enter
	Protected ProtectedConfig `mapstructure:"protected" yaml:"protected"`

	// Metrics controls the /metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	source string
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// Setting OTEL_EXPORTER_OTLP_ENDPOINT enables tracing.
type TelemetryConfig struct {
	// Enabled controls whether spans are exported
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ServiceName is reported as service.name (OTEL_SERVICE_NAME)
	// Default: "excelsior"
	ServiceName string `mapstructure:"service_name" validate:"required" yaml:"service_name"`

	// Environment is reported as deployment.environment (ENVIRONMENT)
	// Default: "development"
	Environment string `mapstructure:"environment" yaml:"environment"`

	// Endpoint is the OTLP gRPC collector, host:port or URL
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS to the collector
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// ExternalConfig configures the external service called by /external/ping.
type ExternalConfig struct {
	// URL is the base URL (EXTERNAL_SERVICE_URL). Empty disables the route.
	URL string `mapstructure:"url" validate:"omitempty,url" yaml:"url"`

	// Timeout bounds the outbound call
	// Default: 10s
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0" yaml:"timeout"`
}

// ProtectedConfig configures the /protected-enter header gate.
type ProtectedConfig struct {
	Header string `mapstructure:"header" validate:"required" yaml:"header"`
	Value  string `mapstructure:"value" validate:"required" yaml:"value"`
}

// MetricsConfig controls the Prometheus endpoint on the service listener.
type MetricsConfig struct {
	// Enabled exposes GET /metrics
	// Default: true
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Source returns the configuration file that was read, or "defaults".
func (c *Config) Source() string {
	if c.source == "" {
		return "defaults"
	}
	return c.source
}

// wellKnownEnv maps conventional environment variables onto config keys.
// They are checked after the EXCELSIOR_ form of the same key.
var wellKnownEnv = map[string]string{
	"database.url":           "DATABASE_URL",
	"external.url":           "EXTERNAL_SERVICE_URL",
	"telemetry.endpoint":     "OTEL_EXPORTER_OTLP_ENDPOINT",
	"telemetry.service_name": "OTEL_SERVICE_NAME",
	"telemetry.environment":  "ENVIRONMENT",
	"logging.level":          "LOG_LEVEL",
	"server.port":            "PORT",
}

// Load loads configuration from file, environment, and defaults.
//
// configPath selects the file; an empty path looks for config.yaml in the
// default directory. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if found {
		cfg.source = v.ConfigFileUsed()
	}
	return cfg, nil
}

// decode unmarshals, defaults and validates whatever v currently holds.
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// An OTLP endpoint in the environment is an explicit request for tracing.
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Telemetry.Enabled = true
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of every section.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

// SaveConfig saves the configuration to path in YAML, with durations written
// in their human-readable form.
func SaveConfig(cfg *Config, path string) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600: the file may hold a database URL with credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Map returns cfg as nested maps keyed like the configuration file, with
// durations and byte sizes in their human-readable form.
func Map(cfg *Config) map[string]any {
	return toMap(reflect.ValueOf(*cfg))
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(Map(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// setupViper configures viper with environment variables, defaults and
// config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: EXCELSIOR_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range wellKnownEnv {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	// Every key needs a default so AutomaticEnv can see it without a file.
	defaults := GetDefaultConfig()
	for key, value := range flatten("", Map(defaults)) {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize, so
// config files can use sizes like "10MiB", "512KB", or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s", "5m", "1h" to
// time.Duration. Raw integers are nanoseconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/excelsior, ~/.config/excelsior, or
// the current directory when neither can be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "excelsior")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "excelsior")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
