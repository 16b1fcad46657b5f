package config

import (
	"encoding"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/excelsior/pkg/api"
	"github.com/marmos91/excelsior/pkg/backend"
	"github.com/marmos91/excelsior/pkg/server"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", nil) are replaced with defaults; explicit values are
// preserved. Booleans are left alone since false is a valid choice.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyServerDefaults(&cfg.Server)
	applyLimitsDefaults(&cfg.Limits)
	cfg.Database.ApplyDefaults()
	applyExternalDefaults(&cfg.External)
	applyProtectedDefaults(&cfg.Protected)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
	switch cfg.Level {
	case "TRACE":
		cfg.Level = "DEBUG"
	case "WARNING":
		cfg.Level = "WARN"
	}

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	cfg.Format = strings.ToLower(cfg.Format)
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "excelsior"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyServerDefaults(cfg *server.Config) {
	d := server.DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = d.Host
	}
	if cfg.Port == 0 {
		cfg.Port = d.Port
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = d.ShutdownTimeout
	}
	if cfg.SettleTimeout == 0 {
		cfg.SettleTimeout = d.SettleTimeout
	}
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = d.IdleTimeout
	}
}

func applyLimitsDefaults(cfg *api.Limits) {
	d := api.DefaultLimits()
	if cfg.BodyLimit == 0 {
		cfg.BodyLimit = d.BodyLimit
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = d.RequestTimeout
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = d.CompressionLevel
	}
}

func applyExternalDefaults(cfg *ExternalConfig) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
}

func applyProtectedDefaults(cfg *ProtectedConfig) {
	if cfg.Header == "" {
		cfg.Header = "X-Custom-Header"
	}
	if cfg.Value == "" {
		cfg.Value = "secret-value"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Seeding viper so environment variables work without a file
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{
		Telemetry: TelemetryConfig{
			Insecure:   true,
			SampleRate: 1.0,
		},
		Database: backend.Config{
			Migrate: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}

var (
	durationType      = reflect.TypeOf(time.Duration(0))
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// toMap converts a config struct into nested maps keyed by the mapstructure
// tag names. Durations and text marshalers become strings so the result
// reads well as YAML and round-trips through the decode hooks.
func toMap(v reflect.Value) map[string]any {
	out := make(map[string]any)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			continue
		}
		out[name] = toValue(v.Field(i))
	}
	return out
}

func toValue(v reflect.Value) any {
	switch {
	case v.Type() == durationType:
		return time.Duration(v.Int()).String()
	case v.Type().Implements(textMarshalerType):
		b, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return v.Interface()
		}
		return string(b)
	case v.Kind() == reflect.Struct:
		return toMap(v)
	default:
		return v.Interface()
	}
}

// flatten turns nested maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}
