package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/excelsior/internal/bytesize"
)

// cleanEnv blanks every variable Load looks at, so the host environment
// cannot leak into a test.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, env := range wellKnownEnv {
		t.Setenv(env, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_NoConfigFile(t *testing.T) {
	cleanEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "defaults", cfg.Source())
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "excelsior", cfg.Telemetry.ServiceName)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.True(t, cfg.Telemetry.Insecure)
	assert.Equal(t, 1.0, cfg.Telemetry.SampleRate)
	assert.Empty(t, cfg.Database.URL)
	assert.True(t, cfg.Database.Migrate)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 10*bytesize.MiB, cfg.Limits.BodyLimit)
	assert.Equal(t, 60*time.Second, cfg.Limits.RequestTimeout)
}

func TestLoad_MissingExplicitFileUsesDefaults(t *testing.T) {
	cleanEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "defaults", cfg.Source())
}

func TestLoad_File(t *testing.T) {
	cleanEnv(t)
	path := writeConfig(t, `
logging:
  level: debug
  format: json
server:
  port: 8080
  shutdown_timeout: 3s
limits:
  body_limit: 1MiB
  request_timeout: 5s
database:
  url: postgres://u:p@db:5432/app
  max_conns: 4
  migrate: false
telemetry:
  sample_rate: 0.25
  profiling:
    profile_types: [cpu, goroutines]
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Source())
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, bytesize.MiB, cfg.Limits.BodyLimit)
	assert.Equal(t, 5*time.Second, cfg.Limits.RequestTimeout)
	assert.Equal(t, "postgres://u:p@db:5432/app", cfg.Database.URL)
	assert.Equal(t, int32(4), cfg.Database.MaxConns)
	assert.False(t, cfg.Database.Migrate)
	assert.Equal(t, 0.25, cfg.Telemetry.SampleRate)
	assert.Equal(t, []string{"cpu", "goroutines"}, cfg.Telemetry.Profiling.ProfileTypes)
	assert.False(t, cfg.Metrics.Enabled)

	// Untouched sections keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5*time.Second, cfg.Database.ConnectTimeout)
}

func TestLoad_WellKnownEnvironment(t *testing.T) {
	cleanEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("EXTERNAL_SERVICE_URL", "http://upstream:9000")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4317")
	t.Setenv("OTEL_SERVICE_NAME", "excelsior-staging")
	t.Setenv("ENVIRONMENT", "staging")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PORT", "9999")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "http://upstream:9000", cfg.External.URL)
	assert.Equal(t, "http://collector:4317", cfg.Telemetry.Endpoint)
	assert.True(t, cfg.Telemetry.Enabled, "an OTLP endpoint enables tracing")
	assert.Equal(t, "excelsior-staging", cfg.Telemetry.ServiceName)
	assert.Equal(t, "staging", cfg.Telemetry.Environment)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoad_WellKnownEnvironment_LevelAliases(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"trace", "DEBUG"},
		{"TRACE", "DEBUG"},
		{"warning", "WARN"},
		{"Warning", "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cleanEnv(t)
			t.Setenv("LOG_LEVEL", tt.env)

			cfg, err := Load("")
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Logging.Level)
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	cleanEnv(t)
	path := writeConfig(t, `
server:
  port: 8080
logging:
  level: ERROR
`)

	t.Run("FileOverridesDefault", func(t *testing.T) {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("PrefixedEnvOverridesFile", func(t *testing.T) {
		t.Setenv("EXCELSIOR_SERVER_PORT", "7070")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
	})

	t.Run("WellKnownEnvOverridesFile", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "DEBUG", cfg.Logging.Level)
	})

	t.Run("PrefixedEnvBeatsWellKnown", func(t *testing.T) {
		t.Setenv("PORT", "1111")
		t.Setenv("EXCELSIOR_SERVER_PORT", "2222")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 2222, cfg.Server.Port)
	})

	t.Run("NestedPrefixedEnv", func(t *testing.T) {
		t.Setenv("EXCELSIOR_LIMITS_BODY_LIMIT", "2MiB")
		t.Setenv("EXCELSIOR_DATABASE_ACQUIRE_TIMEOUT", "250ms")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 2*bytesize.MiB, cfg.Limits.BodyLimit)
		assert.Equal(t, 250*time.Millisecond, cfg.Database.AcquireTimeout)
	})
}

func TestLoad_Invalid(t *testing.T) {
	cleanEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"LogLevel", "logging:\n  level: LOUD\n"},
		{"LogFormat", "logging:\n  format: xml\n"},
		{"SampleRate", "telemetry:\n  sample_rate: 2\n"},
		{"Port", "server:\n  port: 70000\n"},
		{"ExternalURL", "external:\n  url: not a url\n"},
		{"Duration", "server:\n  shutdown_timeout: soon\n"},
		{"ByteSize", "limits:\n  body_limit: lots\n"},
		{"CompressionLevel", "limits:\n  compression_level: 12\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	cleanEnv(t)
	_, err := Load(writeConfig(t, "server: [port\n"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cleanEnv(t)
	cfg := GetDefaultConfig()
	cfg.Server.Port = 4321
	cfg.Limits.BodyLimit = 512 * bytesize.KiB
	cfg.External.URL = "http://upstream:8000"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "shutdown_timeout: 10s")
	assert.Contains(t, string(data), "body_limit: 512KiB")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4321, loaded.Server.Port)
	assert.Equal(t, 512*bytesize.KiB, loaded.Limits.BodyLimit)
	assert.Equal(t, "http://upstream:8000", loaded.External.URL)
	assert.Equal(t, cfg.Server.ShutdownTimeout, loaded.Server.ShutdownTimeout)
}

func TestRunnerOptions(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Database.URL = "postgres://x"
	cfg.External.URL = "http://upstream"

	opts := cfg.RunnerOptions("1.2.3")

	assert.Equal(t, "1.2.3", opts.Version)
	assert.Equal(t, "1.2.3", opts.Telemetry.ServiceVersion)
	assert.Equal(t, "excelsior", opts.Telemetry.ServiceName)
	assert.Equal(t, "excelsior", opts.Profiling.ServiceName)
	assert.Equal(t, "postgres://x", opts.Backend.URL)
	assert.Equal(t, "http://upstream", opts.Routes.ExternalURL)
	assert.Equal(t, "X-Custom-Header", opts.Routes.ProtectedHeader)
	assert.Equal(t, 3000, opts.Server.Port)
	assert.True(t, opts.Metrics)
}
