package telemetry

import "time"

// Config holds OpenTelemetry configuration
type Config struct {
	// Enabled indicates whether spans are exported. When false the handle
	// still becomes Active but hands out a no-op tracer.
	Enabled bool

	// ServiceName is reported as service.name on every span
	ServiceName string

	// ServiceVersion is reported as service.version
	ServiceVersion string

	// Environment is reported as deployment.environment
	Environment string

	// Endpoint is the OTLP gRPC collector, either "host:port" or a URL such
	// as "http://localhost:4317".
	Endpoint string

	// Insecure disables TLS on the exporter connection
	Insecure bool

	// SampleRate is the trace sampling rate (0.0 to 1.0)
	SampleRate float64

	// MaxQueueSize bounds the number of spans buffered for export.
	// Spans beyond it are dropped.
	MaxQueueSize int

	// BatchTimeout is the longest a span waits in the queue before export
	BatchTimeout time.Duration

	// ShutdownTimeout bounds the final flush
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		Enabled:         false,
		ServiceName:     "excelsior",
		ServiceVersion:  "dev",
		Environment:     "development",
		Endpoint:        "localhost:4317",
		Insecure:        true,
		SampleRate:      1.0,
		MaxQueueSize:    2048,
		BatchTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.ServiceName == "" {
		c.ServiceName = d.ServiceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = d.ServiceVersion
	}
	if c.Environment == "" {
		c.Environment = d.Environment
	}
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = d.BatchTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}
