package server

import (
	"net"
	"strconv"
	"time"
)

// Config holds the listener and shutdown settings.
type Config struct {
	// Host is the interface to bind. Default: 0.0.0.0
	Host string `mapstructure:"host"`

	// Port is the TCP port to bind. 0 picks a free port.
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`

	// ShutdownTimeout is the grace period in-flight requests get to finish
	// once draining starts. Default: 10s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`

	// SettleTimeout bounds the wait for handlers to return after the grace
	// period has cancelled them. Default: 1s
	SettleTimeout time.Duration `mapstructure:"settle_timeout" validate:"gte=0"`

	// ReadHeaderTimeout limits how long a client may take to send headers.
	// Default: 10s
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gte=0"`

	// IdleTimeout closes keep-alive connections idle for longer. Default: 120s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" validate:"gte=0"`
}

// DefaultConfig returns the listener defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              3000,
		ShutdownTimeout:   10 * time.Second,
		SettleTimeout:     time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// applyDefaults fills zero durations and the host. Port is left alone so
// that 0 keeps meaning "any free port".
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.SettleTimeout == 0 {
		c.SettleTimeout = d.SettleTimeout
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = d.IdleTimeout
	}
}

// Address returns host:port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
