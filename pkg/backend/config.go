package backend

import "time"

// Config holds the live backend settings. An empty URL selects the stand-in.
type Config struct {
	// URL is a PostgreSQL connection string (DATABASE_URL)
	URL string `mapstructure:"url"`

	// Connection pool
	MaxConns          int32         `mapstructure:"max_conns" validate:"gte=0"` // Default: 10
	MinConns          int32         `mapstructure:"min_conns" validate:"gte=0"` // Default: 0
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`          // Default: 1h
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`         // Default: 30m
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`        // Default: 1m

	// Timeouts
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // Default: 5s
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"` // Default: 10s
	QueryTimeout   time.Duration `mapstructure:"query_timeout"`   // Default: 30s

	// Migrate applies embedded schema migrations after connecting
	Migrate bool `mapstructure:"migrate"`
}

// ApplyDefaults sets default values for unspecified fields
func (c *Config) ApplyDefaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.HealthCheckPeriod == 0 {
		c.HealthCheckPeriod = time.Minute
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.AcquireTimeout == 0 {
		c.AcquireTimeout = 10 * time.Second
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 30 * time.Second
	}
}
