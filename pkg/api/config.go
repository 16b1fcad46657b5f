package api

import (
	"time"

	"github.com/marmos91/excelsior/internal/bytesize"
)

// Limits configures the per-request pipeline stages.
type Limits struct {
	// BodyLimit is the largest accepted request body.
	// Default: 10MiB
	BodyLimit bytesize.ByteSize `mapstructure:"body_limit" validate:"gte=0"`

	// RequestTimeout bounds handler execution; slower requests get 408.
	// Default: 60s
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`

	// CompressionLevel is shared by the zstd, gzip and deflate encoders.
	// Default: 5
	CompressionLevel int `mapstructure:"compression_level" validate:"gte=0,lte=9"`
}

// DefaultLimits returns the limits applied when none are configured.
func DefaultLimits() Limits {
	return Limits{
		BodyLimit:        10 * bytesize.MiB,
		RequestTimeout:   60 * time.Second,
		CompressionLevel: 5,
	}
}

// applyDefaults fills in zero values with the defaults.
func (l *Limits) applyDefaults() {
	d := DefaultLimits()
	if l.BodyLimit == 0 {
		l.BodyLimit = d.BodyLimit
	}
	if l.RequestTimeout <= 0 {
		l.RequestTimeout = d.RequestTimeout
	}
	if l.CompressionLevel <= 0 {
		l.CompressionLevel = d.CompressionLevel
	}
}
