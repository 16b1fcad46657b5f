// Package bufpool provides reusable byte buffers for response bodies.
//
// Handlers encode JSON into a buffer before writing it, and the timeout
// stage holds each handler's whole response in a buffer until it knows
// whether the response will be sent. Both draw from this pool.
//
// Buffers that grew beyond the pool's MaxRetained size are dropped on Put
// instead of pooled, so one large response does not pin its memory.
//
// # Usage
//
//	buf := bufpool.Get()
//	defer bufpool.Put(buf)
//	// ... use buf ...
package bufpool

import (
	"bytes"
	"sync"
)

const (
	// DefaultInitialSize covers most JSON envelopes (4KB)
	DefaultInitialSize = 4 << 10

	// DefaultMaxRetained is the largest buffer returned to the pool (1MB)
	DefaultMaxRetained = 1 << 20
)

// Config holds configuration for creating a custom buffer pool.
type Config struct {
	// InitialSize is the capacity of newly allocated buffers (default: 4KB)
	InitialSize int

	// MaxRetained is the largest capacity Put keeps (default: 1MB)
	MaxRetained int
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		InitialSize: DefaultInitialSize,
		MaxRetained: DefaultMaxRetained,
	}
}

// Pool is a set of reusable *bytes.Buffer values. It is safe for concurrent
// use.
type Pool struct {
	pool        sync.Pool
	maxRetained int
}

// NewPool creates a buffer pool. If cfg is nil, default values are used.
func NewPool(cfg *Config) *Pool {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.InitialSize > 0 {
			c.InitialSize = cfg.InitialSize
		}
		if cfg.MaxRetained > 0 {
			c.MaxRetained = cfg.MaxRetained
		}
	}

	p := &Pool{maxRetained: c.MaxRetained}
	p.pool.New = func() any {
		return bytes.NewBuffer(make([]byte, 0, c.InitialSize))
	}
	return p
}

// Get returns an empty buffer. The caller must Put it back when done.
func (p *Pool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put resets buf and returns it to the pool. The buffer must not be used
// afterwards. Oversized buffers are left to the garbage collector.
func (p *Pool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > p.maxRetained {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}

// globalPool is the package-level pool with default configuration.
var globalPool = NewPool(nil)

// Get returns an empty buffer from the global pool.
func Get() *bytes.Buffer {
	return globalPool.Get()
}

// Put returns a buffer to the global pool.
func Put(buf *bytes.Buffer) {
	globalPool.Put(buf)
}
