package bufpool

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsEmptyBuffer(t *testing.T) {
	buf := Get()
	defer Put(buf)

	assert.Zero(t, buf.Len())
	assert.GreaterOrEqual(t, buf.Cap(), 0)
}

func TestPutResets(t *testing.T) {
	p := NewPool(&Config{InitialSize: 16, MaxRetained: 1024})

	buf := p.Get()
	buf.WriteString("stale response")
	p.Put(buf)

	// sync.Pool may or may not hand the same buffer back; either way it
	// must be empty.
	again := p.Get()
	assert.Zero(t, again.Len())
}

func TestPutDropsOversizedBuffers(t *testing.T) {
	p := NewPool(&Config{InitialSize: 16, MaxRetained: 64})

	big := bytes.NewBufferString(strings.Repeat("x", 1024))
	p.Put(big)

	// Dropped buffers are not reset.
	assert.Equal(t, 1024, big.Len())
}

func TestPutNil(t *testing.T) {
	assert.NotPanics(t, func() { Put(nil) })
}

func TestNewPoolDefaults(t *testing.T) {
	p := NewPool(&Config{})
	assert.Equal(t, DefaultMaxRetained, p.maxRetained)

	p = NewPool(nil)
	assert.Equal(t, DefaultMaxRetained, p.maxRetained)
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf := Get()
				buf.WriteString("payload")
				assert.Equal(t, "payload", buf.String())
				Put(buf)
			}
		}(i)
	}
	wg.Wait()
}
