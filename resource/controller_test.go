package resource

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(context.Background(), 50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(context.Background(), 40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireMemory(ctx, 20), context.DeadlineExceeded)

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(context.Background(), 20))
	assert.Equal(t, int64(60), c.MemoryUsage())

	assert.ErrorIs(t, c.AcquireMemory(context.Background(), 101), ErrMemoryLimitExceeded)
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(context.Background(), 1000))
	assert.True(t, c.TryAcquireMemory(1<<40))

	c.ReleaseMemory(1 << 40)
	assert.Equal(t, int64(1000), c.MemoryUsage())
}

func TestController_Background(t *testing.T) {
	c := NewController(Config{MaxBackgroundWorkers: 2})
	assert.Equal(t, int64(2), c.Config().MaxBackgroundWorkers)

	require.NoError(t, c.AcquireBackground(context.Background()))
	require.NoError(t, c.AcquireBackground(context.Background()))
	assert.False(t, c.TryAcquireBackground())

	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())

	assert.Equal(t, int64(DefaultBackgroundWorkers), NewController(Config{}).Config().MaxBackgroundWorkers)
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(context.Background(), 10))
	assert.True(t, c.TryAcquireMemory(10))
	c.ReleaseMemory(10)
	assert.Zero(t, c.MemoryUsage())

	require.NoError(t, c.AcquireBackground(context.Background()))
	assert.True(t, c.TryAcquireBackground())
	c.ReleaseBackground()

	require.NoError(t, c.AcquireIO(context.Background(), 1<<20))
}

func TestController_IOLargerThanBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// A single wait above the burst would be rejected by the limiter.
	require.NoError(t, c.AcquireIO(context.Background(), 1<<20+1))
}

func TestRateLimitedIO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
	ctx := context.Background()

	var buf bytes.Buffer
	w := NewRateLimitedWriter(ctx, &buf, c)
	_, err := io.Copy(w, strings.NewReader("snapshot payload"))
	require.NoError(t, err)
	assert.Equal(t, int64(16), w.Written())

	r := NewRateLimitedReader(ctx, &buf, c)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "snapshot payload", string(got))
	assert.Equal(t, int64(16), r.BytesRead())
}

func TestRateLimitedWriter_CanceledContext(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewRateLimitedWriter(ctx, io.Discard, c)
	_, err := w.Write([]byte("xx"))
	assert.Error(t, err)
}
