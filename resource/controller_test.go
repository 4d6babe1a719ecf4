package resource

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerMemoryLimit(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(context.Background(), 60))
	require.NoError(t, c.AcquireMemory(context.Background(), 30))
	assert.Equal(t, int64(90), c.MemoryUsage())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.AcquireMemory(ctx, 20)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.ReleaseMemory(60)
	assert.Equal(t, int64(30), c.MemoryUsage())
	require.NoError(t, c.AcquireMemory(context.Background(), 20))
}

func TestControllerMemoryUnlimited(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(context.Background(), 1<<30))
	assert.Equal(t, int64(1<<30), c.MemoryUsage())
	c.ReleaseMemory(1 << 30)
	assert.Zero(t, c.MemoryUsage())
}

func TestControllerWorkerSlots(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})

	require.NoError(t, c.AcquireWorker(context.Background()))
	require.NoError(t, c.AcquireWorker(context.Background()))
	assert.False(t, c.TryAcquireWorker())

	c.ReleaseWorker()
	assert.True(t, c.TryAcquireWorker())
}

func TestControllerNilEnforcesNothing(t *testing.T) {
	var c *Controller

	assert.NoError(t, c.AcquireWorker(context.Background()))
	assert.True(t, c.TryAcquireWorker())
	assert.NoError(t, c.AcquireMemory(context.Background(), 1<<40))
	assert.NoError(t, c.AcquireIO(context.Background(), 1<<30))
	c.ChargeIO(1 << 30)
	c.ReleaseWorker()
	c.ReleaseMemory(1 << 40)
	assert.Zero(t, c.MemoryUsage())
}

func TestControllerIOSplitsOversizedRequests(t *testing.T) {
	c := NewController(Config{BlobIOBytesPerSec: 1 << 20})

	// Larger than the burst bucket; must be split, not rejected.
	err := c.AcquireIO(context.Background(), 1<<20+512)
	assert.NoError(t, err)
}

func TestControllerIOChargeCreatesDebt(t *testing.T) {
	c := NewController(Config{BlobIOBytesPerSec: 8})

	// Debt from already-completed IO must delay the next acquire.
	c.ChargeIO(64)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.AcquireIO(ctx, 1)
	assert.Error(t, err)
}

func TestThrottledWriter(t *testing.T) {
	c := NewController(Config{BlobIOBytesPerSec: 1 << 20})
	var buf bytes.Buffer

	w := NewThrottledWriter(context.Background(), c, &buf)
	n, err := w.Write([]byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "payload", buf.String())
}

func TestThrottledReaderCanceled(t *testing.T) {
	c := NewController(Config{BlobIOBytesPerSec: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewThrottledReader(ctx, c, bytes.NewReader(make([]byte, 64)))
	_, err := r.Read(make([]byte, 64))
	assert.Error(t, err)
}
