// Package resource enforces process-wide limits on the engine's background
// work: concurrent ingest workers, bytes of memory pinned by node index
// caches, and blob IO throughput.
package resource

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values mean unlimited, except for
// MaxWorkers which defaults to 1.
type Config struct {
	// MaxWorkers caps concurrent ingest and build jobs.
	MaxWorkers int64

	// MemoryLimitBytes caps memory pinned by caches and in-flight encodes.
	// When 0, usage is tracked but never blocks.
	MemoryLimitBytes int64

	// BlobIOBytesPerSec throttles reads and writes against the blob store.
	BlobIOBytesPerSec int64
}

// Controller hands out worker slots, memory reservations and IO budget.
// A nil *Controller is valid and enforces nothing.
type Controller struct {
	workers *semaphore.Weighted
	memSem  *semaphore.Weighted
	memUsed atomic.Int64
	ioRate  *rate.Limiter
}

// NewController creates a controller from cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}

	c := &Controller{
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
	}
	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}
	if cfg.BlobIOBytesPerSec > 0 {
		c.ioRate = rate.NewLimiter(rate.Limit(cfg.BlobIOBytesPerSec), int(cfg.BlobIOBytesPerSec))
	}
	return c
}

// AcquireWorker blocks until a worker slot is free or ctx is canceled.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// TryAcquireWorker grabs a worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	return c.workers.TryAcquire(1)
}

// ReleaseWorker returns a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireMemory reserves n bytes, blocking when a hard limit is configured
// and exhausted.
func (c *Controller) AcquireMemory(ctx context.Context, n int64) error {
	if c == nil || n <= 0 {
		return nil
	}
	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, n); err != nil {
			return err
		}
	}
	c.memUsed.Add(n)
	return nil
}

// ReleaseMemory returns n reserved bytes.
func (c *Controller) ReleaseMemory(n int64) {
	if c == nil || n <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(n)
	}
	c.memUsed.Add(-n)
}

// MemoryUsage reports currently reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// ChargeIO records n bytes of completed IO as debt against the throughput
// budget without blocking. Later acquires wait the debt out. This is for
// transfers whose size is only known after the fact, such as blob reads.
func (c *Controller) ChargeIO(n int) {
	if c == nil || c.ioRate == nil || n <= 0 {
		return
	}
	burst := c.ioRate.Burst()
	now := time.Now()
	for n > 0 {
		chunk := min(n, burst)
		c.ioRate.ReserveN(now, chunk)
		n -= chunk
	}
}

// AcquireIO waits until the throughput budget allows n more bytes.
func (c *Controller) AcquireIO(ctx context.Context, n int) error {
	if c == nil || c.ioRate == nil || n <= 0 {
		return nil
	}
	// rate.Limiter rejects bursts above its bucket size outright; split
	// oversized requests instead of failing them.
	burst := c.ioRate.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := c.ioRate.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
