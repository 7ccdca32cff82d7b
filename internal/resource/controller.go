package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrDeviceMemoryExhausted is returned when a reservation exceeds the budget.
var ErrDeviceMemoryExhausted = errors.New("device memory budget exhausted")

// Config holds resource limits. Zero values mean unlimited.
type Config struct {
	// DeviceMemoryBytes caps the bytes reserved for device buffers.
	DeviceMemoryBytes int64

	// ArtifactIOBytesPerSec throttles artifact reads.
	ArtifactIOBytesPerSec int64
}

// Controller tracks and limits resource usage for one context.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	dispatch *semaphore.Weighted

	io *rate.Limiter // nil if unlimited
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	c := &Controller{
		cfg:      cfg,
		dispatch: semaphore.NewWeighted(1),
	}
	if cfg.DeviceMemoryBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.DeviceMemoryBytes)
	}
	if cfg.ArtifactIOBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.ArtifactIOBytesPerSec), int(cfg.ArtifactIOBytesPerSec))
	}
	return c
}

// ReserveDevice reserves bytes of device memory without blocking.
func (c *Controller) ReserveDevice(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return fmt.Errorf("%w: requested %d bytes, %d of %d in use",
			ErrDeviceMemoryExhausted, bytes, c.memUsed.Load(), c.cfg.DeviceMemoryBytes)
	}
	c.memUsed.Add(bytes)
	return nil
}

// ReleaseDevice returns a reservation made by ReserveDevice.
func (c *Controller) ReleaseDevice(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// DeviceUsage returns the reserved device memory in bytes.
func (c *Controller) DeviceUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// DeviceLimit returns the device memory budget, 0 if unlimited.
func (c *Controller) DeviceLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.DeviceMemoryBytes
}

// AcquireDispatch waits for the dispatch slot or ctx cancellation.
func (c *Controller) AcquireDispatch(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.dispatch.Acquire(ctx, 1)
}

// TryAcquireDispatch takes the dispatch slot if it is free.
func (c *Controller) TryAcquireDispatch() bool {
	if c == nil {
		return true
	}
	return c.dispatch.TryAcquire(1)
}

// ReleaseDispatch frees the dispatch slot.
func (c *Controller) ReleaseDispatch() {
	if c == nil {
		return
	}
	c.dispatch.Release(1)
}

// WaitIO blocks until n artifact bytes may be read.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil || n <= 0 {
		return nil
	}
	return c.io.WaitN(ctx, n)
}

// Reader wraps r so that reads are throttled by the artifact IO limit.
// Without a limit r is returned unchanged.
func (c *Controller) Reader(ctx context.Context, r io.Reader) io.Reader {
	if c == nil || c.io == nil {
		return r
	}
	return &throttledReader{ctx: ctx, r: r, c: c}
}

type throttledReader struct {
	ctx context.Context
	r   io.Reader
	c   *Controller
}

func (t *throttledReader) Read(p []byte) (int, error) {
	// WaitN rejects requests larger than the bucket.
	if burst := t.c.io.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.c.WaitIO(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
