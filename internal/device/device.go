package device

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
)

var (
	// ErrUnavailable is returned when the requested backend cannot be opened.
	ErrUnavailable = errors.New("device: backend not available")
	// ErrClosed is returned for work submitted to a closed device.
	ErrClosed = errors.New("device: closed")
)

// Config selects and sizes a device.
type Config struct {
	// Backend to open. BackendAuto resolves to the CPU backend.
	Backend Backend
	// Workers is the queue width. Zero means GOMAXPROCS.
	Workers int
}

// Info describes an opened device.
type Info struct {
	Backend Backend
	ISA     ISA
	Workers int
}

func (i Info) String() string {
	return fmt.Sprintf("%s/%s x%d", i.Backend, i.ISA, i.Workers)
}

// Device is an opened compute device. It exclusively owns its queue.
type Device struct {
	info   Info
	queue  *Queue
	closed atomic.Bool
}

// Open opens the device described by cfg.
func Open(cfg Config) (*Device, error) {
	if !cfg.Backend.Available() {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, cfg.Backend)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Device{
		info: Info{
			Backend: BackendCPU,
			ISA:     DetectISA(),
			Workers: workers,
		},
		queue: newQueue(workers),
	}, nil
}

// Info returns the device description.
func (d *Device) Info() Info { return d.info }

// Queue returns the device's work queue.
func (d *Device) Queue() *Queue { return d.queue }

// Close drains and stops the queue. It is idempotent.
func (d *Device) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.queue.close()
	return nil
}
