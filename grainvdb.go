package grainvdb

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/hupe1980/grainvdb/internal/audit"
	"github.com/hupe1980/grainvdb/internal/device"
	"github.com/hupe1980/grainvdb/internal/kernel"
	"github.com/hupe1980/grainvdb/internal/manifold"
	"github.com/hupe1980/grainvdb/internal/resolver"
	"github.com/hupe1980/grainvdb/internal/resource"
)

// Hit is one resolved row.
type Hit struct {
	// Index is the 0-based row offset in the store.
	Index uint64
	// Score is the raw dot product of the probe and the row.
	Score float32
}

// Result is the outcome of Resolve.
type Result struct {
	// Hits holds min(k, Len) rows in descending score order. Equal scores
	// have no defined order.
	Hits []Hit
	// Latency is the device dispatch time, including completion.
	Latency time.Duration
}

// LatencyMillis returns Latency in milliseconds.
func (r *Result) LatencyMillis() float32 {
	return float32(r.Latency.Seconds() * 1e3)
}

// Indices returns the hit indices in result order, ready for Audit.
func (r *Result) Indices() []uint64 {
	out := make([]uint64, len(r.Hits))
	for i, h := range r.Hits {
		out[i] = h.Index
	}
	return out
}

// Stats is a snapshot of a Context's resource usage.
type Stats struct {
	Rank        int
	Entries     int
	DeviceBytes int64
	DeviceLimit int64
	Dispatches  int64
	Workgroups  int64

	// WorkgroupSize is the number of rows per workgroup of the fold kernel.
	WorkgroupSize int
	Device        DeviceInfo
}

// Context binds a compute device, a compiled fold kernel and one vector
// store of fixed rank. It is safe for concurrent use: resolves and audits
// share the store, ingestion waits for them to finish, and at most one
// fold is dispatched at a time.
type Context struct {
	rank     int
	dev      *device.Device
	pipeline *kernel.Pipeline
	res      *resource.Controller
	store    *manifold.Store
	resolver *resolver.Resolver
	auditor  *audit.Auditor

	logger  *Logger
	metrics MetricsCollector
	closed  atomic.Bool
}

// Open creates a Context for vectors of the given rank, compiling the kernel
// artifact at kernelPath. Creation either fully succeeds or releases
// everything it acquired.
//
// Errors: *ErrInvalidRank, ErrDeviceUnavailable, ErrKernelNotFound,
// *ErrKernelIncompatible.
func Open(ctx context.Context, rank int, kernelPath string, optFns ...Option) (*Context, error) {
	o := applyOptions(optFns)

	c, err := open(ctx, rank, kernelPath, o)
	o.logger.LogOpen(ctx, rank, kernelPath, err)
	return c, err
}

func open(ctx context.Context, rank int, kernelPath string, o options) (*Context, error) {
	if rank <= 0 {
		return nil, &ErrInvalidRank{Rank: rank}
	}

	res := resource.NewController(resource.Config{
		DeviceMemoryBytes:     o.deviceMemory,
		ArtifactIOBytesPerSec: o.artifactIOLimit,
	})

	dev, err := device.Open(device.Config{Backend: o.backend, Workers: o.workers})
	if err != nil {
		return nil, translateError(err)
	}

	artifact, err := kernel.Load(ctx, o.artifactStore, kernelPath, func(r io.Reader) io.Reader {
		return res.Reader(ctx, r)
	})
	if err != nil {
		_ = dev.Close()
		return nil, translateError(err)
	}

	pipeline, err := kernel.Compile(artifact, dev.Info().ISA)
	if err != nil {
		_ = dev.Close()
		return nil, translateError(err)
	}

	store := manifold.New(manifold.Config{
		Rank:      rank,
		Normalize: o.normalize,
		Resources: res,
	})

	return &Context{
		rank:     rank,
		dev:      dev,
		pipeline: pipeline,
		res:      res,
		store:    store,
		resolver: resolver.New(store, pipeline, dev.Queue(), res),
		auditor:  audit.New(o.auditVariant, o.auditThreshold),
		logger:   o.logger.WithRank(rank).WithDevice(dev.Info()),
		metrics:  o.metricsCollector,
	}, nil
}

// Rank returns the vector dimensionality.
func (c *Context) Rank() int { return c.rank }

// Len returns the number of stored vectors.
func (c *Context) Len() int { return c.store.Len() }

// Device describes the compute device.
func (c *Context) Device() DeviceInfo { return c.dev.Info() }

// Stats returns a snapshot of resource usage.
func (c *Context) Stats() Stats {
	dispatches, groups := c.dev.Queue().Stats()
	return Stats{
		Rank:        c.rank,
		Entries:     c.store.Len(),
		DeviceBytes: c.res.DeviceUsage(),
		DeviceLimit: c.res.DeviceLimit(),
		Dispatches:  dispatches,
		Workgroups:  groups,

		WorkgroupSize: c.pipeline.WorkgroupSize(),
		Device:        c.dev.Info(),
	}
}

// Ingest replaces the store contents with count vectors read row-major from
// vectors, which must hold exactly count*Rank() values. count == 0 empties
// the store. On failure the previous contents are kept.
func (c *Context) Ingest(ctx context.Context, vectors []float32, count int) error {
	if c.closed.Load() {
		return ErrClosed
	}

	start := time.Now()
	err := translateError(c.store.Ingest(vectors, count))
	duration := time.Since(start)

	c.metrics.RecordIngest(count, duration, err)
	c.logger.LogIngest(ctx, count, duration, err)
	return err
}

// Resolve returns the min(k, Len()) stored vectors with the largest dot
// product against probe. Resolving against an empty store returns an empty
// result and a nil error.
//
// A probe holding NaN or an infinity, or without WithNormalize a magnitude
// beyond half.MaxValue, fails with *ErrInvalidProbe.
//
// ctx bounds the wait for the Context's dispatch slot. A dispatched fold is
// not interrupted.
func (c *Context) Resolve(ctx context.Context, probe []float32, k int, optFns ...ResolveOption) (*Result, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	var ro resolveOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&ro)
		}
	}

	start := time.Now()
	out, err := c.resolver.Resolve(ctx, probe, k, resolver.Options{Filter: ro.filter})
	err = translateError(err)

	c.metrics.RecordResolve(k, out.Latency, time.Since(start), err)
	c.logger.LogResolve(ctx, k, len(out.Items), out.Latency, err)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Hits:    make([]Hit, len(out.Items)),
		Latency: out.Latency,
	}
	for i, it := range out.Items {
		res.Hits[i] = Hit{Index: it.Index, Score: it.Score}
	}
	return res, nil
}

// VectorAt decodes the stored vector at index into dst, growing dst if its
// capacity is below Rank(), and returns it.
func (c *Context) VectorAt(index uint64, dst []float32) ([]float32, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	v, err := c.store.VectorAt(index, dst)
	return v, translateError(err)
}

// Audit scores the mutual similarity of the vectors at indices. With the
// default AuditDensity variant the score is the fraction of pairs whose dot
// product exceeds the audit threshold. Fewer than two indices score 1.
//
// The score is a relative signal: compare it only between result sets
// ingested under the same normalization convention.
func (c *Context) Audit(ctx context.Context, indices []uint64) (float32, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	start := time.Now()
	score, err := c.auditor.Audit(c.store, indices)
	err = translateError(err)

	c.metrics.RecordAudit(len(indices), time.Since(start), err)
	c.logger.LogAudit(ctx, len(indices), score, err)
	return score, err
}

// GluingEnergy measures how poorly neighbourhood a aligns with neighbourhood
// b: 1 minus the mean, over rows of a, of the best dot product with any row
// of b. Values near 0 mean a consistent context; large values mean the two
// neighbourhoods describe different things.
func (c *Context) GluingEnergy(ctx context.Context, a, b []uint64) (float32, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	start := time.Now()
	energy, err := c.gluingEnergy(a, b)

	c.metrics.RecordGluingEnergy(len(a)+len(b), time.Since(start), err)
	c.logger.LogGluingEnergy(ctx, len(a), len(b), energy, err)
	return energy, err
}

func (c *Context) gluingEnergy(a, b []uint64) (float32, error) {
	va, err := audit.Gather(c.store, a)
	if err != nil {
		return 0, translateError(err)
	}
	vb, err := audit.Gather(c.store, b)
	if err != nil {
		return 0, translateError(err)
	}
	return audit.GluingEnergy(va, vb), nil
}

// Close releases the store's device memory, the compiled pipeline and the
// device queue. It waits for in-flight resolves and audits. Calls after
// Close, including a second Close, return ErrClosed.
func (c *Context) Close() error {
	if c.closed.Swap(true) {
		return ErrClosed
	}

	err := errors.Join(
		ignoreReleased(c.store.Release()),
		c.dev.Close(),
	)
	c.logger.LogClose(context.Background(), err)
	return err
}

func ignoreReleased(err error) error {
	if errors.Is(err, manifold.ErrReleased) {
		return nil
	}
	return err
}
