// Package resolver scores a probe against every stored row on the device and
// selects the k best rows with a bounded min-heap.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/grainvdb/half"
	"github.com/hupe1980/grainvdb/internal/device"
	"github.com/hupe1980/grainvdb/internal/kernel"
	"github.com/hupe1980/grainvdb/internal/manifold"
	"github.com/hupe1980/grainvdb/internal/queue"
	"github.com/hupe1980/grainvdb/internal/resource"
)

// ErrInvalidK is returned for k <= 0.
var ErrInvalidK = errors.New("resolver: k must be positive")

// ProbeError reports a probe component that cannot be scored: NaN, an
// infinity, or a magnitude beyond the half-precision range when the probe
// is not normalized.
type ProbeError struct {
	Index int
	Value float32
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("resolver: probe component %d is not representable: %v", e.Index, e.Value)
}

// Options tune a single resolve.
type Options struct {
	// Filter, if set, restricts selection to the listed row indices.
	Filter *roaring.Bitmap
}

// Result is the outcome of one resolve.
type Result struct {
	// Items are sorted by descending score.
	Items []queue.Item
	// Latency covers the device dispatch and its completion.
	Latency time.Duration
}

// Resolver runs the fold pipeline against a store.
type Resolver struct {
	store    *manifold.Store
	pipeline *kernel.Pipeline
	queue    *device.Queue
	res      *resource.Controller

	scratch sync.Pool // *state
}

type state struct {
	probe  []float32
	hprobe []half.Float
	scores []float32
	topk   *queue.TopK
}

// New binds a resolver to its store, compiled pipeline and device queue.
// res provides the dispatch slot; nil allows overlapping dispatches.
func New(store *manifold.Store, pipeline *kernel.Pipeline, q *device.Queue, res *resource.Controller) *Resolver {
	return &Resolver{
		store:    store,
		pipeline: pipeline,
		queue:    q,
		res:      res,
	}
}

func (r *Resolver) getState(rank int) *state {
	st, ok := r.scratch.Get().(*state)
	if !ok {
		st = &state{
			probe:  make([]float32, rank),
			hprobe: make([]half.Float, rank),
			topk:   queue.NewTopK(1),
		}
	}
	return st
}

// Resolve returns the min(k, Len) rows with the largest dot product against
// probe. An empty store yields an empty result and zero latency.
//
// ctx bounds the wait for the dispatch slot only. Once dispatched, the fold
// runs to completion.
func (r *Resolver) Resolve(ctx context.Context, probe []float32, k int, opts Options) (Result, error) {
	rank := r.store.Rank()
	if len(probe) != rank {
		return Result{}, &manifold.ShapeError{Got: len(probe), Want: rank}
	}
	if k <= 0 {
		return Result{}, ErrInvalidK
	}
	if err := checkProbe(probe, !r.store.Normalizes()); err != nil {
		return Result{}, err
	}

	if err := r.res.AcquireDispatch(ctx); err != nil {
		return Result{}, err
	}
	defer r.res.ReleaseDispatch()

	st := r.getState(rank)
	defer r.scratch.Put(st)

	if r.store.Normalizes() {
		manifold.Normalize(st.probe, probe)
	} else {
		copy(st.probe, probe)
	}
	half.EncodeSlice(st.hprobe, st.probe)

	var res Result
	err := r.store.Read(func(v manifold.View) error {
		n := v.Len()
		if n == 0 {
			return nil
		}

		if cap(st.scores) < n {
			st.scores = make([]float32, n)
		}
		scores := st.scores[:n]

		start := time.Now()
		if err := r.pipeline.Fold(context.WithoutCancel(ctx), r.queue, v.Data(), rank, st.hprobe, scores); err != nil {
			return err
		}
		res.Latency = time.Since(start)

		res.Items = selectTopK(st.topk, scores, min(k, n), opts.Filter)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// checkProbe rejects components that would turn scores into NaN or Inf.
// bounded additionally rejects values that overflow binary16.
func checkProbe(probe []float32, bounded bool) error {
	for i, x := range probe {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) || (bounded && math.Abs(f) > half.MaxValue) {
			return &ProbeError{Index: i, Value: x}
		}
	}
	return nil
}

func selectTopK(h *queue.TopK, scores []float32, k int, filter *roaring.Bitmap) []queue.Item {
	h.Reset(k)

	if filter == nil {
		for i, s := range scores {
			h.Offer(uint64(i), s)
		}
	} else {
		it := filter.Iterator()
		for it.HasNext() {
			i := it.Next()
			if int(i) >= len(scores) {
				break
			}
			h.Offer(uint64(i), scores[i])
		}
	}

	return h.Drain(make([]queue.Item, 0, h.Len()))
}
