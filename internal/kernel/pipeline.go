package kernel

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/grainvdb/half"
	"github.com/hupe1980/grainvdb/internal/device"
	"github.com/viterin/vek/vek32"
)

// Pipeline is a compiled fold kernel bound to one ISA tier.
type Pipeline struct {
	artifact  Artifact
	isa       device.ISA
	groupSize int
	dot       func(a, b []float32) float32

	rows sync.Pool // *[]float32 row scratch
}

// Compile validates a and selects the dot-product implementation for isa.
func Compile(a *Artifact, isa device.ISA) (*Pipeline, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		artifact:  *a,
		isa:       isa,
		groupSize: a.WorkgroupSize,
		dot:       vek32.Dot,
	}
	if p.groupSize == 0 {
		p.groupSize = DefaultWorkgroupSize
	}
	if isa == device.Generic {
		p.dot = dotGeneric
	}
	return p, nil
}

// Artifact returns a copy of the manifest the pipeline was compiled from.
func (p *Pipeline) Artifact() Artifact { return p.artifact }

// ISA returns the tier the pipeline was compiled for.
func (p *Pipeline) ISA() device.ISA { return p.isa }

// WorkgroupSize returns the number of rows per workgroup.
func (p *Pipeline) WorkgroupSize() int { return p.groupSize }

// Fold writes dot(probe, row i) into scores[i] for every row of data.
// data holds len(scores) rows of rank half-precision components. Products
// are accumulated in float32. Fold blocks until every workgroup has run.
func (p *Pipeline) Fold(ctx context.Context, q *device.Queue, data []half.Float, rank int, probe []half.Float, scores []float32) error {
	n := len(scores)
	if rank <= 0 || len(probe) != rank {
		return fmt.Errorf("kernel: probe length %d does not match rank %d", len(probe), rank)
	}
	if len(data) != n*rank {
		return fmt.Errorf("kernel: buffer holds %d elements, want %d", len(data), n*rank)
	}
	if n == 0 {
		return nil
	}

	pf := make([]float32, rank)
	half.DecodeSlice(pf, probe)

	return q.Dispatch(ctx, n, p.groupSize, func(lo, hi int) {
		row := p.scratch(rank)
		defer p.rows.Put(row)

		for i := lo; i < hi; i++ {
			half.DecodeSlice(*row, data[i*rank:(i+1)*rank])
			scores[i] = p.dot(pf, *row)
		}
	})
}

func (p *Pipeline) scratch(rank int) *[]float32 {
	if v, ok := p.rows.Get().(*[]float32); ok && cap(*v) >= rank {
		*v = (*v)[:rank]
		return v
	}
	buf := make([]float32, rank)
	return &buf
}

func dotGeneric(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
