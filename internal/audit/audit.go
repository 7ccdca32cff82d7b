// Package audit scores how mutually similar a small set of stored rows is.
//
// The score is a relative coherence signal. It is only comparable between
// result sets produced under the same ingestion and normalization
// convention.
package audit

import (
	"fmt"
	"strings"

	"github.com/hupe1980/grainvdb/internal/manifold"
	"github.com/viterin/vek/vek32"
	"gonum.org/v1/gonum/mat"
)

// DefaultThreshold is the similarity above which a pair counts as connected.
const DefaultThreshold float32 = 0.85

// Variant selects the aggregate.
type Variant uint8

const (
	// Density is the fraction of pairs whose dot product exceeds the threshold.
	Density Variant = iota
	// MeanSimilarity is the mean pairwise dot product.
	MeanSimilarity
	// Connectivity is the algebraic connectivity (Fiedler value) of the
	// graph whose edges are the pairs above the threshold. It is 0 when the
	// rows split into disconnected groups and n for n mutually connected
	// rows.
	Connectivity
)

func (v Variant) String() string {
	switch v {
	case Density:
		return "density"
	case MeanSimilarity:
		return "mean"
	case Connectivity:
		return "connectivity"
	default:
		return "unknown"
	}
}

// ParseVariant parses a variant name.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "density":
		return Density, nil
	case "mean", "mean-similarity":
		return MeanSimilarity, nil
	case "connectivity", "fiedler":
		return Connectivity, nil
	default:
		return Density, fmt.Errorf("audit: unknown variant %q", s)
	}
}

// Auditor computes coherence scores.
type Auditor struct {
	variant   Variant
	threshold float32
}

// New returns an auditor. threshold is ignored by MeanSimilarity.
func New(variant Variant, threshold float32) *Auditor {
	return &Auditor{variant: variant, threshold: threshold}
}

// Score aggregates all len(vecs)*(len(vecs)-1)/2 pairwise dot products.
// Fewer than two vectors score 1.
func (a *Auditor) Score(vecs [][]float32) float32 {
	n := len(vecs)
	if n < 2 {
		return 1
	}
	if a.variant == Connectivity {
		return a.connectivity(vecs)
	}

	var connected int
	var sum float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := vek32.Dot(vecs[i], vecs[j])
			sum += float64(d)
			if d > a.threshold {
				connected++
			}
		}
	}

	pairs := n * (n - 1) / 2
	if a.variant == MeanSimilarity {
		return float32(sum / float64(pairs))
	}
	return float32(connected) / float32(pairs)
}

// connectivity builds the Laplacian L = D - A of the thresholded similarity
// graph and returns its second smallest eigenvalue.
func (a *Auditor) connectivity(vecs [][]float32) float32 {
	n := len(vecs)
	lap := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if vek32.Dot(vecs[i], vecs[j]) <= a.threshold {
				continue
			}
			lap.SetSym(i, j, -1)
			lap.SetSym(i, i, lap.At(i, i)+1)
			lap.SetSym(j, j, lap.At(j, j)+1)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(lap, false); !ok {
		return 0
	}
	// ascending
	values := eig.Values(nil)
	return float32(max(values[1], 0))
}

// Audit decodes the rows named by indices and scores them. Each distinct
// row is decoded once.
func (a *Auditor) Audit(store *manifold.Store, indices []uint64) (float32, error) {
	vecs, err := Gather(store, indices)
	if err != nil {
		return 0, err
	}
	return a.Score(vecs), nil
}

// Gather decodes the rows named by indices under one read lock. Duplicate
// indices share a decoded row.
func Gather(store *manifold.Store, indices []uint64) ([][]float32, error) {
	if len(indices) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(indices))
	err := store.Read(func(v manifold.View) error {
		rank := v.Rank()
		buf := make([]float32, len(indices)*rank)
		seen := make(map[uint64]int, len(indices))

		for i, idx := range indices {
			if idx >= uint64(v.Len()) {
				return &manifold.IndexError{Index: idx, Len: v.Len()}
			}
			if j, ok := seen[idx]; ok {
				out[i] = out[j]
				continue
			}
			row := buf[i*rank : (i+1)*rank : (i+1)*rank]
			v.Decode(int(idx), row)
			out[i] = row
			seen[idx] = i
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GluingEnergy measures how badly neighbourhood a aligns with b:
// 1 - mean over a of the best dot product against b. Zero means every row
// of a has an identical partner in b. An empty a has energy 0 and an empty
// b has energy 1.
func GluingEnergy(a, b [][]float32) float32 {
	if len(a) == 0 {
		return 0
	}
	if len(b) == 0 {
		return 1
	}

	var alignment float64
	for _, u := range a {
		best := vek32.Dot(u, b[0])
		for _, w := range b[1:] {
			best = max(best, vek32.Dot(u, w))
		}
		alignment += float64(best)
	}
	return float32(1 - alignment/float64(len(a)))
}
