package manifold

import (
	"errors"
	"sync"
	"testing"

	"github.com/hupe1980/grainvdb/half"
	"github.com/hupe1980/grainvdb/internal/resource"
	"github.com/hupe1980/grainvdb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_IngestVectorAt(t *testing.T) {
	s := New(Config{Rank: 4})
	defer s.Release()

	assert.Equal(t, 0, s.Len())

	vecs := []float32{
		1, 2, 3, 4,
		-0.5, 0.25, 0, 65504,
	}
	require.NoError(t, s.Ingest(vecs, 2))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(16), s.Bytes())

	got, err := s.VectorAt(1, nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{-0.5, 0.25, 0, 65504}, got)

	_, err = s.VectorAt(2, got)
	var ie *IndexError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 2, ie.Len)
}

func TestStore_IngestRejectsShape(t *testing.T) {
	s := New(Config{Rank: 3})
	defer s.Release()

	require.NoError(t, s.Ingest([]float32{1, 2, 3}, 1))

	var se *ShapeError
	assert.ErrorAs(t, s.Ingest([]float32{1, 2}, 1), &se)

	var ce *CountError
	assert.ErrorAs(t, s.Ingest(nil, -1), &ce)

	// previous contents survive
	assert.Equal(t, 1, s.Len())
}

func TestStore_Replace(t *testing.T) {
	res := resource.NewController(resource.Config{})
	s := New(Config{Rank: 2, Resources: res})

	require.NoError(t, s.Ingest([]float32{1, 1, 2, 2, 3, 3}, 3))
	assert.Equal(t, int64(12), res.DeviceUsage())

	require.NoError(t, s.Ingest([]float32{7, 8}, 1))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(4), res.DeviceUsage())

	v, err := s.VectorAt(0, nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 8}, v)

	require.NoError(t, s.Ingest(nil, 0))
	assert.Equal(t, 0, s.Len())
	assert.Zero(t, res.DeviceUsage())

	require.NoError(t, s.Release())
	assert.ErrorIs(t, s.Release(), ErrReleased)
	assert.ErrorIs(t, s.Ingest(nil, 0), ErrReleased)
	_, err = s.VectorAt(0, nil)
	assert.ErrorIs(t, err, ErrReleased)
}

func TestStore_BudgetExhausted(t *testing.T) {
	res := resource.NewController(resource.Config{DeviceMemoryBytes: 16})
	s := New(Config{Rank: 4, Resources: res})
	defer s.Release()

	require.NoError(t, s.Ingest(make([]float32, 8), 2))

	err := s.Ingest(make([]float32, 12), 3)
	var ae *AllocError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, int64(24), ae.Bytes)
	assert.True(t, errors.Is(err, resource.ErrDeviceMemoryExhausted))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(16), res.DeviceUsage())
}

func TestStore_Normalize(t *testing.T) {
	s := New(Config{Rank: 2, Normalize: true})
	defer s.Release()

	require.NoError(t, s.Ingest([]float32{3, 4, 0, 0}, 2))

	v, err := s.VectorAt(0, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], float64(half.ULP(0.6)))
	assert.InDelta(t, 0.8, v[1], float64(half.ULP(0.8)))

	v, err = s.VectorAt(1, v)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, v)
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	out := Normalize(v, v)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.8, out[1], 1e-6)

	zero := Normalize(nil, []float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
}

func TestStore_ReadView(t *testing.T) {
	rng := testutil.NewRNG(1)
	vecs := rng.UniformVectors(10, 8)

	s := New(Config{Rank: 8})
	defer s.Release()
	require.NoError(t, s.Ingest(testutil.Flatten(vecs), 10))

	err := s.Read(func(v View) error {
		assert.Equal(t, 10, v.Len())
		assert.Equal(t, 8, v.Rank())
		assert.Len(t, v.Data(), 80)

		row := make([]float32, 8)
		v.Decode(3, row)
		for j, x := range vecs[3] {
			assert.InDelta(t, x, row[j], float64(half.ULP(x)))
		}
		assert.Len(t, v.Row(9), 8)
		return nil
	})
	require.NoError(t, err)

	sentinel := errors.New("stop")
	assert.ErrorIs(t, s.Read(func(View) error { return sentinel }), sentinel)
}

func TestStore_ConcurrentIngestRead(t *testing.T) {
	s := New(Config{Rank: 16})
	defer s.Release()

	a := make([]float32, 16*100)
	for i := range a {
		a[i] = 1
	}
	b := make([]float32, 16*40)
	for i := range b {
		b[i] = 2
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if i%2 == 0 {
				_ = s.Ingest(a, 100)
			} else {
				_ = s.Ingest(b, 40)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Read(func(v View) error {
				if v.Len() == 0 {
					return nil
				}
				first := v.Data()[0]
				for _, h := range v.Data() {
					// a view never mixes two ingests
					assert.Equal(t, first, h)
				}
				return nil
			})
		}
	}()
	wg.Wait()
}
