package resolver

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/grainvdb/internal/device"
	"github.com/hupe1980/grainvdb/internal/kernel"
	"github.com/hupe1980/grainvdb/internal/manifold"
	"github.com/hupe1980/grainvdb/internal/resource"
	"github.com/hupe1980/grainvdb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store *manifold.Store
	res   *resource.Controller
	r     *Resolver
}

func newFixture(t *testing.T, rank int, normalize bool) *fixture {
	t.Helper()

	dev, err := device.Open(device.Config{Workers: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dev.Close() })

	p, err := kernel.Compile(kernel.New(64), dev.Info().ISA)
	require.NoError(t, err)

	res := resource.NewController(resource.Config{})
	store := manifold.New(manifold.Config{Rank: rank, Normalize: normalize, Resources: res})
	t.Cleanup(func() { _ = store.Release() })

	return &fixture{store: store, res: res, r: New(store, p, dev.Queue(), res)}
}

func TestResolve_MatchesBruteForce(t *testing.T) {
	const (
		n    = 1000
		rank = 128
		k    = 10
	)
	f := newFixture(t, rank, false)
	rng := testutil.NewRNG(42)

	vecs := rng.UnitVectors(n, rank)
	require.NoError(t, f.store.Ingest(testutil.Flatten(vecs), n))

	for q := 0; q < 5; q++ {
		probe := rng.UnitVector(rank)

		res, err := f.r.Resolve(context.Background(), probe, k, Options{})
		require.NoError(t, err)
		require.Len(t, res.Items, k)
		assert.Greater(t, res.Latency, time.Duration(0))

		seen := map[uint64]bool{}
		for i, it := range res.Items {
			assert.Less(t, it.Index, uint64(n))
			assert.False(t, seen[it.Index])
			seen[it.Index] = true
			if i > 0 {
				assert.GreaterOrEqual(t, res.Items[i-1].Score, it.Score)
			}
		}

		// half-precision storage can swap near-ties, so compare scores
		truth := testutil.BruteForceTopK(vecs, probe, k)
		for i := range truth {
			assert.InDelta(t, truth[i].Score, res.Items[i].Score, 5e-3)
		}
	}
}

func TestResolve_ExactOnRepresentableData(t *testing.T) {
	f := newFixture(t, 4, false)

	// every component and product is exact in binary16/float32
	vecs := [][]float32{
		{1, 0, 0, 0},
		{0, 2, 0, 0},
		{0, 0, 3, 0},
		{0, 0, 0, 4},
		{1, 1, 1, 1},
	}
	require.NoError(t, f.store.Ingest(testutil.Flatten(vecs), len(vecs)))

	res, err := f.r.Resolve(context.Background(), []float32{1, 1, 1, 1}, 3, Options{})
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	assert.ElementsMatch(t, []uint64{3, 4}, []uint64{res.Items[0].Index, res.Items[1].Index})
	assert.Equal(t, float32(4), res.Items[0].Score)
	assert.Equal(t, float32(4), res.Items[1].Score)
	assert.Equal(t, float32(3), res.Items[2].Score)
	assert.Equal(t, uint64(2), res.Items[2].Index)
}

func TestResolve_EmptyStore(t *testing.T) {
	f := newFixture(t, 8, false)

	res, err := f.r.Resolve(context.Background(), make([]float32, 8), 5, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Zero(t, res.Latency)
}

func TestResolve_ClampsK(t *testing.T) {
	f := newFixture(t, 2, false)
	require.NoError(t, f.store.Ingest([]float32{1, 0, 0, 1, 1, 1}, 3))

	res, err := f.r.Resolve(context.Background(), []float32{1, 0}, 50, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
}

func TestResolve_Guards(t *testing.T) {
	f := newFixture(t, 2, false)

	_, err := f.r.Resolve(context.Background(), []float32{1}, 1, Options{})
	var se *manifold.ShapeError
	assert.ErrorAs(t, err, &se)

	_, err = f.r.Resolve(context.Background(), []float32{1, 0}, 0, Options{})
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestResolve_RejectsUnrepresentableProbe(t *testing.T) {
	raw := newFixture(t, 2, false)
	require.NoError(t, raw.store.Ingest([]float32{1, 0, 0, 1, 1, 1}, 3))

	bad := [][]float32{
		{float32(math.NaN()), 1},
		{1, float32(math.Inf(-1))},
		{70000, 0},
	}
	for _, probe := range bad {
		_, err := raw.r.Resolve(context.Background(), probe, 2, Options{})
		var pe *ProbeError
		require.ErrorAs(t, err, &pe, "probe %v", probe)
	}

	// a normalized context scales large components back into range
	norm := newFixture(t, 2, true)
	require.NoError(t, norm.store.Ingest([]float32{1, 0, 0, 1}, 2))
	res, err := norm.r.Resolve(context.Background(), []float32{70000, 0}, 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), res.Items[0].Index)

	_, err = norm.r.Resolve(context.Background(), []float32{float32(math.NaN()), 0}, 1, Options{})
	var pe *ProbeError
	assert.ErrorAs(t, err, &pe)
}

func TestResolve_Filter(t *testing.T) {
	f := newFixture(t, 1, false)
	require.NoError(t, f.store.Ingest([]float32{1, 2, 3, 4, 5, 6}, 6))

	filter := roaring.BitmapOf(0, 2, 4, 100)
	res, err := f.r.Resolve(context.Background(), []float32{1}, 2, Options{Filter: filter})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, uint64(4), res.Items[0].Index)
	assert.Equal(t, uint64(2), res.Items[1].Index)
}

func TestResolve_Normalize(t *testing.T) {
	f := newFixture(t, 2, true)
	require.NoError(t, f.store.Ingest([]float32{10, 0, 0, 0.5}, 2))

	res, err := f.r.Resolve(context.Background(), []float32{0, 3}, 2, Options{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, uint64(1), res.Items[0].Index)
	assert.InDelta(t, 1.0, res.Items[0].Score, 1e-3)
	assert.InDelta(t, 0.0, res.Items[1].Score, 1e-3)
}

func TestResolve_Replacement(t *testing.T) {
	f := newFixture(t, 2, false)
	require.NoError(t, f.store.Ingest([]float32{1, 0, 0, 1, 5, 5, 9, 9}, 4))

	require.NoError(t, f.store.Ingest([]float32{-1, 0, 0.5, 0.5}, 2))

	res, err := f.r.Resolve(context.Background(), []float32{1, 1}, 10, Options{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, uint64(1), res.Items[0].Index)
	assert.Equal(t, float32(1), res.Items[0].Score)
	assert.Equal(t, uint64(0), res.Items[1].Index)
}

func TestResolve_WaitsForDispatchSlot(t *testing.T) {
	f := newFixture(t, 2, false)
	require.NoError(t, f.store.Ingest([]float32{1, 0}, 1))

	require.True(t, f.res.TryAcquireDispatch())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.r.Resolve(ctx, []float32{1, 0}, 1, Options{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.res.ReleaseDispatch()
	res, err := f.r.Resolve(context.Background(), []float32{1, 0}, 1, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
}

func BenchmarkResolve(b *testing.B) {
	const (
		n    = 100_000
		rank = 128
	)
	dev, err := device.Open(device.Config{})
	require.NoError(b, err)
	defer dev.Close()

	p, err := kernel.Compile(kernel.New(0), dev.Info().ISA)
	require.NoError(b, err)

	store := manifold.New(manifold.Config{Rank: rank})
	defer store.Release()

	rng := testutil.NewRNG(1)
	require.NoError(b, store.Ingest(testutil.Flatten(rng.UnitVectors(n, rank)), n))
	r := New(store, p, dev.Queue(), nil)
	probe := rng.UnitVector(rank)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Resolve(context.Background(), probe, 10, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
