package audit

import (
	"testing"

	"github.com/hupe1980/grainvdb/internal/manifold"
	"github.com/hupe1980/grainvdb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_FewerThanTwo(t *testing.T) {
	for _, v := range []Variant{Density, MeanSimilarity, Connectivity} {
		a := New(v, DefaultThreshold)
		assert.Equal(t, float32(1), a.Score(nil))
		assert.Equal(t, float32(1), a.Score([][]float32{{0, 1}}))
	}
}

func TestScore_Density(t *testing.T) {
	a := New(Density, DefaultThreshold)

	same := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	assert.Equal(t, float32(1), a.Score(same))

	orth := testutil.Basis(4, 4)
	assert.Equal(t, float32(0), a.Score(orth))

	// 2 identical + 2 orthogonal: only the identical pair connects
	mixed := [][]float32{{1, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	assert.InDelta(t, 1.0/6.0, a.Score(mixed), 1e-6)
}

func TestScore_ThresholdIsStrict(t *testing.T) {
	vecs := [][]float32{{0.5, 0}, {1, 0}}
	assert.Equal(t, float32(0), New(Density, 0.5).Score(vecs))
	assert.Equal(t, float32(1), New(Density, 0.49).Score(vecs))
}

func TestScore_MeanSimilarity(t *testing.T) {
	a := New(MeanSimilarity, 0)

	mixed := [][]float32{{1, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	assert.InDelta(t, 1.0/6.0, a.Score(mixed), 1e-6)

	vecs := [][]float32{{2, 0}, {1, 0}, {-1, 0}}
	// (2 - 2 - 1) / 3
	assert.InDelta(t, -1.0/3.0, a.Score(vecs), 1e-6)
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("MEAN")
	require.NoError(t, err)
	assert.Equal(t, MeanSimilarity, v)
	assert.Equal(t, "mean", v.String())

	v, err = ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, Density, v)

	v, err = ParseVariant("fiedler")
	require.NoError(t, err)
	assert.Equal(t, Connectivity, v)
	assert.Equal(t, "connectivity", v.String())

	_, err = ParseVariant("spectral")
	assert.Error(t, err)
}

func TestScore_Connectivity(t *testing.T) {
	a := New(Connectivity, DefaultThreshold)

	// complete graph on n vertices has algebraic connectivity n
	same := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	assert.InDelta(t, 3.0, a.Score(same), 1e-5)

	// two components
	split := [][]float32{{1, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 1, 0}}
	assert.InDelta(t, 0.0, a.Score(split), 1e-5)

	// path a-b-c: 30 degrees apart, a and c at 60 degrees
	path := [][]float32{{1, 0}, {0.8660254, 0.5}, {0.5, 0.8660254}}
	assert.InDelta(t, 1.0, a.Score(path), 1e-5)

	assert.InDelta(t, 0.0, a.Score(testutil.Basis(4, 4)), 1e-5)
}

func TestAudit_Store(t *testing.T) {
	store := manifold.New(manifold.Config{Rank: 8})
	defer store.Release()

	rows := append(testutil.Basis(4, 8), testutil.Basis(4, 8)[0], testutil.Basis(4, 8)[0], testutil.Basis(4, 8)[0])
	// rows 0..3 orthogonal, 4..6 identical to row 0
	require.NoError(t, store.Ingest(testutil.Flatten(rows), len(rows)))

	a := New(Density, DefaultThreshold)

	identical, err := a.Audit(store, []uint64{0, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, float32(1), identical)

	mixed, err := a.Audit(store, []uint64{0, 4, 1, 2})
	require.NoError(t, err)
	assert.Less(t, mixed, identical)

	again, err := a.Audit(store, []uint64{0, 4, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, mixed, again)

	one, err := a.Audit(store, []uint64{3})
	require.NoError(t, err)
	assert.Equal(t, float32(1), one)

	_, err = a.Audit(store, []uint64{0, 7})
	var ie *manifold.IndexError
	assert.ErrorAs(t, err, &ie)
}

func TestGather_Duplicates(t *testing.T) {
	store := manifold.New(manifold.Config{Rank: 2})
	defer store.Release()
	require.NoError(t, store.Ingest([]float32{1, 2, 3, 4}, 2))

	vecs, err := Gather(store, []uint64{1, 0, 1})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{3, 4}, vecs[0])
	assert.Equal(t, []float32{1, 2}, vecs[1])
	assert.Equal(t, vecs[0], vecs[2])
}

func TestGluingEnergy(t *testing.T) {
	animal := [][]float32{{0.9, 0, 0}, {0.85, 0.05, 0}, {0.8, -0.1, 0}}
	car := [][]float32{{0, 0.9, 0}, {0.1, 0.85, 0}, {0.2, 0.8, 0}}

	same := GluingEnergy(animal, animal)
	diff := GluingEnergy(animal, car)
	assert.Less(t, same, diff)
	assert.Greater(t, diff, float32(0.5))

	unit := testutil.Basis(2, 2)
	assert.InDelta(t, 0, GluingEnergy(unit, unit), 1e-6)
	assert.Equal(t, float32(0), GluingEnergy(nil, unit))
	assert.Equal(t, float32(1), GluingEnergy(unit, nil))
}
