package kernel

import (
	"context"
	"testing"

	"github.com/hupe1980/grainvdb/blobstore"
	"github.com/hupe1980/grainvdb/half"
	"github.com/hupe1980/grainvdb/internal/device"
	"github.com/hupe1980/grainvdb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			a := New(256)
			data, err := Encode(a, c)
			require.NoError(t, err)
			assert.Equal(t, c, Detect(data))

			got, gotC, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, c, gotC)
			assert.Equal(t, 256, got.WorkgroupSize)
			assert.True(t, a.BuiltAt.Equal(got.BuiltAt))
			require.NoError(t, got.Validate())
		})
	}
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)

	c, err = ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)

	_, err = ParseCompression("gzip")
	assert.Error(t, err)
}

func TestDecode_Malformed(t *testing.T) {
	_, _, err := Decode([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, _, err = Decode(append([]byte{0x28, 0xB5, 0x2F, 0xFD}, 1, 2, 3))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(a *Artifact)
		field string
	}{
		{"magic", func(a *Artifact) { a.Magic = "other" }, "magic"},
		{"abi", func(a *Artifact) { a.ABI = 2 }, "abi"},
		{"entry", func(a *Artifact) { a.Entry = "main" }, "entry"},
		{"storage", func(a *Artifact) { a.Storage = "f32" }, "storage"},
		{"accumulate", func(a *Artifact) { a.Accumulate = "f16" }, "accumulate"},
		{"workgroup", func(a *Artifact) { a.WorkgroupSize = -1 }, "workgroup_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(0)
			tt.edit(a)
			err := a.Validate()
			var ie *IncompatibleError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.field, ie.Field)
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	_, err := Load(ctx, store, "missing.gvk", nil)
	assert.ErrorIs(t, err, ErrNotFound)

	data, err := Encode(New(64), CompressionLZ4)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "fold.gvk", data))

	a, err := Load(ctx, store, "fold.gvk", nil)
	require.NoError(t, err)
	assert.Equal(t, 64, a.WorkgroupSize)

	bad := New(64)
	bad.ABI = 99
	data, err = Encode(bad, CompressionNone)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "old.gvk", data))

	_, err = Load(ctx, store, "old.gvk", nil)
	var ie *IncompatibleError
	assert.ErrorAs(t, err, &ie)
}

func TestPipeline_Fold(t *testing.T) {
	const (
		n    = 1000
		rank = 32
	)
	rng := testutil.NewRNG(3)

	vecs := rng.UniformVectors(n, rank)
	data := make([]half.Float, n*rank)
	for i, v := range vecs {
		half.EncodeSlice(data[i*rank:(i+1)*rank], v)
	}
	probe32 := rng.UniformVectors(1, rank)[0]
	probe := make([]half.Float, rank)
	half.EncodeSlice(probe, probe32)

	dev, err := device.Open(device.Config{Workers: 4})
	require.NoError(t, err)
	defer dev.Close()

	for _, isa := range []device.ISA{device.Generic, dev.Info().ISA} {
		p, err := Compile(New(100), isa)
		require.NoError(t, err)

		scores := make([]float32, n)
		require.NoError(t, p.Fold(context.Background(), dev.Queue(), data, rank, probe, scores))

		row := make([]float32, rank)
		pf := make([]float32, rank)
		half.DecodeSlice(pf, probe)
		for i := 0; i < n; i++ {
			half.DecodeSlice(row, data[i*rank:(i+1)*rank])
			assert.InDelta(t, dotGeneric(pf, row), scores[i], 1e-4)
		}
	}

	dispatches, groups := dev.Queue().Stats()
	assert.Equal(t, int64(2), dispatches)
	assert.Equal(t, int64(20), groups)
}

func TestPipeline_FoldShapeErrors(t *testing.T) {
	dev, err := device.Open(device.Config{Workers: 1})
	require.NoError(t, err)
	defer dev.Close()

	p, err := Compile(New(0), device.Generic)
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkgroupSize, p.WorkgroupSize())

	scores := make([]float32, 2)
	err = p.Fold(context.Background(), dev.Queue(), make([]half.Float, 8), 4, make([]half.Float, 3), scores)
	assert.Error(t, err)
	err = p.Fold(context.Background(), dev.Queue(), make([]half.Float, 7), 4, make([]half.Float, 4), scores)
	assert.Error(t, err)

	require.NoError(t, p.Fold(context.Background(), dev.Queue(), nil, 4, make([]half.Float, 4), nil))
}

func TestCompile_Invalid(t *testing.T) {
	a := New(0)
	a.Entry = "other"
	_, err := Compile(a, device.Generic)
	assert.Error(t, err)
}
