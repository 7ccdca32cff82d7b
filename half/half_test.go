package half

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32bits(f float32) uint32 { return math.Float32bits(f) }

func TestDecode_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		in   Float
		want float32
	}{
		{"+0", 0x0000, 0},
		{"+1", 0x3C00, 1},
		{"-1", 0xBC00, -1},
		{"-2", 0xC000, -2},
		{"one third", 0x3555, 0.33325195},
		{"max", 0x7BFF, MaxValue},
		{"min normal", 0x0400, SmallestNormal},
		{"min subnormal", 0x0001, SmallestSubnormal},
		{"max subnormal", 0x03FF, 1023 * SmallestSubnormal},
		{"+Inf", PositiveInfinity, float32(math.Inf(1))},
		{"-Inf", NegativeInfinity, float32(math.Inf(-1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.in))
		})
	}
}

func TestDecode_SignedZeroAndNaN(t *testing.T) {
	assert.Equal(t, f32bits(float32(math.Copysign(0, -1))), f32bits(Decode(NegativeZero)))
	assert.True(t, math.IsNaN(float64(Decode(NaN))))
	assert.True(t, math.IsNaN(float64(Decode(0xFE01))))
}

func TestEncode_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want Float
	}{
		{"+0", 0, PositiveZero},
		{"-0", float32(math.Copysign(0, -1)), NegativeZero},
		{"+1", 1, 0x3C00},
		{"-1", -1, 0xBC00},
		{"0.5", 0.5, 0x3800},
		{"max", MaxValue, 0x7BFF},
		{"min normal", SmallestNormal, 0x0400},
		{"min subnormal", SmallestSubnormal, 0x0001},
		{"+Inf", float32(math.Inf(1)), PositiveInfinity},
		{"-Inf", float32(math.Inf(-1)), NegativeInfinity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Encode(tt.in), "got %04x want %04x", uint16(Encode(tt.in)), uint16(tt.want))
		})
	}
}

func TestEncode_NaN(t *testing.T) {
	h := Encode(float32(math.NaN()))
	assert.True(t, h.IsNaN())
	assert.False(t, h.IsInf(0))

	// A payload that lives only in the low float32 mantissa bits must still
	// encode as NaN rather than infinity.
	low := math.Float32frombits(0x7F800001)
	assert.True(t, Encode(low).IsNaN())
}

func TestEncode_Overflow(t *testing.T) {
	// 65519.99 still rounds down to MaxValue; 65520 is the rounding boundary.
	assert.Equal(t, Float(0x7BFF), Encode(65519))
	assert.Equal(t, PositiveInfinity, Encode(65520))
	assert.Equal(t, PositiveInfinity, Encode(65536))
	assert.Equal(t, PositiveInfinity, Encode(1e9))
	assert.Equal(t, NegativeInfinity, Encode(-1e9))
	assert.Equal(t, PositiveInfinity, Encode(math.MaxFloat32))
}

func TestEncode_Underflow(t *testing.T) {
	tiny := float32(SmallestSubnormal)

	// Exactly half the smallest subnormal ties to even (zero).
	assert.Equal(t, PositiveZero, Encode(tiny/2))
	// Just above half rounds up to the smallest subnormal.
	assert.Equal(t, Float(0x0001), Encode(tiny*0.51))
	assert.Equal(t, Float(0x0001), Encode(tiny*0.75))
	assert.Equal(t, PositiveZero, Encode(tiny*0.4))
	assert.Equal(t, PositiveZero, Encode(tiny/4))
	assert.Equal(t, NegativeZero, Encode(-tiny/4))
	assert.Equal(t, PositiveZero, Encode(1e-30))
	// float32 subnormals flush to zero.
	assert.Equal(t, PositiveZero, Encode(math.Float32frombits(0x00000001)))
}

func TestEncode_GradualUnderflow(t *testing.T) {
	// Every subnormal pattern round-trips exactly.
	for m := uint16(1); m <= mantBits; m++ {
		f := Decode(Float(m))
		require.Equal(t, Float(m), Encode(f), "m=%d", m)
		require.Equal(t, Float(m)|signBit, Encode(-f), "m=%d", m)
	}

	// The largest subnormal plus half a step carries into the smallest normal.
	f := float32(1023.5 * SmallestSubnormal)
	assert.Equal(t, Float(0x0400), Encode(f))
}

func TestEncode_RoundingTiesToEven(t *testing.T) {
	step := float32(Epsilon)

	// Halfway between 1.0 (even mantissa) and its successor rounds to 1.0.
	assert.Equal(t, Float(0x3C00), Encode(1+step/2))
	// Halfway above an odd mantissa rounds up.
	assert.Equal(t, Float(0x3C02), Encode(1+step+step/2))
	// Rounding up across the exponent boundary carries into the exponent.
	assert.Equal(t, Float(0x4000), Encode(2-step/4))
}

func TestRoundTrip_AllPatterns(t *testing.T) {
	for b := 0; b <= 0xFFFF; b++ {
		h := Float(b)
		if h.IsNaN() {
			require.True(t, Encode(Decode(h)).IsNaN())
			continue
		}
		require.Equal(t, h, Encode(Decode(h)), "pattern %04x", b)
	}
}

func TestRoundTrip_WithinRoundingUnit(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100_000; i++ {
		// Log-uniform magnitudes across the normal range.
		exp := rng.Float64()*29 - 14
		x := float32(math.Pow(2, exp))
		if rng.Intn(2) == 0 {
			x = -x
		}
		got := Decode(Encode(x))
		diff := math.Abs(float64(got - x))
		require.LessOrEqual(t, diff, float64(ULP(x))/2, "x=%g got=%g", x, got)
	}
}

func TestULP(t *testing.T) {
	assert.Equal(t, float32(Epsilon), ULP(1))
	assert.Equal(t, float32(Epsilon), ULP(-1.5))
	assert.Equal(t, float32(2*Epsilon), ULP(2))
	assert.Equal(t, float32(32), ULP(65504))
	assert.Equal(t, float32(SmallestSubnormal), ULP(1e-6))
	assert.True(t, math.IsInf(float64(ULP(1e6)), 1))
}

func TestIsInf(t *testing.T) {
	assert.True(t, PositiveInfinity.IsInf(1))
	assert.False(t, PositiveInfinity.IsInf(-1))
	assert.True(t, NegativeInfinity.IsInf(-1))
	assert.True(t, NegativeInfinity.IsInf(0))
	assert.False(t, NaN.IsInf(0))
	assert.False(t, Float(0x3C00).IsInf(0))
}

func TestSlices(t *testing.T) {
	src := []float32{0, 1, -2, MaxValue, float32(math.Inf(1)), 1e6}
	h := make([]Float, len(src))
	EncodeSlice(h, src)

	got := make([]float32, len(src))
	DecodeSlice(got, h)

	assert.Equal(t, []float32{0, 1, -2, MaxValue}, got[:4])
	assert.True(t, math.IsInf(float64(got[4]), 1))
	assert.True(t, math.IsInf(float64(got[5]), 1))
}

func BenchmarkEncode(b *testing.B) {
	var sink Float
	for i := 0; i < b.N; i++ {
		sink = Encode(float32(i) * 0.001)
	}
	_ = sink
}

func BenchmarkDecode(b *testing.B) {
	var sink float32
	for i := 0; i < b.N; i++ {
		sink = Decode(Float(i))
	}
	_ = sink
}
