package half

import "math"

// Float is the raw binary16 bit pattern.
//
// Layout: 1 sign bit, 5 exponent bits (bias 15), 10 mantissa bits.
type Float uint16

const (
	signBit  = 0x8000
	expBits  = 0x7C00
	mantBits = 0x03FF
	quietBit = 0x0200

	bias = 15

	f32Bias    = 127
	f32ExpMax  = 0xFF
	f32Mant    = 0x007FFFFF
	f32Hidden  = 0x00800000
	f32InfBits = 0x7F800000
)

const (
	// MaxValue is the largest finite binary16 value.
	MaxValue = 65504.0
	// SmallestNormal is the smallest positive normal binary16 value (2^-14).
	SmallestNormal = 0x1p-14
	// SmallestSubnormal is the smallest positive binary16 value (2^-24).
	SmallestSubnormal = 0x1p-24
	// Epsilon is the distance from 1.0 to the next binary16 value (2^-10).
	Epsilon = 0x1p-10
)

// Special bit patterns.
const (
	PositiveZero     Float = 0x0000
	NegativeZero     Float = signBit
	PositiveInfinity Float = expBits
	NegativeInfinity Float = signBit | expBits
	NaN              Float = expBits | quietBit
)

// Encode converts f to binary16 using round-to-nearest, ties-to-even.
// Magnitudes above MaxValue become infinities. Magnitudes below
// SmallestSubnormal round like any other value: above SmallestSubnormal/2
// they become the smallest subnormal, at or below it they become zero.
func Encode(f float32) Float {
	b := math.Float32bits(f)
	sign := Float(b>>16) & signBit
	exp := int32(b>>23) & f32ExpMax
	mant := b & f32Mant

	switch exp {
	case f32ExpMax:
		if mant == 0 {
			return sign | expBits
		}
		// Keep the high payload bits and force a quiet, non-zero NaN.
		return sign | expBits | quietBit | Float(mant>>13)&mantBits
	case 0:
		// float32 subnormals sit far below 2^-25 and flush to zero.
		return sign
	}

	e := exp - f32Bias + bias
	switch {
	case e >= 0x1F:
		return sign | expBits
	case e <= 0:
		if e < -10 {
			return sign
		}
		// Gradual underflow: make the hidden bit explicit and shift it
		// down into the 10-bit subnormal mantissa. A carry out of the
		// mantissa lands exactly on the smallest normal pattern.
		return sign | Float(roundShift(mant|f32Hidden, uint32(14-e)))
	}

	// Rebias and drop 13 mantissa bits. A mantissa carry propagates into
	// the exponent; a carry out of exponent 30 yields the infinity pattern.
	h := roundShift(uint32(e)<<23|mant, 13)
	if h >= expBits {
		return sign | expBits
	}
	return sign | Float(h)
}

// Decode widens h to float32. The conversion is exact.
func Decode(h Float) float32 {
	sign := uint32(h&signBit) << 16
	exp := uint32(h&expBits) >> 10
	mant := uint32(h & mantBits)

	switch exp {
	case 0x1F:
		return math.Float32frombits(sign | f32InfBits | mant<<13)
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		v := float32(mant) * SmallestSubnormal
		if sign != 0 {
			return -v
		}
		return v
	}
	return math.Float32frombits(sign | (exp+f32Bias-bias)<<23 | mant<<13)
}

// roundShift computes v >> shift rounded to nearest, ties to even.
func roundShift(v, shift uint32) uint32 {
	q := v >> shift
	rem := v & (1<<shift - 1)
	halfway := uint32(1) << (shift - 1)
	if rem > halfway || (rem == halfway && q&1 == 1) {
		q++
	}
	return q
}

// Float32 returns the float32 value of h.
func (h Float) Float32() float32 { return Decode(h) }

// Bits returns the raw bit pattern.
func (h Float) Bits() uint16 { return uint16(h) }

// IsNaN reports whether h is a NaN.
func (h Float) IsNaN() bool { return h&expBits == expBits && h&mantBits != 0 }

// IsInf reports whether h is an infinity. sign > 0 tests for +Inf, sign < 0
// for -Inf and sign == 0 for either.
func (h Float) IsInf(sign int) bool {
	if h&^signBit != expBits {
		return false
	}
	neg := h&signBit != 0
	return sign == 0 || (sign > 0 && !neg) || (sign < 0 && neg)
}

// EncodeSlice encodes src into dst. dst must have length >= len(src).
func EncodeSlice(dst []Float, src []float32) {
	dst = dst[:len(src)]
	for i, f := range src {
		dst[i] = Encode(f)
	}
}

// DecodeSlice decodes src into dst. dst must have length >= len(src).
func DecodeSlice(dst []float32, src []Float) {
	dst = dst[:len(src)]
	for i, h := range src {
		dst[i] = Decode(h)
	}
}

// ULP returns the spacing of binary16 values around f, i.e. the rounding unit
// an encode/decode round trip of f may lose twice over. Non-finite inputs and
// magnitudes above MaxValue return +Inf.
func ULP(f float32) float32 {
	a := math.Abs(float64(f))
	if math.IsNaN(a) || a > MaxValue {
		return float32(math.Inf(1))
	}
	if a < SmallestNormal {
		return SmallestSubnormal
	}
	_, e := math.Frexp(a)
	return float32(math.Ldexp(1, e-11))
}
