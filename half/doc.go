// Package half implements IEEE 754 binary16 (half precision) conversion.
//
// Half precision is the storage format of the manifold: stored vectors take
// two bytes per component, while every arithmetic step runs in float32.
//
// The conversion pair is pure and never fails:
//
//	h := half.Encode(0.3333)   // round-to-nearest, ties-to-even
//	f := half.Decode(h)        // exact widening
//
// Values whose magnitude rounds above MaxValue saturate to signed infinity.
// Values below half of SmallestSubnormal flush to signed zero; everything in
// between degrades gradually through the subnormal range.
package half
