package manifold

import "github.com/hupe1980/grainvdb/half"

// View is a read-only window onto the buffer, valid only inside Store.Read.
type View struct {
	data  []half.Float
	rank  int
	count int
}

// Len returns the number of rows.
func (v View) Len() int { return v.count }

// Rank returns the row width.
func (v View) Rank() int { return v.rank }

// Data returns the row-major buffer. It must not be retained or modified.
func (v View) Data() []half.Float { return v.data }

// Row returns row i. It panics if i is out of range.
func (v View) Row(i int) []half.Float {
	off := i * v.rank
	return v.data[off : off+v.rank : off+v.rank]
}

// Decode widens row i into dst, which must hold Rank() values.
func (v View) Decode(i int, dst []float32) {
	half.DecodeSlice(dst[:v.rank], v.Row(i))
}
