package manifold

import (
	"math"
	"sync"
	"unsafe"

	"github.com/hupe1980/grainvdb/half"
	"github.com/hupe1980/grainvdb/internal/mmap"
	"github.com/hupe1980/grainvdb/internal/resource"
	"github.com/viterin/vek/vek32"
)

// normEpsilon keeps normalization finite for zero vectors.
const normEpsilon = 1e-9

const elemSize = int64(unsafe.Sizeof(half.Float(0)))

// Config configures a Store.
type Config struct {
	// Rank is the row width. It must be positive.
	Rank int
	// Normalize scales every ingested row to unit L2 length.
	Normalize bool
	// Resources accounts buffer bytes against the device budget. May be nil.
	Resources *resource.Controller
}

// Store holds Len() rows of Rank() half-precision components.
type Store struct {
	rank      int
	normalize bool
	res       *resource.Controller

	mu       sync.RWMutex
	buf      *mmap.Anon
	data     []half.Float
	count    int
	released bool
}

// New returns an empty store.
func New(cfg Config) *Store {
	if cfg.Rank <= 0 {
		panic("manifold: rank must be positive")
	}
	return &Store{
		rank:      cfg.Rank,
		normalize: cfg.Normalize,
		res:       cfg.Resources,
	}
}

// Rank returns the row width.
func (s *Store) Rank() int { return s.rank }

// Len returns the number of rows currently stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Bytes returns the size of the current buffer.
func (s *Store) Bytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)) * elemSize
}

// Ingest replaces the store contents with count rows taken from vectors.
// A count of zero empties the store. On error the previous contents are
// left untouched.
func (s *Store) Ingest(vectors []float32, count int) error {
	if count < 0 {
		return &CountError{Count: count}
	}
	if count > math.MaxInt/s.rank {
		return &CountError{Count: count}
	}
	if want := count * s.rank; len(vectors) != want {
		return &ShapeError{Got: len(vectors), Want: want}
	}

	buf, data, err := s.alloc(count)
	if err != nil {
		return err
	}
	s.encode(data, vectors, count)
	if buf != nil {
		_ = buf.Advise(mmap.AccessSequential)
	}

	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		s.free(buf, data)
		return ErrReleased
	}
	oldBuf, oldData := s.buf, s.data
	s.buf, s.data, s.count = buf, data, count
	s.mu.Unlock()

	s.free(oldBuf, oldData)
	return nil
}

func (s *Store) alloc(count int) (*mmap.Anon, []half.Float, error) {
	if count == 0 {
		return nil, nil, nil
	}

	n := count * s.rank
	size := int64(n) * elemSize
	if err := s.res.ReserveDevice(size); err != nil {
		return nil, nil, &AllocError{Bytes: size, Err: err}
	}

	buf, err := mmap.MapAnon(int(size))
	if err != nil {
		s.res.ReleaseDevice(size)
		return nil, nil, &AllocError{Bytes: size, Err: err}
	}

	b := buf.Bytes()
	return buf, unsafe.Slice((*half.Float)(unsafe.Pointer(&b[0])), n), nil
}

func (s *Store) free(buf *mmap.Anon, data []half.Float) {
	if buf == nil {
		return
	}
	_ = buf.Close()
	s.res.ReleaseDevice(int64(len(data)) * elemSize)
}

func (s *Store) encode(dst []half.Float, src []float32, count int) {
	if !s.normalize {
		half.EncodeSlice(dst, src)
		return
	}

	for i := 0; i < count; i++ {
		row := src[i*s.rank : (i+1)*s.rank]
		out := dst[i*s.rank : (i+1)*s.rank]
		scale := InvNorm(row)
		for j, v := range row {
			out[j] = half.Encode(v * scale)
		}
	}
}

// InvNorm returns 1/(‖v‖+1e-9).
func InvNorm(v []float32) float32 {
	return float32(1 / (math.Sqrt(float64(vek32.Dot(v, v))) + normEpsilon))
}

// Normalize writes v/(‖v‖+1e-9) into dst and returns it. dst may alias v.
func Normalize(dst, v []float32) []float32 {
	if cap(dst) < len(v) {
		dst = make([]float32, len(v))
	}
	dst = dst[:len(v)]
	scale := InvNorm(v)
	for i, x := range v {
		dst[i] = x * scale
	}
	return dst
}

// Normalizes reports whether rows are normalized on ingest.
func (s *Store) Normalizes() bool { return s.normalize }

// Read runs fn with a view of the buffer under the read lock. Ingest
// blocks until fn returns.
func (s *Store) Read(fn func(View) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return ErrReleased
	}
	return fn(View{data: s.data, rank: s.rank, count: s.count})
}

// VectorAt decodes row index into dst, growing it if needed, and returns it.
func (s *Store) VectorAt(index uint64, dst []float32) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, ErrReleased
	}
	if index >= uint64(s.count) {
		return nil, &IndexError{Index: index, Len: s.count}
	}

	if cap(dst) < s.rank {
		dst = make([]float32, s.rank)
	}
	dst = dst[:s.rank]
	off := int(index) * s.rank
	half.DecodeSlice(dst, s.data[off:off+s.rank])
	return dst, nil
}

// Release frees the buffer. Later calls return ErrReleased.
func (s *Store) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return ErrReleased
	}
	s.released = true
	buf, data := s.buf, s.data
	s.buf, s.data, s.count = nil, nil, 0
	s.mu.Unlock()

	s.free(buf, data)
	return nil
}
