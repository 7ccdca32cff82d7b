package kernel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/grainvdb/blobstore"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	// Magic identifies a kernel manifest.
	Magic = "grainvdb.kernel"
	// ABIVersion is the artifact revision this build executes.
	ABIVersion = 1
	// EntryPoint is the fold kernel's entry name.
	EntryPoint = "manifold_fold"
	// StorageF16 is the only supported row storage format.
	StorageF16 = "f16"
	// AccumulateF32 is the only supported accumulation precision.
	AccumulateF32 = "f32"
	// DefaultWorkgroupSize is used when an artifact leaves it unset.
	DefaultWorkgroupSize = 1024

	maxWorkgroupSize = 1 << 20
	maxArtifactSize  = 1 << 20
)

// Compression is the framing applied to an encoded artifact.
type Compression uint8

const (
	// CompressionNone stores the manifest as plain JSON.
	CompressionNone Compression = iota
	// CompressionZstd wraps the manifest in a zstd frame.
	CompressionZstd
	// CompressionLZ4 wraps the manifest in an lz4 frame.
	CompressionLZ4
)

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// ParseCompression parses a framing name.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return CompressionNone, fmt.Errorf("kernel: unknown compression %q", s)
	}
}

// Artifact is the decoded kernel manifest.
type Artifact struct {
	Magic         string    `json:"magic"`
	ABI           int       `json:"abi"`
	Entry         string    `json:"entry"`
	Storage       string    `json:"storage"`
	Accumulate    string    `json:"accumulate"`
	WorkgroupSize int       `json:"workgroup_size"`
	Builder       string    `json:"builder,omitempty"`
	BuiltAt       time.Time `json:"built_at"`
}

// New returns an artifact for the current ABI. A non-positive workgroup
// size selects DefaultWorkgroupSize.
func New(workgroupSize int) *Artifact {
	if workgroupSize <= 0 {
		workgroupSize = DefaultWorkgroupSize
	}
	return &Artifact{
		Magic:         Magic,
		ABI:           ABIVersion,
		Entry:         EntryPoint,
		Storage:       StorageF16,
		Accumulate:    AccumulateF32,
		WorkgroupSize: workgroupSize,
		Builder:       "grainvdb",
		BuiltAt:       time.Now().UTC().Truncate(time.Second),
	}
}

// Validate checks that the artifact can be executed by this build.
func (a *Artifact) Validate() error {
	if a.Magic != Magic {
		return &IncompatibleError{Field: "magic", Got: a.Magic, Want: Magic}
	}
	if a.ABI != ABIVersion {
		return &IncompatibleError{Field: "abi", Got: strconv.Itoa(a.ABI), Want: strconv.Itoa(ABIVersion)}
	}
	if a.Entry != EntryPoint {
		return &IncompatibleError{Field: "entry", Got: a.Entry, Want: EntryPoint}
	}
	if a.Storage != StorageF16 {
		return &IncompatibleError{Field: "storage", Got: a.Storage, Want: StorageF16}
	}
	if a.Accumulate != AccumulateF32 {
		return &IncompatibleError{Field: "accumulate", Got: a.Accumulate, Want: AccumulateF32}
	}
	if a.WorkgroupSize < 0 || a.WorkgroupSize > maxWorkgroupSize {
		return &IncompatibleError{
			Field: "workgroup_size",
			Got:   strconv.Itoa(a.WorkgroupSize),
			Want:  fmt.Sprintf("0..%d", maxWorkgroupSize),
		}
	}
	return nil
}

var zstdEncoderPool sync.Pool

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

// Encode serializes a with the given framing.
func Encode(a *Artifact, c Compression) ([]byte, error) {
	raw, err := gojson.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, err
	}

	switch c {
	case CompressionNone:
		return raw, nil
	case CompressionZstd:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(raw, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("kernel: unknown compression %d", c)
	}
}

// Detect reports the framing of data.
func Detect(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(data, lz4Magic):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// Decode parses data, unwrapping any framing. It does not validate.
func Decode(data []byte) (*Artifact, Compression, error) {
	c := Detect(data)

	raw, err := unframe(data, c)
	if err != nil {
		return nil, c, fmt.Errorf("%w: %s: %v", ErrMalformed, c, err)
	}

	var a Artifact
	if err := gojson.Unmarshal(raw, &a); err != nil {
		return nil, c, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &a, c, nil
}

func unframe(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionZstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxArtifactSize))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case CompressionLZ4:
		out, err := io.ReadAll(io.LimitReader(lz4.NewReader(bytes.NewReader(data)), maxArtifactSize+1))
		if err != nil {
			return nil, err
		}
		if len(out) > maxArtifactSize {
			return nil, errors.New("artifact exceeds size limit")
		}
		return out, nil
	default:
		return data, nil
	}
}

// Load reads, decodes and validates the artifact name from store. wrap, if
// not nil, decorates the read stream.
func Load(ctx context.Context, store blobstore.BlobStore, name string, wrap func(io.Reader) io.Reader) (*Artifact, error) {
	data, err := blobstore.ReadAll(ctx, store, name, wrap)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}

	if len(data) > maxArtifactSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit", ErrMalformed, len(data))
	}

	a, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
