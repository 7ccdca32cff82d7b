package grainvdb

import (
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/grainvdb/blobstore"
	"github.com/hupe1980/grainvdb/internal/audit"
	"github.com/hupe1980/grainvdb/internal/device"
)

// Backend identifies a compute backend.
type Backend = device.Backend

const (
	// BackendAuto selects the best backend available in this build.
	BackendAuto = device.BackendAuto
	// BackendCPU runs the fold kernel on a goroutine worker queue.
	BackendCPU = device.BackendCPU
	// BackendMetal targets Apple GPUs. Not available in this build.
	BackendMetal = device.BackendMetal
	// BackendCUDA targets NVIDIA GPUs. Not available in this build.
	BackendCUDA = device.BackendCUDA
)

// ParseBackend parses a backend name ("auto", "cpu", "metal", "cuda").
func ParseBackend(s string) (Backend, error) { return device.ParseBackend(s) }

// DeviceInfo describes the device a Context runs on.
type DeviceInfo = device.Info

// AuditVariant selects how pairwise similarities are aggregated.
type AuditVariant = audit.Variant

const (
	// AuditDensity scores the fraction of pairs above the audit threshold.
	AuditDensity = audit.Density
	// AuditMeanSimilarity scores the mean pairwise dot product.
	AuditMeanSimilarity = audit.MeanSimilarity
	// AuditConnectivity scores the algebraic connectivity of the graph of
	// pairs above the audit threshold.
	AuditConnectivity = audit.Connectivity
)

// ParseAuditVariant parses an audit variant name ("density", "mean",
// "connectivity").
func ParseAuditVariant(s string) (AuditVariant, error) { return audit.ParseVariant(s) }

// DefaultAuditThreshold is the pair similarity above which AuditDensity
// counts a pair as connected.
const DefaultAuditThreshold = audit.DefaultThreshold

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	backend          Backend
	workers          int
	deviceMemory     int64
	artifactStore    blobstore.BlobStore
	artifactIOLimit  int64
	normalize        bool
	auditVariant     AuditVariant
	auditThreshold   float32
}

// Option configures Open.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
//	logger := grainvdb.NewJSONLogger(slog.LevelDebug)
//	c, _ := grainvdb.Open(ctx, 128, "fold.gvk", grainvdb.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
//	metrics := &grainvdb.BasicMetricsCollector{}
//	c, _ := grainvdb.Open(ctx, 128, "fold.gvk", grainvdb.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithBackend selects the compute backend. Defaults to BackendAuto.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithWorkers sets the device queue width. Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithDeviceMemoryLimit caps the bytes the store may hold. Ingesting more
// fails with *ErrAllocation. Zero means unlimited.
func WithDeviceMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.deviceMemory = bytes
	}
}

// WithArtifactStore reads the kernel artifact from store instead of the
// local file system.
func WithArtifactStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.artifactStore = store
	}
}

// WithArtifactIOLimit throttles artifact reads to bytesPerSec.
func WithArtifactIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.artifactIOLimit = bytesPerSec
	}
}

// WithNormalize L2-normalizes ingested vectors and probes, so that scores
// are cosine similarities.
func WithNormalize(enabled bool) Option {
	return func(o *options) {
		o.normalize = enabled
	}
}

// WithAuditVariant selects the audit aggregate. Defaults to AuditDensity.
func WithAuditVariant(v AuditVariant) Option {
	return func(o *options) {
		o.auditVariant = v
	}
}

// WithAuditThreshold sets the connection threshold used by AuditDensity and
// AuditConnectivity.
func WithAuditThreshold(threshold float32) Option {
	return func(o *options) {
		o.auditThreshold = threshold
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		backend:          BackendAuto,
		auditVariant:     AuditDensity,
		auditThreshold:   DefaultAuditThreshold,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.artifactStore == nil {
		o.artifactStore = blobstore.NewLocalStore("")
	}
	return o
}

type resolveOptions struct {
	filter *roaring.Bitmap
}

// ResolveOption configures a single Resolve call.
type ResolveOption func(*resolveOptions)

// WithFilter restricts the result to rows whose index is in bm. Scores are
// still computed for every row.
func WithFilter(bm *roaring.Bitmap) ResolveOption {
	return func(o *resolveOptions) {
		o.filter = bm
	}
}
