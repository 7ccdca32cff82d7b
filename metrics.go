package grainvdb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordIngest is called after each ingest. count is the number of
	// vectors offered, err is nil if the store was replaced.
	RecordIngest(count int, duration time.Duration, err error)

	// RecordResolve is called after each resolve. latency is the device
	// dispatch time reported in the result, duration the whole call.
	RecordResolve(k int, latency, duration time.Duration, err error)

	// RecordAudit is called after each audit.
	RecordAudit(count int, duration time.Duration, err error)

	// RecordGluingEnergy is called after each gluing energy computation.
	// count is the total number of indices in both neighbourhoods.
	RecordGluingEnergy(count int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIngest(int, time.Duration, error)                 {}
func (NoopMetricsCollector) RecordResolve(int, time.Duration, time.Duration, error) {}
func (NoopMetricsCollector) RecordAudit(int, time.Duration, error)                  {}
func (NoopMetricsCollector) RecordGluingEnergy(int, time.Duration, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	IngestCount        atomic.Int64
	IngestErrors       atomic.Int64
	IngestVectors      atomic.Int64
	IngestTotalNanos   atomic.Int64
	ResolveCount       atomic.Int64
	ResolveErrors      atomic.Int64
	ResolveTotalNanos  atomic.Int64
	DispatchTotalNanos atomic.Int64
	AuditCount         atomic.Int64
	AuditErrors        atomic.Int64
	AuditTotalNanos    atomic.Int64
	GluingCount        atomic.Int64
	GluingErrors       atomic.Int64
	GluingTotalNanos   atomic.Int64
}

// RecordIngest implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIngest(count int, duration time.Duration, err error) {
	b.IngestCount.Add(1)
	b.IngestTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.IngestErrors.Add(1)
		return
	}
	b.IngestVectors.Add(int64(count))
}

// RecordResolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResolve(_ int, latency, duration time.Duration, err error) {
	b.ResolveCount.Add(1)
	b.ResolveTotalNanos.Add(duration.Nanoseconds())
	b.DispatchTotalNanos.Add(latency.Nanoseconds())
	if err != nil {
		b.ResolveErrors.Add(1)
	}
}

// RecordAudit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAudit(_ int, duration time.Duration, err error) {
	b.AuditCount.Add(1)
	b.AuditTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AuditErrors.Add(1)
	}
}

// RecordGluingEnergy implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGluingEnergy(_ int, duration time.Duration, err error) {
	b.GluingCount.Add(1)
	b.GluingTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.GluingErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	resolves := b.ResolveCount.Load()
	return BasicMetricsStats{
		IngestCount:      b.IngestCount.Load(),
		IngestErrors:     b.IngestErrors.Load(),
		IngestVectors:    b.IngestVectors.Load(),
		IngestAvgNanos:   avg(b.IngestTotalNanos.Load(), b.IngestCount.Load()),
		ResolveCount:     resolves,
		ResolveErrors:    b.ResolveErrors.Load(),
		ResolveAvgNanos:  avg(b.ResolveTotalNanos.Load(), resolves),
		DispatchAvgNanos: avg(b.DispatchTotalNanos.Load(), resolves),
		AuditCount:       b.AuditCount.Load(),
		AuditErrors:      b.AuditErrors.Load(),
		AuditAvgNanos:    avg(b.AuditTotalNanos.Load(), b.AuditCount.Load()),
		GluingCount:      b.GluingCount.Load(),
		GluingErrors:     b.GluingErrors.Load(),
		GluingAvgNanos:   avg(b.GluingTotalNanos.Load(), b.GluingCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	IngestCount      int64
	IngestErrors     int64
	IngestVectors    int64
	IngestAvgNanos   int64
	ResolveCount     int64
	ResolveErrors    int64
	ResolveAvgNanos  int64
	DispatchAvgNanos int64
	AuditCount       int64
	AuditErrors      int64
	AuditAvgNanos    int64
	GluingCount      int64
	GluingErrors     int64
	GluingAvgNanos   int64
}
