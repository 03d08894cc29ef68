package chunkstore

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package
// prommetrics provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordAdd is called after each Writer.Add.
	RecordAdd(duration time.Duration, err error)

	// RecordFlush is called after each chunk flush attempt.
	// diskBytes is the stored (possibly compressed) size, rawBytes the
	// decompressed size.
	RecordFlush(items int, diskBytes, rawBytes int64, duration time.Duration, err error)

	// RecordMerge is called after each merge.
	RecordMerge(fragments, chunks int, duration time.Duration, err error)

	// RecordRead is called after each Reader.Read.
	// cacheHit reports whether the chunk was already cached.
	RecordRead(cacheHit bool, duration time.Duration, err error)

	// RecordEviction is called for every chunk dropped from the reader cache.
	RecordEviction(bytes int64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)                      {}
func (NoopMetricsCollector) RecordFlush(int, int64, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordMerge(int, int, time.Duration, error)          {}
func (NoopMetricsCollector) RecordRead(bool, time.Duration, error)               {}
func (NoopMetricsCollector) RecordEviction(int64)                                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	AddCount        atomic.Int64
	AddErrors       atomic.Int64
	FlushCount      atomic.Int64
	FlushErrors     atomic.Int64
	FlushItems      atomic.Int64
	FlushDiskBytes  atomic.Int64
	FlushRawBytes   atomic.Int64
	FlushTotalNanos atomic.Int64
	MergeCount      atomic.Int64
	MergeErrors     atomic.Int64
	ReadCount       atomic.Int64
	ReadErrors      atomic.Int64
	ReadHits        atomic.Int64
	ReadTotalNanos  atomic.Int64
	Evictions       atomic.Int64
	EvictedBytes    atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(_ time.Duration, err error) {
	b.AddCount.Add(1)
	if err != nil {
		b.AddErrors.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(items int, diskBytes, rawBytes int64, duration time.Duration, err error) {
	if err != nil {
		b.FlushErrors.Add(1)
		return
	}
	b.FlushCount.Add(1)
	b.FlushItems.Add(int64(items))
	b.FlushDiskBytes.Add(diskBytes)
	b.FlushRawBytes.Add(rawBytes)
	b.FlushTotalNanos.Add(duration.Nanoseconds())
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(_, _ int, _ time.Duration, err error) {
	b.MergeCount.Add(1)
	if err != nil {
		b.MergeErrors.Add(1)
	}
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(cacheHit bool, duration time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ReadErrors.Add(1)
	}
	if cacheHit {
		b.ReadHits.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(bytes int64) {
	b.Evictions.Add(1)
	b.EvictedBytes.Add(bytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:       b.AddCount.Load(),
		AddErrors:      b.AddErrors.Load(),
		FlushCount:     b.FlushCount.Load(),
		FlushErrors:    b.FlushErrors.Load(),
		FlushItems:     b.FlushItems.Load(),
		FlushDiskBytes: b.FlushDiskBytes.Load(),
		FlushRawBytes:  b.FlushRawBytes.Load(),
		FlushAvgNanos:  avg(b.FlushTotalNanos.Load(), b.FlushCount.Load()),
		MergeCount:     b.MergeCount.Load(),
		MergeErrors:    b.MergeErrors.Load(),
		ReadCount:      b.ReadCount.Load(),
		ReadErrors:     b.ReadErrors.Load(),
		ReadHits:       b.ReadHits.Load(),
		ReadAvgNanos:   avg(b.ReadTotalNanos.Load(), b.ReadCount.Load()),
		Evictions:      b.Evictions.Load(),
		EvictedBytes:   b.EvictedBytes.Load(),
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
	AddCount       int64
	AddErrors      int64
	FlushCount     int64
	FlushErrors    int64
	FlushItems     int64
	FlushDiskBytes int64
	FlushRawBytes  int64
	FlushAvgNanos  int64
	MergeCount     int64
	MergeErrors    int64
	ReadCount      int64
	ReadErrors     int64
	ReadHits       int64
	ReadAvgNanos   int64
	Evictions      int64
	EvictedBytes   int64
}

// CompressionRatio returns raw bytes per stored byte across all flushes.
func (s BasicMetricsStats) CompressionRatio() float64 {
	if s.FlushDiskBytes == 0 {
		return 0
	}
	return float64(s.FlushRawBytes) / float64(s.FlushDiskBytes)
}
