// Package prommetrics exports chunkstore operations as Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	w, _ := chunkstore.NewWriter(ctx, backend,
//	    chunkstore.WithChunkSize(1000),
//	    chunkstore.WithMetricsCollector(prommetrics.New(reg)),
//	)
package prommetrics

import (
	"time"

	"github.com/hupe1980/chunkstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chunkstore"

var _ chunkstore.MetricsCollector = (*Collector)(nil)

// Collector implements chunkstore.MetricsCollector with Prometheus metrics.
type Collector struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec

	flushedItems prometheus.Counter
	flushedBytes *prometheus.CounterVec
	mergedChunks prometheus.Counter
	cacheReads   *prometheus.CounterVec
	evictions    prometheus.Counter
	evictedBytes prometheus.Counter
}

// New registers the chunkstore metrics on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		operations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of chunkstore operations",
			},
			[]string{"operation", "status"},
		),
		durations: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Chunkstore operation duration in seconds",
				Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		flushedItems: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_items_total",
			Help:      "Items written to chunk files",
		}),
		flushedBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flushed_bytes_total",
				Help:      "Chunk bytes written, stored and decompressed",
			},
			[]string{"kind"},
		),
		mergedChunks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merged_chunks_total",
			Help:      "Chunks listed by merged indexes",
		}),
		cacheReads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_reads_total",
				Help:      "Reader cache lookups",
			},
			[]string{"result"},
		),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Chunks evicted from the reader cache",
		}),
		evictedBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evicted_bytes_total",
			Help:      "Decompressed bytes evicted from the reader cache",
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	c.operations.WithLabelValues(op, status(err)).Inc()
	if err == nil {
		c.durations.WithLabelValues(op).Observe(d.Seconds())
	}
}

// RecordAdd implements chunkstore.MetricsCollector.
func (c *Collector) RecordAdd(d time.Duration, err error) {
	c.observe("add", d, err)
}

// RecordFlush implements chunkstore.MetricsCollector.
func (c *Collector) RecordFlush(items int, diskBytes, rawBytes int64, d time.Duration, err error) {
	c.observe("flush", d, err)
	if err != nil {
		return
	}
	c.flushedItems.Add(float64(items))
	c.flushedBytes.WithLabelValues("stored").Add(float64(diskBytes))
	c.flushedBytes.WithLabelValues("raw").Add(float64(rawBytes))
}

// RecordMerge implements chunkstore.MetricsCollector.
func (c *Collector) RecordMerge(_, chunks int, d time.Duration, err error) {
	c.observe("merge", d, err)
	if err == nil {
		c.mergedChunks.Add(float64(chunks))
	}
}

// RecordRead implements chunkstore.MetricsCollector.
func (c *Collector) RecordRead(cacheHit bool, d time.Duration, err error) {
	c.observe("read", d, err)
	if err != nil {
		return
	}
	if cacheHit {
		c.cacheReads.WithLabelValues("hit").Inc()
	} else {
		c.cacheReads.WithLabelValues("miss").Inc()
	}
}

// RecordEviction implements chunkstore.MetricsCollector.
func (c *Collector) RecordEviction(bytes int64) {
	c.evictions.Inc()
	c.evictedBytes.Add(float64(bytes))
}
