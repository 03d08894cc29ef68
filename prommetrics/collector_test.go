package prommetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/chunkstore"
	"github.com/hupe1980/chunkstore/blobstore"
	"github.com/hupe1980/chunkstore/item"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.RecordAdd(time.Millisecond, nil)
	c.RecordAdd(time.Millisecond, errors.New("boom"))
	c.RecordFlush(10, 100, 400, time.Millisecond, nil)
	c.RecordRead(true, time.Microsecond, nil)
	c.RecordRead(false, time.Microsecond, nil)
	c.RecordEviction(400)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("add", "error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.flushedItems))
	assert.Equal(t, 100.0, testutil.ToFloat64(c.flushedBytes.WithLabelValues("stored")))
	assert.Equal(t, 400.0, testutil.ToFloat64(c.flushedBytes.WithLabelValues("raw")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheReads.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.evictions))
	assert.Equal(t, 400.0, testutil.ToFloat64(c.evictedBytes))
}

func TestCollector_WithWriterAndReader(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := New(reg)

	backend := chunkstore.Remote(blobstore.NewMemoryStore())
	w, err := chunkstore.NewWriter(ctx, backend, chunkstore.WithChunkSize(2), chunkstore.WithMetricsCollector(c))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, w.Add(ctx, uint64(i), item.Record{{Name: "n", Value: i}}))
	}
	_, err = w.Merge(ctx)
	require.NoError(t, err)

	r, err := chunkstore.OpenReader(ctx, backend, chunkstore.WithMetricsCollector(c))
	require.NoError(t, err)
	_, err = r.Read(ctx, chunkstore.ChunkedIndex{Index: 0, ChunkIndex: 0})
	require.NoError(t, err)

	assert.Equal(t, 5.0, testutil.ToFloat64(c.flushedItems))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.mergedChunks))

	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	require.Contains(t, byName, "chunkstore_operation_duration_seconds")
	assert.Equal(t, dto.MetricType_HISTOGRAM, byName["chunkstore_operation_duration_seconds"].GetType())

	var flushes uint64
	for _, m := range byName["chunkstore_operation_duration_seconds"].GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "operation" && l.GetValue() == "flush" {
				flushes = m.GetHistogram().GetSampleCount()
			}
		}
	}
	assert.Equal(t, uint64(3), flushes)
}
