package chunkstore

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WriterLifecycle(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, backend := memoryBackend()
	buildDataset(t, backend, 4, WithChunkSize(2), WithRank(1), WithLogger(logger))

	out := buf.String()
	assert.Contains(t, out, `"msg":"chunk flushed"`)
	assert.Contains(t, out, `"filename":"chunk-1-0.bin"`)
	assert.Contains(t, out, `"rank":1`)
	assert.Contains(t, out, `"msg":"writer done"`)
	assert.Contains(t, out, `"msg":"merge completed"`)
}

func TestLogger_Gaps(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx := context.Background()
	_, backend := memoryBackend()
	w, err := NewWriter(ctx, backend, WithChunkSize(2), WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, w.Add(ctx, 3, triple(3)))
	_, err = w.Done(ctx)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "writer done with gaps")
	assert.NotContains(t, buf.String(), "chunk flushed")
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
