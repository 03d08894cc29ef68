package chunkstore

import (
	"context"
	"testing"

	"github.com/hupe1980/chunkstore/internal/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpoint_ResumeMatchesUninterruptedRun(t *testing.T) {
	ctx := context.Background()
	opts := []Option{WithChunkSize(2), WithCheckpointEvery(1), WithCompression("lz4")}

	_, reference := memoryBackend()
	want := buildDataset(t, reference, 10, opts...)

	store, backend := memoryBackend()
	w, err := NewWriter(ctx, backend, opts...)
	require.NoError(t, err)
	writeRange(t, w, 0, 7) // chunks 0-2 flushed, item 6 active
	// The process dies here: no Done, no fragment.

	names, err := store.List(ctx, checkpoint.Dir)
	require.NoError(t, err)
	assert.Len(t, names, 3)

	resumed, err := NewWriter(ctx, backend, append(opts, WithResume())...)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), resumed.NextIndex())
	assert.True(t, resumed.Covered(5))
	assert.False(t, resumed.Covered(6))
	assert.Len(t, resumed.Chunks(), 3)
	assert.Equal(t, w.Schema(), resumed.Schema())

	assert.ErrorIs(t, resumed.Add(ctx, 5, triple(5)), ErrIndexAlreadyWritten)
	writeRange(t, resumed, 6, 10)
	got, err := resumed.Merge(ctx)
	require.NoError(t, err)

	assert.Equal(t, want.Chunks, got.Chunks)
	assert.Equal(t, checksums(want), checksums(got))
}

func TestCheckpoint_ResumeWithoutCheckpoint(t *testing.T) {
	ctx := context.Background()
	_, backend := memoryBackend()

	w, err := NewWriter(ctx, backend, WithChunkSize(2), WithResume())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), w.NextIndex())
	assert.Empty(t, w.Chunks())
}

func TestCheckpoint_ManualSave(t *testing.T) {
	ctx := context.Background()
	_, backend := memoryBackend()

	w, err := NewWriter(ctx, backend, WithChunkSize(3))
	require.NoError(t, err)
	writeRange(t, w, 0, 4)

	name, err := w.SaveCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, checkpoint.FileName(0, 0), name)

	resumed, err := NewWriter(ctx, backend, WithChunkSize(3), WithResume())
	require.NoError(t, err)
	// Item 3 was only in the active chunk.
	assert.Equal(t, uint64(3), resumed.NextIndex())
	assert.Len(t, resumed.Chunks(), 1)
}

func TestCheckpoint_SkipsCorruptNewest(t *testing.T) {
	ctx := context.Background()
	store, backend := memoryBackend()

	w, err := NewWriter(ctx, backend, WithChunkSize(2), WithCheckpointEvery(1))
	require.NoError(t, err)
	writeRange(t, w, 0, 6) // checkpoints 0, 1, 2

	require.NoError(t, store.Put(ctx, checkpoint.FileName(0, 3), []byte("{not json")))

	resumed, err := NewWriter(ctx, backend, WithChunkSize(2), WithResume())
	require.NoError(t, err)
	assert.Equal(t, uint64(6), resumed.NextIndex())
	assert.Len(t, resumed.Chunks(), 3)
}

func TestCheckpoint_MissingChunk(t *testing.T) {
	ctx := context.Background()
	store, backend := memoryBackend()

	w, err := NewWriter(ctx, backend, WithChunkSize(2), WithCheckpointEvery(1))
	require.NoError(t, err)
	writeRange(t, w, 0, 6)

	require.NoError(t, store.Delete(ctx, "chunk-0-1.bin"))

	_, err = NewWriter(ctx, backend, WithChunkSize(2), WithResume())
	require.ErrorIs(t, err, ErrResumeInconsistent)
}

func TestCheckpoint_TruncatedChunk(t *testing.T) {
	ctx := context.Background()
	store, backend := memoryBackend()

	w, err := NewWriter(ctx, backend, WithChunkSize(2), WithCheckpointEvery(1))
	require.NoError(t, err)
	writeRange(t, w, 0, 4)

	require.NoError(t, store.Put(ctx, "chunk-0-0.bin", []byte("short")))

	_, err = NewWriter(ctx, backend, WithChunkSize(2), WithResume())
	require.ErrorIs(t, err, ErrResumeInconsistent)
}

func TestCheckpoint_ConfigMismatch(t *testing.T) {
	ctx := context.Background()
	_, backend := memoryBackend()

	w, err := NewWriter(ctx, backend, WithChunkSize(2), WithCheckpointEvery(1))
	require.NoError(t, err)
	writeRange(t, w, 0, 4)

	_, err = NewWriter(ctx, backend, WithChunkSize(3), WithResume())
	assert.ErrorIs(t, err, ErrResumeInconsistent)

	_, err = NewWriter(ctx, backend, WithChunkSize(2), WithCompression("zstd"), WithResume())
	assert.ErrorIs(t, err, ErrResumeInconsistent)

	// Another rank has nothing to resume.
	other, err := NewWriter(ctx, backend, WithChunkSize(3), WithRank(1), WithResume())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), other.NextIndex())
}

func TestCheckpoint_ResumeAfterDone(t *testing.T) {
	ctx := context.Background()
	store, backend := memoryBackend()

	w, err := NewWriter(ctx, backend, WithChunkSize(2), WithCheckpointEvery(5))
	require.NoError(t, err)
	writeRange(t, w, 0, 5)
	want, err := w.Done(ctx)
	require.NoError(t, err)

	// Lose the fragment.
	require.NoError(t, store.Delete(ctx, "0.index.json"))

	resumed, err := NewWriter(ctx, backend, WithChunkSize(2), WithResume())
	require.NoError(t, err)
	assert.ErrorIs(t, resumed.Add(ctx, 5, triple(5)), ErrWriterClosed)

	got, err := resumed.Done(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Chunks, got.Chunks)

	ix, err := Merge(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, int64(5), ix.NumItems())
}

func TestCheckpoint_Retention(t *testing.T) {
	ctx := context.Background()
	store, backend := memoryBackend()

	w, err := NewWriter(ctx, backend, WithChunkSize(1), WithCheckpointEvery(1), WithCheckpointRetention(2))
	require.NoError(t, err)
	writeRange(t, w, 0, 6)

	names, err := store.List(ctx, checkpoint.Dir)
	require.NoError(t, err)
	assert.Equal(t, []string{checkpoint.FileName(0, 4), checkpoint.FileName(0, 5)}, names)
}
