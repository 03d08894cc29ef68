package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/chunkstore"
	"github.com/hupe1980/chunkstore/item"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFragments(t *testing.T, dir string, ranks int) {
	t.Helper()
	ctx := context.Background()
	for rank := 0; rank < ranks; rank++ {
		w, err := chunkstore.NewWriter(ctx, chunkstore.Local(dir),
			chunkstore.WithChunkSize(4),
			chunkstore.WithRank(rank),
			chunkstore.WithCompression("zstd"),
		)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			rec := item.Record{{Name: "id", Value: rank*10 + i}, {Name: "label", Value: "x"}}
			require.NoError(t, w.Add(ctx, uint64(i), rec))
		}
		_, err = w.Done(ctx)
		require.NoError(t, err)
	}
}

func TestRun_MergeInspectVerify(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFragments(t, dir, 2)

	var out bytes.Buffer
	err := run(ctx, []string{"merge", "--expect", "3", dir}, &out)
	require.ErrorIs(t, err, chunkstore.ErrIncompleteMerge)

	out.Reset()
	require.NoError(t, run(ctx, []string{"merge", "--expect", "2", dir}, &out))
	assert.Contains(t, out.String(), "merged 6 chunks, 20 items")

	out.Reset()
	require.NoError(t, run(ctx, []string{"inspect", "--chunks", dir}, &out))
	var s summary
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &s))
	assert.Equal(t, int64(20), s.Items)
	assert.Equal(t, 6, s.Chunks)
	assert.Equal(t, []int{0, 1}, s.Ranks)
	assert.Equal(t, "id:int,label:str", s.Schema)
	assert.Equal(t, "zstd", s.Compression)
	require.Len(t, s.ChunkList, 6)
	assert.Equal(t, "chunk-1-2.zstd.bin", s.ChunkList[5].Filename)

	out.Reset()
	require.NoError(t, run(ctx, []string{"inspect", "-o", "json", dir}, &out))
	assert.Contains(t, out.String(), `"items": 20`)

	out.Reset()
	require.NoError(t, run(ctx, []string{"verify", "--cache", "1kb", dir}, &out))
	assert.Contains(t, out.String(), "verified 6 chunks, 20 items")
}

func TestRun_VerifyDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFragments(t, dir, 1)
	require.NoError(t, run(ctx, []string{"merge", dir}, &bytes.Buffer{}))

	path := filepath.Join(dir, "chunk-0-1.zstd.bin")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	var out bytes.Buffer
	err := run(ctx, []string{"verify", dir}, &out)
	require.ErrorIs(t, err, chunkstore.ErrCorrupted)
	assert.Contains(t, out.String(), "chunk-0-1.zstd.bin")
}

func TestRun_Usage(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, run(ctx, nil, &out))
	assert.Contains(t, out.String(), "Usage: chunkstore")

	assert.Error(t, run(ctx, []string{"compact"}, &out))
	assert.Error(t, run(ctx, []string{"inspect"}, &out))
	assert.Error(t, run(ctx, []string{"inspect", "--log-level", "loud", t.TempDir()}, &out))
	assert.ErrorIs(t, run(ctx, []string{"inspect", t.TempDir()}, &out), chunkstore.ErrIndexNotFound)
	assert.NoError(t, run(ctx, []string{"help"}, &out))
}
