package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/chunkstore/internal/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := context.Background()

	// 1. Put a blob
	blobName := "chunk-0-0.bin"
	data := []byte("hello world, this is a test blob for chunkstore")
	require.NoError(t, store.Put(ctx, blobName, data))

	_, err := os.Stat(filepath.Join(tmpDir, blobName))
	require.NoError(t, err)

	// 2. Open and ReadAt
	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	n, err = blob.ReadAt(ctx, make([]byte, 10), int64(len(data)-3))
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 3, n)
	require.NoError(t, blob.Close())

	// 3. Nested names and listing
	require.NoError(t, store.Put(ctx, "chunk-0-1.bin", []byte("x")))
	require.NoError(t, store.Put(ctx, ".checkpoints/checkpoint-0-000000.json", []byte("{}")))

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{".checkpoints/checkpoint-0-000000.json", "chunk-0-0.bin", "chunk-0-1.bin"}, all)

	ckpts, err := store.List(ctx, ".checkpoints/checkpoint-0-")
	require.NoError(t, err)
	require.Equal(t, []string{".checkpoints/checkpoint-0-000000.json"}, ckpts)

	chunks, err := store.List(ctx, "chunk-")
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	// 4. Delete, including a missing blob
	require.NoError(t, store.Delete(ctx, blobName))
	require.NoError(t, store.Delete(ctx, blobName))

	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalBlobStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "does-not-exist"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalBlobStore_ListSkipsTemporaryFiles(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "index.json.tmp"), []byte("partial"), 0o644))
	require.NoError(t, store.Put(context.Background(), "index.json", []byte("{}")))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"index.json"}, names)
}

func TestLocalBlobStore_PutFailureLeavesNoBlob(t *testing.T) {
	tmpDir := t.TempDir()
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("chunk-0-3", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	store := NewLocalStoreFS(tmpDir, ffs)

	err := store.Put(context.Background(), "chunk-0-3.bin", []byte("payload"))
	require.ErrorIs(t, err, fs.ErrInjected)

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestReadAll(t *testing.T) {
	ctx := context.Background()
	data := []byte("0123456789")

	stores := map[string]BlobStore{
		"local":  NewLocalStore(t.TempDir()),
		"memory": NewMemoryStore(),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "blob", data))
			require.NoError(t, store.Put(ctx, "empty", nil))

			got, err := Get(ctx, store, "blob")
			require.NoError(t, err)
			assert.Equal(t, data, got)

			got, err = Get(ctx, store, "empty")
			require.NoError(t, err)
			assert.Empty(t, got)

			_, err = Get(ctx, store, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLocalBlobStore_CanceledContext(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Put(ctx, "x", []byte("y")), context.Canceled)
	_, err := store.Open(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
