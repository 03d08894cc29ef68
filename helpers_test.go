package chunkstore

import (
	"context"
	"testing"

	"github.com/hupe1980/chunkstore/blobstore"
	"github.com/hupe1980/chunkstore/item"
	"github.com/stretchr/testify/require"
)

// triple encodes to 40 bytes: 4 count + 3*4 lengths + 3*8 payloads.
func triple(i int) item.Record {
	return item.Record{
		{Name: "a", Value: int64(i)},
		{Name: "b", Value: int64(2 * i)},
		{Name: "c", Value: int64(-i)},
	}
}

const tripleSize = 40

func memoryBackend() (*blobstore.MemoryStore, Backend) {
	store := blobstore.NewMemoryStore()
	return store, Remote(store)
}

func writeRange(t *testing.T, w *Writer, from, to int) {
	t.Helper()
	ctx := context.Background()
	for i := from; i < to; i++ {
		require.NoError(t, w.Add(ctx, uint64(i), triple(i)))
	}
}

func buildDataset(t *testing.T, backend Backend, n int, opts ...Option) *Index {
	t.Helper()
	ctx := context.Background()
	w, err := NewWriter(ctx, backend, opts...)
	require.NoError(t, err)
	writeRange(t, w, 0, n)
	ix, err := w.Merge(ctx)
	require.NoError(t, err)
	return ix
}

func readEverything(t *testing.T, r *Reader) []item.Record {
	t.Helper()
	ctx := context.Background()
	out := make([]item.Record, 0, r.Len())
	for i := uint64(0); i < r.Len(); i++ {
		addr, err := r.ChunkFor(i)
		require.NoError(t, err)
		rec, err := r.Read(ctx, addr)
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func checksums(ix *Index) []string {
	out := make([]string, len(ix.Chunks))
	for i, c := range ix.Chunks {
		out[i] = c.Checksum
	}
	return out
}
