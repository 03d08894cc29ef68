package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hupe1980/chunkstore/blobstore"
	"github.com/hupe1980/chunkstore/internal/cache"
	"github.com/hupe1980/chunkstore/internal/chunk"
	"github.com/hupe1980/chunkstore/item"
	"github.com/hupe1980/chunkstore/resource"
	"golang.org/x/sync/errgroup"
)

// maxPrefetch bounds concurrent chunk loads of one Prefetch call.
const maxPrefetch = 8

// Reader serves random-access reads from a merged dataset.
//
// Decompressed chunks are kept in an LRU cache bounded by WithCacheBudget.
// A Reader is safe for concurrent use.
type Reader struct {
	store  blobstore.BlobStore
	opts   options
	logger *Logger
	index  *Index
	schema item.Schema

	// starts[i] is the first logical index of chunk i; starts[len(chunks)]
	// is the dataset length.
	starts []uint64
	cache  *cache.ChunkCache
}

// OpenReader loads index.json from the backend.
func OpenReader(ctx context.Context, backend Backend, opts ...Option) (*Reader, error) {
	if backend.store == nil {
		return nil, fmt.Errorf("%w: no backend", ErrInvalidConfig)
	}
	o := applyOptions(opts)
	if len(o.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(o.errs...))
	}
	if o.cacheBudget < 0 {
		return nil, fmt.Errorf("%w: negative cache budget", ErrInvalidConfig)
	}

	ix, err := LoadIndex(ctx, backend, WithCodec(o.codec))
	if err != nil {
		return nil, err
	}
	schema := ix.Config.Schema
	if o.schema != nil {
		schema = o.schema
	}
	if err := o.registry.Validate(schema); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	r := &Reader{
		store:  backend.store,
		opts:   o,
		logger: o.logger,
		index:  ix,
		schema: schema,
		starts: make([]uint64, len(ix.Chunks)+1),
		cache:  cache.New(o.cacheBudget, o.resources),
	}
	for i, c := range ix.Chunks {
		r.starts[i+1] = r.starts[i] + uint64(c.ChunkSize)
	}
	r.cache.OnEvict(func(key int, size int64) {
		o.metricsCollector.RecordEviction(size)
	})
	return r, nil
}

// Len returns the number of items in the dataset.
func (r *Reader) Len() uint64 { return r.starts[len(r.starts)-1] }

// Chunks returns the chunk table of the index.
func (r *Reader) Chunks() []ChunkInfo {
	out := make([]ChunkInfo, len(r.index.Chunks))
	copy(out, r.index.Chunks)
	return out
}

// Index returns the loaded index.
func (r *Reader) Index() *Index { return r.index }

// Schema returns the item schema of the dataset.
func (r *Reader) Schema() item.Schema { return r.schema }

// ChunkFor returns the address of a logical index.
func (r *Reader) ChunkFor(index uint64) (ChunkedIndex, error) {
	if index >= r.Len() {
		return ChunkedIndex{}, fmt.Errorf("%w: %d of %d items", ErrOutOfRange, index, r.Len())
	}
	// First chunk whose end is past index.
	ci := sort.Search(len(r.index.Chunks), func(i int) bool { return r.starts[i+1] > index })
	return ChunkedIndex{Index: index, ChunkIndex: ci}, nil
}

// Bounds returns the logical index range [start, end) of chunk ci.
func (r *Reader) Bounds(ci int) (start, end uint64, err error) {
	if ci < 0 || ci >= len(r.index.Chunks) {
		return 0, 0, fmt.Errorf("%w: chunk %d of %d", ErrOutOfRange, ci, len(r.index.Chunks))
	}
	return r.starts[ci], r.starts[ci+1], nil
}

// Read decodes the item at addr.
func (r *Reader) Read(ctx context.Context, addr ChunkedIndex) (item.Record, error) {
	data, _, err := r.read(ctx, addr)
	if err != nil {
		return nil, err
	}
	rec, err := item.Decode(r.opts.registry, r.schema, data)
	if err != nil {
		return nil, &ErrChunkCorrupted{Chunk: addr.ChunkIndex, Filename: r.index.Chunks[addr.ChunkIndex].Filename, cause: err}
	}
	return rec, nil
}

// ReadRaw returns the encoded bytes of the item at addr. The slice must not
// be modified.
func (r *Reader) ReadRaw(ctx context.Context, addr ChunkedIndex) ([]byte, error) {
	data, _, err := r.read(ctx, addr)
	return data, err
}

func (r *Reader) read(ctx context.Context, addr ChunkedIndex) (data []byte, hit bool, err error) {
	start := time.Now()
	defer func() {
		r.opts.metricsCollector.RecordRead(hit, time.Since(start), err)
	}()

	lo, hi, err := r.Bounds(addr.ChunkIndex)
	if err != nil {
		return nil, false, err
	}
	if addr.Index < lo || addr.Index >= hi {
		return nil, false, &ErrItemOutOfRange{Index: addr.Index, Chunk: addr.ChunkIndex, Start: lo, End: hi}
	}

	view, hit, err := r.cache.GetOrLoad(ctx, addr.ChunkIndex, func(ctx context.Context) (*chunk.View, error) {
		return r.load(ctx, addr.ChunkIndex)
	})
	if err != nil {
		return nil, hit, err
	}
	data, err = view.Item(int(addr.Index - lo))
	if err != nil {
		return nil, hit, &ErrChunkCorrupted{Chunk: addr.ChunkIndex, Filename: r.index.Chunks[addr.ChunkIndex].Filename, cause: err}
	}
	return data, hit, nil
}

// load reads, decompresses and verifies chunk ci.
func (r *Reader) load(ctx context.Context, ci int) (view *chunk.View, err error) {
	info := r.index.Chunks[ci]
	defer func() {
		var raw int64
		if view != nil {
			raw = int64(view.Size())
		}
		r.logger.LogRead(ctx, ci, info.Filename, raw, err)
	}()

	corrupted := func(cause error) error {
		return &ErrChunkCorrupted{Chunk: ci, Filename: info.Filename, cause: cause}
	}

	data, err := r.fetch(ctx, info)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, corrupted(err)
	}
	if int64(len(data)) != info.ChunkBytes {
		return nil, corrupted(fmt.Errorf("size %d, index records %d", len(data), info.ChunkBytes))
	}

	raw := data
	if info.Compression != "" {
		c, err := r.opts.compressors.Lookup(info.Compression)
		if err != nil {
			return nil, corrupted(err)
		}
		raw, err = c.Decompress(data, int(info.RawBytes))
		if err != nil {
			return nil, corrupted(err)
		}
	}
	if int64(len(raw)) != info.RawBytes {
		return nil, corrupted(fmt.Errorf("raw size %d, index records %d", len(raw), info.RawBytes))
	}
	if sum := chunk.Checksum(raw); sum != info.Checksum {
		return nil, corrupted(fmt.Errorf("checksum %s, index records %s", sum, info.Checksum))
	}

	view, err = chunk.Parse(raw)
	if err != nil {
		return nil, corrupted(err)
	}
	if view.Len() != info.ChunkSize {
		return nil, corrupted(fmt.Errorf("%d items, index records %d", view.Len(), info.ChunkSize))
	}
	return view, nil
}

func (r *Reader) fetch(ctx context.Context, info ChunkInfo) ([]byte, error) {
	b, err := r.store.Open(ctx, info.Filename)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	if !r.opts.resources.IOLimited() {
		return blobstore.ReadAll(ctx, b)
	}
	src := io.NewSectionReader(blobReaderAt{ctx: ctx, b: b}, 0, b.Size())
	return io.ReadAll(resource.NewRateLimitedReader(ctx, src, r.opts.resources))
}

// Prefetch loads the given chunks into the cache in the background slots of
// the resource controller. Prefetching is a hint: a chunk is skipped when no
// background slot is free, and a later Read loads it on demand. Prefetch
// returns the first load error.
func (r *Reader) Prefetch(ctx context.Context, chunks ...int) error {
	for _, ci := range chunks {
		if _, _, err := r.Bounds(ci); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPrefetch)
	for _, ci := range chunks {
		if r.cache.Contains(ci) {
			continue
		}
		if !r.opts.resources.TryAcquireBackground() {
			r.logger.DebugContext(ctx, "prefetch skipped", "chunk", ci, "reason", "background slots busy")
			continue
		}
		g.Go(func() error {
			defer r.opts.resources.ReleaseBackground()

			_, _, err := r.cache.GetOrLoad(gctx, ci, func(ctx context.Context) (*chunk.View, error) {
				return r.load(ctx, ci)
			})
			return err
		})
	}
	return g.Wait()
}

// Evict drops chunk ci from the cache and returns its memory. It is a no-op
// for chunks that are not cached.
func (r *Reader) Evict(ci int) {
	r.cache.Remove(ci)
}

// CacheStats returns a snapshot of the chunk cache counters.
func (r *Reader) CacheStats() CacheStats { return r.cache.Stats() }

// Close drops all cached chunks and returns their memory to the resource
// controller.
func (r *Reader) Close() error {
	r.cache.Purge()
	return nil
}

type blobReaderAt struct {
	ctx context.Context
	b   blobstore.Blob
}

func (a blobReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return a.b.ReadAt(a.ctx, p, off)
}
