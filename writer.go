package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/chunkstore/blobstore"
	"github.com/hupe1980/chunkstore/compression"
	"github.com/hupe1980/chunkstore/internal/checkpoint"
	"github.com/hupe1980/chunkstore/internal/chunk"
	"github.com/hupe1980/chunkstore/internal/manifest"
	"github.com/hupe1980/chunkstore/item"
)

// Writer turns a stream of records, submitted in any order, into chunk files
// and a per-rank fragment.
//
// Items are ordered by their logical index. An item is appended to the active
// chunk once every smaller index has been appended; until then it waits in a
// pending set. Done appends whatever is still pending in ascending order.
//
// A Writer is not safe for concurrent use. Parallel producers use one Writer
// each, with distinct ranks, and Merge their fragments afterwards.
type Writer struct {
	backend     Backend
	store       blobstore.BlobStore
	opts        options
	logger      *Logger
	manifests   *manifest.Store
	checkpoints *checkpoint.Store
	compressor  compression.Compressor // nil stores raw chunks

	schema  item.Schema
	pending map[uint64][]byte
	next    uint64

	active      [][]byte
	activeIdx   []uint64
	activeBytes int64

	chunks  []ChunkInfo
	covered *roaring64.Bitmap

	sinceCheckpoint int
	checkpointing   bool

	closed   bool
	fragment *Fragment
}

// NewWriter creates a writer for the given backend.
//
// Exactly one of WithChunkSize and WithChunkBytes must be set. With
// WithResume the writer continues from the latest valid checkpoint of its
// rank; NextIndex and Covered then tell the caller what to submit again.
//
// Example:
//
//	w, err := chunkstore.NewWriter(ctx, chunkstore.Local("./data"),
//	    chunkstore.WithChunkBytesString("64MB"),
//	    chunkstore.WithCompression("zstd"),
//	)
//	for i, rec := range records {
//	    if err := w.Add(ctx, uint64(i), rec); err != nil { ... }
//	}
//	ix, err := w.Merge(ctx)
func NewWriter(ctx context.Context, backend Backend, opts ...Option) (*Writer, error) {
	if backend.store == nil {
		return nil, fmt.Errorf("%w: no backend", ErrInvalidConfig)
	}
	o := applyOptions(opts)

	if err := validateWriterOptions(&o); err != nil {
		return nil, err
	}

	w := &Writer{
		backend:       backend,
		store:         backend.store,
		opts:          o,
		logger:        o.logger.WithRank(o.rank),
		manifests:     manifest.NewStore(backend.store, o.codec),
		checkpoints:   checkpoint.NewStore(backend.store, o.codec),
		schema:        o.schema,
		pending:       make(map[uint64][]byte),
		covered:       roaring64.New(),
		checkpointing: o.resume || o.checkpointEvery > 0,
	}

	if o.compression != "" {
		c, err := o.compressors.Lookup(o.compression)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		w.compressor = c
	}

	if o.resume {
		if err := w.resume(ctx); err != nil {
			return nil, err
		}
	}

	return w, nil
}

func validateWriterOptions(o *options) error {
	if len(o.errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(o.errs...))
	}
	switch {
	case o.chunkSize < 0 || o.chunkBytes < 0:
		return fmt.Errorf("%w: chunk size and chunk bytes must not be negative", ErrInvalidConfig)
	case o.chunkSize > 0 && o.chunkBytes > 0:
		return fmt.Errorf("%w: chunk size and chunk bytes are mutually exclusive", ErrInvalidConfig)
	case o.chunkSize == 0 && o.chunkBytes == 0:
		return fmt.Errorf("%w: one of chunk size or chunk bytes is required", ErrInvalidConfig)
	}
	if o.rank < 0 {
		return fmt.Errorf("%w: negative rank %d", ErrInvalidConfig, o.rank)
	}
	if o.checkpointEvery < 0 || o.checkpointRetention < 0 {
		return fmt.Errorf("%w: checkpoint settings must not be negative", ErrInvalidConfig)
	}
	if o.schema != nil {
		if err := o.registry.Validate(o.schema); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Rank returns the producer rank of the writer.
func (w *Writer) Rank() int { return w.opts.rank }

// Schema returns the item schema, or nil if no item was added yet and none
// was configured.
func (w *Writer) Schema() item.Schema { return w.schema }

// NextIndex returns the smallest logical index that has not been appended to
// a chunk.
func (w *Writer) NextIndex() uint64 { return w.next }

// Covered reports whether logical index i is stored in a flushed chunk.
func (w *Writer) Covered(i uint64) bool { return w.covered.Contains(i) }

// Chunks returns the chunks flushed so far.
func (w *Writer) Chunks() []ChunkInfo {
	out := make([]ChunkInfo, len(w.chunks))
	copy(out, w.chunks)
	return out
}

// Pending returns the number of items waiting for a smaller index.
func (w *Writer) Pending() int { return len(w.pending) }

// Add encodes rec and submits it under the given logical index.
//
// Encoding errors, such as a value that does not match the schema, are
// returned here. Add may flush one or more chunks.
func (w *Writer) Add(ctx context.Context, index uint64, rec item.Record) (err error) {
	start := time.Now()
	defer func() {
		w.opts.metricsCollector.RecordAdd(time.Since(start), err)
	}()

	if w.closed {
		return ErrWriterClosed
	}
	if index < w.next || w.covered.Contains(index) {
		return fmt.Errorf("%w: %d", ErrIndexAlreadyWritten, index)
	}
	if _, ok := w.pending[index]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateIndex, index)
	}

	schema := w.schema
	if schema == nil {
		schema, err = w.opts.registry.InferSchema(rec)
		if err != nil {
			return fmt.Errorf("item %d: %w", index, err)
		}
	}
	data, err := item.Encode(w.opts.registry, schema, rec)
	if err != nil {
		return fmt.Errorf("item %d: %w", index, err)
	}
	w.schema = schema

	w.pending[index] = data
	return w.drain(ctx)
}

// drain appends the contiguous run of pending items starting at next.
func (w *Writer) drain(ctx context.Context) error {
	for {
		data, ok := w.pending[w.next]
		if !ok {
			return nil
		}
		if err := w.flushBefore(ctx, len(data)); err != nil {
			return err
		}
		delete(w.pending, w.next)
		w.push(w.next, data)
		w.next++
		if err := w.flushAfter(ctx); err != nil {
			return err
		}
	}
}

func (w *Writer) push(index uint64, data []byte) {
	w.active = append(w.active, data)
	w.activeIdx = append(w.activeIdx, index)
	w.activeBytes += int64(len(data))
}

// flushBefore applies the byte policy ahead of appending an item of size n.
// A full chunk left behind by a failed flush is retried here as well.
func (w *Writer) flushBefore(ctx context.Context, n int) error {
	if w.opts.chunkSize > 0 && len(w.active) >= w.opts.chunkSize {
		return w.flush(ctx)
	}
	if w.opts.chunkBytes > 0 && len(w.active) > 0 && w.activeBytes+int64(n) > w.opts.chunkBytes {
		return w.flush(ctx)
	}
	return nil
}

// flushAfter applies the count policy after appending an item.
func (w *Writer) flushAfter(ctx context.Context) error {
	if w.opts.chunkSize > 0 && len(w.active) >= w.opts.chunkSize {
		return w.flush(ctx)
	}
	return nil
}

// Flush writes the active chunk even if it is not full.
func (w *Writer) Flush(ctx context.Context) error {
	if w.closed {
		return ErrWriterClosed
	}
	return w.flush(ctx)
}

func (w *Writer) flush(ctx context.Context) (err error) {
	if len(w.active) == 0 {
		return nil
	}

	start := time.Now()
	seq := len(w.chunks)
	info := ChunkInfo{
		Rank:      w.opts.rank,
		Seq:       seq,
		ChunkSize: len(w.active),
		DataBytes: w.activeBytes,
	}
	defer func() {
		w.opts.metricsCollector.RecordFlush(info.ChunkSize, info.ChunkBytes, info.RawBytes, time.Since(start), err)
		w.logger.LogFlush(ctx, info, err)
	}()

	raw, err := chunk.Build(w.active)
	if err != nil {
		return err
	}
	info.RawBytes = int64(len(raw))
	info.Checksum = chunk.Checksum(raw)

	// A chunk larger than the whole limit reserves the limit.
	reserve := info.RawBytes
	if limit := w.opts.resources.MemoryLimit(); limit > 0 && reserve > limit {
		reserve = limit
	}
	if err := w.opts.resources.AcquireMemory(ctx, reserve); err != nil {
		return err
	}
	defer w.opts.resources.ReleaseMemory(reserve)

	payload := raw
	if w.compressor != nil {
		payload, err = w.compressor.Compress(raw)
		if err != nil {
			return fmt.Errorf("compress chunk %d: %w", seq, err)
		}
		info.Compression = w.compressor.Name()
	}
	info.ChunkBytes = int64(len(payload))
	info.Filename = chunk.FileName(w.opts.rank, seq, info.Compression)

	if err := w.opts.resources.AcquireIO(ctx, len(payload)); err != nil {
		return err
	}
	if err := w.store.Put(ctx, info.Filename, payload); err != nil {
		return fmt.Errorf("write %s: %w", info.Filename, err)
	}

	w.chunks = append(w.chunks, info)
	w.covered.AddMany(w.activeIdx)
	w.active = nil
	w.activeIdx = nil
	w.activeBytes = 0

	w.sinceCheckpoint++
	if every := w.opts.checkpointEvery; every > 0 && w.sinceCheckpoint >= every {
		if _, err := w.SaveCheckpoint(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) config() DatasetConfig {
	var comp string
	if w.compressor != nil {
		comp = w.compressor.Name()
	}
	return manifest.NewConfig(w.opts.chunkSize, w.opts.chunkBytes, comp, w.schema)
}

func (w *Writer) items() int64 {
	var n int64
	for _, c := range w.chunks {
		n += int64(c.ChunkSize)
	}
	return n
}

// Done appends all pending items in ascending logical-index order, flushes
// the final chunk and writes the fragment of this rank. The writer is closed
// afterwards. Calling Done again returns the same fragment.
func (w *Writer) Done(ctx context.Context) (frag *Fragment, err error) {
	if w.closed {
		return w.fragment, nil
	}

	gaps := len(w.pending)
	defer func() {
		w.logger.LogDone(ctx, len(w.chunks), w.items(), gaps, err)
	}()

	if len(w.pending) > 0 {
		keys := make([]uint64, 0, len(w.pending))
		for k := range w.pending {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			data := w.pending[k]
			if err := w.flushBefore(ctx, len(data)); err != nil {
				return nil, err
			}
			delete(w.pending, k)
			w.push(k, data)
			if k >= w.next {
				w.next = k + 1
			}
			if err := w.flushAfter(ctx); err != nil {
				return nil, err
			}
		}
	}
	if err := w.flush(ctx); err != nil {
		return nil, err
	}

	frag = &Fragment{
		Version: manifest.CurrentVersion,
		Rank:    w.opts.rank,
		Config:  w.config(),
		Chunks:  w.Chunks(),
		Done:    true,
	}
	if err := w.manifests.SaveFragment(ctx, frag); err != nil {
		return nil, err
	}
	w.closed = true
	w.fragment = frag

	if w.checkpointing {
		if _, err := w.SaveCheckpoint(ctx); err != nil {
			return nil, err
		}
	}
	return frag, nil
}

// Merge finishes the writer and merges every fragment on its backend into
// the global index. It is meant for single-producer datasets or for the last
// producer to finish.
func (w *Writer) Merge(ctx context.Context, opts ...Option) (*Index, error) {
	if _, err := w.Done(ctx); err != nil {
		return nil, err
	}
	merged := []Option{
		WithCodec(w.opts.codec),
		WithLogger(w.opts.logger),
		WithMetricsCollector(w.opts.metricsCollector),
	}
	if w.opts.expectedFragments > 0 {
		merged = append(merged, WithExpectedFragments(w.opts.expectedFragments))
	}
	return Merge(ctx, w.backend, append(merged, opts...)...)
}
