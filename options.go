package chunkstore

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/chunkstore/blobstore"
	"github.com/hupe1980/chunkstore/codec"
	"github.com/hupe1980/chunkstore/compression"
	"github.com/hupe1980/chunkstore/item"
	"github.com/hupe1980/chunkstore/resource"
)

// Backend identifies where a dataset lives.
type Backend struct {
	store blobstore.BlobStore
	desc  string
}

// Local returns a backend rooted at a local directory.
// The directory is created on the first write.
func Local(dir string) Backend {
	return Backend{store: blobstore.NewLocalStore(dir), desc: dir}
}

// Remote returns a backend on top of any BlobStore, for example an S3 or
// MinIO store.
func Remote(store blobstore.BlobStore) Backend {
	return Backend{store: store, desc: fmt.Sprintf("%T", store)}
}

// Store returns the underlying blob store.
func (b Backend) Store() blobstore.BlobStore { return b.store }

func (b Backend) String() string { return b.desc }

type options struct {
	chunkSize  int
	chunkBytes int64

	compression string
	compressors *compression.Registry

	schema   item.Schema
	registry *item.Registry

	rank                int
	resume              bool
	checkpointEvery     int
	checkpointRetention int
	expectedFragments   int

	cacheBudget int64

	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	resources        *resource.Controller

	errs []error
}

// Option configures writers, readers and merges. Options that do not apply to
// an operation are ignored by it.
type Option func(*options)

// WithChunkSize flushes a chunk as soon as it holds n items.
func WithChunkSize(n int) Option {
	return func(o *options) {
		o.chunkSize = n
	}
}

// WithChunkBytes flushes a chunk before it would exceed n bytes of encoded
// items. An item larger than n is written as a chunk of its own.
func WithChunkBytes(n int64) Option {
	return func(o *options) {
		o.chunkBytes = n
	}
}

// WithChunkBytesString is WithChunkBytes with a human readable size such as
// "64MB". See ParseSize.
func WithChunkBytesString(s string) Option {
	return func(o *options) {
		n, err := ParseSize(s)
		if err != nil {
			o.errs = append(o.errs, fmt.Errorf("chunk bytes: %w", err))
			return
		}
		o.chunkBytes = n
	}
}

// WithCompression compresses every chunk with the named compressor
// ("zstd", "lz4", "snappy"). An empty name stores chunks raw.
func WithCompression(name string) Option {
	return func(o *options) {
		o.compression = name
	}
}

// WithCompressors replaces the registry compressors are looked up in.
// Readers use it to decompress chunks as well.
func WithCompressors(r *compression.Registry) Option {
	return func(o *options) {
		o.compressors = r
	}
}

// WithSchema fixes the item schema. Without it the schema is inferred from
// the first item added.
func WithSchema(s item.Schema) Option {
	return func(o *options) {
		o.schema = s
	}
}

// WithRegistry sets the field codec registry, for datasets that use
// extension kinds.
func WithRegistry(r *item.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithRank sets the producer rank. Every concurrent producer of a dataset
// needs a distinct rank.
func WithRank(rank int) Option {
	return func(o *options) {
		o.rank = rank
	}
}

// WithResume restores the writer from the latest valid checkpoint of its
// rank, if there is one.
func WithResume() Option {
	return func(o *options) {
		o.resume = true
	}
}

// WithCheckpointEvery saves a checkpoint after every n flushed chunks.
func WithCheckpointEvery(n int) Option {
	return func(o *options) {
		o.checkpointEvery = n
	}
}

// WithCheckpointRetention keeps only the newest k checkpoints of the rank.
// Zero keeps all of them.
func WithCheckpointRetention(k int) Option {
	return func(o *options) {
		o.checkpointRetention = k
	}
}

// WithExpectedFragments makes Merge fail unless exactly n fragments are present.
func WithExpectedFragments(n int) Option {
	return func(o *options) {
		o.expectedFragments = n
	}
}

// WithCacheBudget bounds the bytes of decompressed chunks a Reader keeps.
// Zero means unbounded.
func WithCacheBudget(bytes int64) Option {
	return func(o *options) {
		o.cacheBudget = bytes
	}
}

// WithCacheBudgetString is WithCacheBudget with a human readable size.
func WithCacheBudgetString(s string) Option {
	return func(o *options) {
		n, err := ParseSize(s)
		if err != nil {
			o.errs = append(o.errs, fmt.Errorf("cache budget: %w", err))
			return
		}
		o.cacheBudget = n
	}
}

// WithResourceController shares a memory budget, IO rate limit and
// background worker pool between writers and readers.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithCodec configures the codec used for index, fragment and checkpoint
// documents.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &chunkstore.BasicMetricsCollector{}
//	w, _ := chunkstore.NewWriter(ctx, chunkstore.Local(dir), chunkstore.WithChunkSize(1000), chunkstore.WithMetricsCollector(metrics))
//	// ... add items ...
//	stats := metrics.GetStats()
//	fmt.Printf("Chunks: %d, ratio: %.2f\n", stats.FlushCount, stats.CompressionRatio())
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(opts []Option) options {
	o := options{
		compressors:      compression.Default,
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.registry == nil {
		o.registry = item.DefaultRegistry()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.compressors == nil {
		o.compressors = compression.NewRegistry()
	}
	return o
}
