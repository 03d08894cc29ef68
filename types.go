package chunkstore

import (
	"github.com/hupe1980/chunkstore/internal/cache"
	"github.com/hupe1980/chunkstore/internal/manifest"
)

type (
	// ChunkInfo describes one chunk file in a fragment or index.
	ChunkInfo = manifest.ChunkInfo
	// Fragment is the manifest a single writer produces at Done.
	Fragment = manifest.Fragment
	// Index is the merged manifest read by a Reader.
	Index = manifest.Index
	// DatasetConfig is the writer configuration recorded in manifests.
	DatasetConfig = manifest.Config
	// CacheStats is a snapshot of the reader cache counters.
	CacheStats = cache.Stats
)

// ChunkedIndex addresses one item: its logical dataset position and the
// chunk holding it.
type ChunkedIndex struct {
	Index      uint64
	ChunkIndex int
}

const (
	// IndexFileName is the name of the merged index of a dataset.
	IndexFileName = manifest.IndexFileName
)
