package manifest

import (
	"fmt"

	"github.com/hupe1980/chunkstore/internal/chunk"

	"github.com/hupe1980/chunkstore/item"
)

const (
	// IndexFileName is the name of the global index.
	IndexFileName = "index.json"
	// FragmentSuffix follows the rank in fragment file names.
	FragmentSuffix = ".index.json"
	// MergeMarkerFileName records a merge whose fragment cleanup has not
	// finished.
	MergeMarkerFileName = "merge.pending.json"
	// CurrentVersion is the version of the document format.
	CurrentVersion = 1
)

// FragmentFileName returns the fragment name for rank.
func FragmentFileName(rank int) string {
	return fmt.Sprintf("%d%s", rank, FragmentSuffix)
}

// ChunkInfo describes one chunk file.
type ChunkInfo struct {
	Rank        int    `json:"rank"`
	Seq         int    `json:"seq"`
	Filename    string `json:"filename"`
	ChunkSize   int    `json:"chunk_size"`            // items
	ChunkBytes  int64  `json:"chunk_bytes"`           // on disk
	RawBytes    int64  `json:"raw_bytes"`             // decompressed
	DataBytes   int64  `json:"data_bytes"`            // sum of encoded items
	Compression string `json:"compression,omitempty"` // empty means stored raw
	Checksum    string `json:"checksum"`              // BLAKE3 of the decompressed chunk
}

// Config is the writer configuration recorded with every document.
type Config struct {
	ChunkSize   int         `json:"chunk_size,omitempty"`
	ChunkBytes  int64       `json:"chunk_bytes,omitempty"`
	Compression string      `json:"compression,omitempty"`
	DataFormat  []string    `json:"data_format"`
	Schema      item.Schema `json:"schema"`
}

// NewConfig records schema in both its named and kind-only forms.
func NewConfig(chunkSize int, chunkBytes int64, compression string, schema item.Schema) Config {
	return Config{
		ChunkSize:   chunkSize,
		ChunkBytes:  chunkBytes,
		Compression: compression,
		DataFormat:  schema.Kinds(),
		Schema:      schema,
	}
}

// SameFormat reports whether both configs describe identically shaped items.
func (c Config) SameFormat(other Config) bool {
	if len(c.DataFormat) != len(other.DataFormat) {
		return false
	}
	for i := range c.DataFormat {
		if c.DataFormat[i] != other.DataFormat[i] {
			return false
		}
	}
	return c.Schema.Equal(other.Schema)
}

// Fragment is the manifest written by a single producer.
type Fragment struct {
	Version int         `json:"version"`
	Rank    int         `json:"rank"`
	Config  Config      `json:"config"`
	Chunks  []ChunkInfo `json:"chunks"`
	Done    bool        `json:"done"`
}

// MergeMarker lists the ranks that the current index.json was built from.
// It exists only between SaveIndex and the deletion of the last consumed
// fragment.
type MergeMarker struct {
	Version int   `json:"version"`
	Ranks   []int `json:"ranks"`
}

// Index is the merged manifest of a dataset.
type Index struct {
	Version int         `json:"version"`
	Config  Config      `json:"config"`
	Chunks  []ChunkInfo `json:"chunks"`
}

// NumItems returns the number of items across all chunks.
func (ix *Index) NumItems() int64 {
	var n int64
	for _, c := range ix.Chunks {
		n += int64(c.ChunkSize)
	}
	return n
}

// Bytes returns the on-disk and decompressed totals of all chunks.
func (ix *Index) Bytes() (onDisk, raw int64) {
	for _, c := range ix.Chunks {
		onDisk += c.ChunkBytes
		raw += c.RawBytes
	}
	return onDisk, raw
}

// Validate checks that every chunk entry is self-consistent and that chunks
// are grouped by ascending rank with sequences 0..n-1.
func (ix *Index) Validate() error {
	for i, c := range ix.Chunks {
		bad := func(format string, args ...any) error {
			return fmt.Errorf("%w: chunk %d (%q): %s", ErrInvalidIndex, i, c.Filename, fmt.Sprintf(format, args...))
		}
		switch {
		case c.Filename == "":
			return bad("empty filename")
		case c.ChunkSize <= 0:
			return bad("chunk_size %d", c.ChunkSize)
		case c.ChunkBytes < 0, c.DataBytes < 0:
			return bad("chunk_bytes %d, data_bytes %d", c.ChunkBytes, c.DataBytes)
		case c.RawBytes != chunk.Size(c.ChunkSize, c.DataBytes):
			return bad("raw_bytes %d for %d items of %d bytes", c.RawBytes, c.ChunkSize, c.DataBytes)
		case c.Compression == "" && c.ChunkBytes != c.RawBytes:
			return bad("uncompressed chunk_bytes %d, raw_bytes %d", c.ChunkBytes, c.RawBytes)
		case c.Rank < 0:
			return bad("rank %d", c.Rank)
		}

		if i == 0 || c.Rank != ix.Chunks[i-1].Rank {
			if i > 0 && c.Rank < ix.Chunks[i-1].Rank {
				return bad("rank %d after rank %d", c.Rank, ix.Chunks[i-1].Rank)
			}
			if c.Seq != 0 {
				return bad("rank %d starts at seq %d", c.Rank, c.Seq)
			}
		} else if c.Seq != ix.Chunks[i-1].Seq+1 {
			return bad("seq %d follows seq %d", c.Seq, ix.Chunks[i-1].Seq)
		}
	}
	return nil
}
