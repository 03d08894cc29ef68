// Package checkpoint persists writer progress so that an interrupted producer
// can resume without rewriting flushed chunks.
//
// Checkpoints are immutable and numbered per rank:
//
//	.checkpoints/checkpoint-<rank>-<nnnnnn>.json
//
// A checkpoint only ever references chunks that were durably written before
// it was saved.
package checkpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/chunkstore/internal/manifest"
)

const (
	// Dir is the directory holding checkpoints.
	Dir = ".checkpoints"
	// CurrentVersion is the version of the checkpoint format.
	CurrentVersion = 1
)

var (
	// ErrNotFound is returned when a rank has no valid checkpoint.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrInvalid is returned when a checkpoint is unreadable or inconsistent.
	ErrInvalid = errors.New("invalid checkpoint")
)

// Checkpoint is a snapshot of one writer.
type Checkpoint struct {
	Version   int                  `json:"version"`
	ID        uint64               `json:"id"`
	Rank      int                  `json:"rank"`
	Seq       int                  `json:"seq"` // next chunk sequence number
	CreatedAt time.Time            `json:"created_at"`
	Config    manifest.Config      `json:"config"`
	Chunks    []manifest.ChunkInfo `json:"chunks"`
	NextIndex uint64               `json:"next_index"`
	Covered   []byte               `json:"covered"` // roaring64 bitmap of written logical indices
	Done      bool                 `json:"done"`
}

// FileName returns the checkpoint name for rank and id.
func FileName(rank int, id uint64) string {
	return fmt.Sprintf("%s/checkpoint-%d-%06d.json", Dir, rank, id)
}

// SetCovered serializes bm into the checkpoint.
func (c *Checkpoint) SetCovered(bm *roaring64.Bitmap) error {
	data, err := bm.MarshalBinary()
	if err != nil {
		return err
	}
	c.Covered = data
	return nil
}

// CoveredSet deserializes the covered bitmap.
func (c *Checkpoint) CoveredSet() (*roaring64.Bitmap, error) {
	bm := roaring64.New()
	if len(c.Covered) == 0 {
		return bm, nil
	}
	if err := bm.UnmarshalBinary(c.Covered); err != nil {
		return nil, fmt.Errorf("%w: covered set: %v", ErrInvalid, err)
	}
	return bm, nil
}

// Validate checks internal consistency.
func (c *Checkpoint) Validate(rank int) error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: version %d", ErrInvalid, c.Version)
	}
	if c.Rank != rank {
		return fmt.Errorf("%w: rank %d, want %d", ErrInvalid, c.Rank, rank)
	}
	if c.Seq != len(c.Chunks) {
		return fmt.Errorf("%w: seq %d with %d chunks", ErrInvalid, c.Seq, len(c.Chunks))
	}
	var items uint64
	for i, ch := range c.Chunks {
		if ch.Seq != i || ch.Rank != rank {
			return fmt.Errorf("%w: chunk %d is %d-%d", ErrInvalid, i, ch.Rank, ch.Seq)
		}
		items += uint64(ch.ChunkSize)
	}
	bm, err := c.CoveredSet()
	if err != nil {
		return err
	}
	if bm.GetCardinality() != items {
		return fmt.Errorf("%w: %d covered indices for %d items", ErrInvalid, bm.GetCardinality(), items)
	}
	return nil
}
