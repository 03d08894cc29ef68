package manifest

import (
	"fmt"
	"sort"
)

// Merge combines fragments into a global index. The input slice is not
// modified.
func Merge(fragments []*Fragment) (*Index, error) {
	if len(fragments) == 0 {
		return nil, ErrNoFragments
	}

	sorted := make([]*Fragment, len(fragments))
	copy(sorted, fragments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Rank < sorted[j].Rank })

	var (
		ix     = &Index{Version: CurrentVersion}
		format *Config
		total  int
	)
	for i, f := range sorted {
		if f.Version != CurrentVersion {
			return nil, fmt.Errorf("%w: fragment %d has version %d", ErrIncompatibleVersion, f.Rank, f.Version)
		}
		if i > 0 && sorted[i-1].Rank == f.Rank {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateRank, f.Rank)
		}
		if !f.Done {
			return nil, fmt.Errorf("%w: rank %d", ErrNotDone, f.Rank)
		}
		for seq, c := range f.Chunks {
			if c.Seq != seq || c.Rank != f.Rank {
				return nil, fmt.Errorf("%w: rank %d position %d holds chunk %d-%d", ErrSequenceGap, f.Rank, seq, c.Rank, c.Seq)
			}
		}
		// A producer that wrote nothing never learned the schema.
		if len(f.Chunks) == 0 {
			continue
		}
		if format == nil {
			format = &f.Config
		} else if !format.SameFormat(f.Config) {
			return nil, fmt.Errorf("%w: rank %d has %v, want %v", ErrFormatMismatch, f.Rank, f.Config.DataFormat, format.DataFormat)
		}
		total += len(f.Chunks)
	}

	if format != nil {
		ix.Config = *format
	} else {
		ix.Config = sorted[0].Config
	}
	ix.Chunks = make([]ChunkInfo, 0, total)
	for _, f := range sorted {
		ix.Chunks = append(ix.Chunks, f.Chunks...)
	}
	return ix, nil
}
