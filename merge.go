package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hupe1980/chunkstore/internal/manifest"
)

// Merge combines the fragments of every producer on the backend into
// index.json and removes the consumed fragments.
//
// Fragments are ordered by rank; the chunks of each fragment keep their
// sequence order. Every fragment must be done and all of them must describe
// items of the same format. The new index replaces any existing one; it is
// built from the current fragments only. Merging again without new fragments
// returns the existing index.
//
// Between writing index.json and deleting the last fragment, Merge keeps a
// marker listing the consumed ranks. If a merge stops in that window, the
// next call takes the ranks named by the marker whose fragments are already
// gone from the existing index.
func Merge(ctx context.Context, backend Backend, opts ...Option) (ix *Index, err error) {
	if backend.store == nil {
		return nil, fmt.Errorf("%w: no backend", ErrInvalidConfig)
	}
	o := applyOptions(opts)
	ms := manifest.NewStore(backend.store, o.codec)

	start := time.Now()
	var fragments []*Fragment
	defer func() {
		chunks := 0
		var onDisk int64
		if ix != nil {
			chunks = len(ix.Chunks)
			onDisk, _ = ix.Bytes()
		}
		o.metricsCollector.RecordMerge(len(fragments), chunks, time.Since(start), err)
		o.logger.LogMerge(ctx, len(fragments), chunks, onDisk, err)
	}()

	fragments, err = ms.LoadFragments(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	marker, err := ms.LoadMergeMarker(ctx)
	if err != nil {
		return nil, translateError(err)
	}

	if len(fragments) == 0 {
		existing, err := LoadIndex(ctx, backend, WithCodec(o.codec))
		if errors.Is(err, ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: no fragments found", ErrIncompleteMerge)
		}
		if err != nil {
			return nil, err
		}
		if marker != nil {
			if err := ms.DeleteMergeMarker(ctx); err != nil {
				return existing, err
			}
		}
		return existing, nil
	}

	inputs := fragments
	if marker != nil {
		existing, err := ms.LoadIndex(ctx)
		if err != nil && !errors.Is(err, manifest.ErrNotFound) {
			return nil, translateError(err)
		}
		if existing != nil {
			inputs = append(inputs, carryOver(existing, fragments, marker.Ranks)...)
		}
	}
	if n := o.expectedFragments; n > 0 && len(inputs) != n {
		return nil, fmt.Errorf("%w: found %d fragments, expected %d", ErrIncompleteMerge, len(inputs), n)
	}

	ix, err = manifest.Merge(inputs)
	if err != nil {
		return nil, translateError(err)
	}
	if err := ms.SaveIndex(ctx, ix); err != nil {
		return nil, err
	}

	ranks := make([]int, len(inputs))
	for i, f := range inputs {
		ranks[i] = f.Rank
	}
	sort.Ints(ranks)
	if err := ms.SaveMergeMarker(ctx, ranks); err != nil {
		return ix, err
	}
	for _, f := range fragments {
		if err := ms.DeleteFragment(ctx, f.Rank); err != nil {
			return ix, fmt.Errorf("delete fragment %d: %w", f.Rank, err)
		}
	}
	if err := ms.DeleteMergeMarker(ctx); err != nil {
		return ix, err
	}
	return ix, nil
}

// carryOver rebuilds fragments for the ranks of an interrupted merge whose
// fragments were already deleted.
func carryOver(ix *Index, fragments []*Fragment, consumed []int) []*Fragment {
	wanted := make(map[int]bool, len(consumed))
	for _, rank := range consumed {
		wanted[rank] = true
	}
	for _, f := range fragments {
		delete(wanted, f.Rank)
	}

	var (
		out    []*Fragment
		byRank = make(map[int]*Fragment)
	)
	for _, c := range ix.Chunks {
		if !wanted[c.Rank] {
			continue
		}
		f, ok := byRank[c.Rank]
		if !ok {
			f = &Fragment{Version: manifest.CurrentVersion, Rank: c.Rank, Config: ix.Config, Done: true}
			byRank[c.Rank] = f
			out = append(out, f)
		}
		f.Chunks = append(f.Chunks, c)
	}
	// Producers that wrote nothing have no chunks in the index.
	for _, rank := range consumed {
		if wanted[rank] && byRank[rank] == nil {
			out = append(out, &Fragment{Version: manifest.CurrentVersion, Rank: rank, Config: ix.Config, Done: true})
		}
	}
	return out
}

// LoadIndex reads index.json from the backend.
func LoadIndex(ctx context.Context, backend Backend, opts ...Option) (*Index, error) {
	o := applyOptions(opts)
	ix, err := manifest.NewStore(backend.store, o.codec).LoadIndex(ctx)
	if errors.Is(err, manifest.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, backend)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return ix, nil
}
