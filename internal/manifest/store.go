package manifest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hupe1980/chunkstore/blobstore"
	"github.com/hupe1980/chunkstore/codec"
	"golang.org/x/sync/errgroup"
)

// maxParallelLoads bounds concurrent fragment reads.
const maxParallelLoads = 16

// Store persists fragments and the global index in a blob store.
type Store struct {
	store blobstore.BlobStore
	codec codec.Codec
	mu    sync.Mutex
}

// NewStore creates a new manifest store. A nil codec selects codec.Default.
func NewStore(store blobstore.BlobStore, c codec.Codec) *Store {
	if c == nil {
		c = codec.Default
	}
	return &Store{store: store, codec: c}
}

func (s *Store) load(ctx context.Context, name string, v any) error {
	data, err := blobstore.Get(ctx, s.store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	if err := s.codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, name, err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, name string, v any) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return s.store.Put(ctx, name, data)
}

// SaveFragment atomically writes the fragment of f.Rank.
func (s *Store) SaveFragment(ctx context.Context, f *Fragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f.Version = CurrentVersion
	return s.save(ctx, FragmentFileName(f.Rank), f)
}

// LoadFragment reads the fragment of rank.
func (s *Store) LoadFragment(ctx context.Context, rank int) (*Fragment, error) {
	f := &Fragment{}
	if err := s.load(ctx, FragmentFileName(rank), f); err != nil {
		return nil, err
	}
	if f.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrIncompatibleVersion, f.Version)
	}
	if f.Rank != rank {
		return nil, fmt.Errorf("fragment %s claims rank %d", FragmentFileName(rank), f.Rank)
	}
	return f, nil
}

// ListFragments returns the ranks of all stored fragments, ascending.
func (s *Store) ListFragments(ctx context.Context) ([]int, error) {
	names, err := s.store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var ranks []int
	for _, name := range names {
		if strings.Contains(name, "/") || !strings.HasSuffix(name, FragmentSuffix) {
			continue
		}
		rank, err := strconv.Atoi(strings.TrimSuffix(name, FragmentSuffix))
		if err != nil || rank < 0 {
			continue
		}
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	return ranks, nil
}

// LoadFragments reads all stored fragments in parallel, sorted by rank.
func (s *Store) LoadFragments(ctx context.Context) ([]*Fragment, error) {
	ranks, err := s.ListFragments(ctx)
	if err != nil {
		return nil, err
	}

	fragments := make([]*Fragment, len(ranks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, rank := range ranks {
		g.Go(func() error {
			f, err := s.LoadFragment(gctx, rank)
			if err != nil {
				return fmt.Errorf("load fragment %d: %w", rank, err)
			}
			fragments[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fragments, nil
}

// DeleteFragment removes the fragment of rank.
func (s *Store) DeleteFragment(ctx context.Context, rank int) error {
	return s.store.Delete(ctx, FragmentFileName(rank))
}

// SaveIndex atomically writes the global index.
func (s *Store) SaveIndex(ctx context.Context, ix *Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ix.Version = CurrentVersion
	return s.save(ctx, IndexFileName, ix)
}

// LoadIndex reads the global index.
func (s *Store) LoadIndex(ctx context.Context) (*Index, error) {
	ix := &Index{}
	if err := s.load(ctx, IndexFileName, ix); err != nil {
		return nil, err
	}
	if ix.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: %d", ErrIncompatibleVersion, ix.Version)
	}
	if err := ix.Validate(); err != nil {
		return nil, err
	}
	return ix, nil
}

// SaveMergeMarker records the ranks consumed by the merge that wrote the
// current index.
func (s *Store) SaveMergeMarker(ctx context.Context, ranks []int) error {
	return s.save(ctx, MergeMarkerFileName, &MergeMarker{Version: CurrentVersion, Ranks: ranks})
}

// LoadMergeMarker returns the pending merge marker, or nil if there is none.
func (s *Store) LoadMergeMarker(ctx context.Context) (*MergeMarker, error) {
	m := &MergeMarker{}
	err := s.load(ctx, MergeMarkerFileName, m)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	case m.Version != CurrentVersion:
		return nil, fmt.Errorf("%w: %d", ErrIncompatibleVersion, m.Version)
	}
	return m, nil
}

// DeleteMergeMarker removes the pending merge marker.
func (s *Store) DeleteMergeMarker(ctx context.Context) error {
	return s.store.Delete(ctx, MergeMarkerFileName)
}
