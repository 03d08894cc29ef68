package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/chunkstore/blobstore"
	"github.com/hupe1980/chunkstore/codec"
)

// Store reads and writes checkpoints in a blob store.
type Store struct {
	store blobstore.BlobStore
	codec codec.Codec
}

// NewStore creates a checkpoint store. A nil codec selects codec.Default.
func NewStore(store blobstore.BlobStore, c codec.Codec) *Store {
	if c == nil {
		c = codec.Default
	}
	return &Store{store: store, codec: c}
}

func prefix(rank int) string {
	return fmt.Sprintf("%s/checkpoint-%d-", Dir, rank)
}

// List returns the ids of all checkpoints of rank, ascending.
func (s *Store) List(ctx context.Context, rank int) ([]uint64, error) {
	p := prefix(rank)
	names, err := s.store.List(ctx, p)
	if err != nil {
		return nil, err
	}
	var ids []uint64
	for _, name := range names {
		rest := strings.TrimSuffix(strings.TrimPrefix(name, p), ".json")
		id, err := strconv.ParseUint(rest, 10, 64)
		if err != nil {
			// "checkpoint-1-" is also a prefix of "checkpoint-12-...".
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Save writes c under the next free id and returns its name. ID, Version and
// CreatedAt are filled in.
func (s *Store) Save(ctx context.Context, c *Checkpoint) (string, error) {
	ids, err := s.List(ctx, c.Rank)
	if err != nil {
		return "", err
	}
	c.ID = 0
	if len(ids) > 0 {
		c.ID = ids[len(ids)-1] + 1
	}
	c.Version = CurrentVersion
	c.CreatedAt = time.Now().UTC()

	data, err := s.codec.Marshal(c)
	if err != nil {
		return "", err
	}
	name := FileName(c.Rank, c.ID)
	if err := s.store.Put(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// Load reads and validates one checkpoint.
func (s *Store) Load(ctx context.Context, rank int, id uint64) (*Checkpoint, error) {
	name := FileName(rank, id)
	data, err := blobstore.Get(ctx, s.store, name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	c := &Checkpoint{}
	if err := s.codec.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	if err := c.Validate(rank); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

// Latest returns the newest valid checkpoint of rank. Invalid newer
// checkpoints are reported to onSkip (if set) and passed over.
func (s *Store) Latest(ctx context.Context, rank int, onSkip func(name string, err error)) (*Checkpoint, error) {
	ids, err := s.List(ctx, rank)
	if err != nil {
		return nil, err
	}
	for i := len(ids) - 1; i >= 0; i-- {
		c, err := s.Load(ctx, rank, ids[i])
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrInvalid) {
			return nil, err
		}
		if onSkip != nil {
			onSkip(FileName(rank, ids[i]), err)
		}
	}
	return nil, fmt.Errorf("%w: rank %d", ErrNotFound, rank)
}

// Prune deletes all but the newest keep checkpoints of rank and returns the
// number removed. keep <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, rank, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	ids, err := s.List(ctx, rank)
	if err != nil {
		return 0, err
	}
	if len(ids) <= keep {
		return 0, nil
	}
	removed := 0
	for _, id := range ids[:len(ids)-keep] {
		if err := s.store.Delete(ctx, FileName(rank, id)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
