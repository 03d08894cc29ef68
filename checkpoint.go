package chunkstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/chunkstore/blobstore"
	"github.com/hupe1980/chunkstore/internal/checkpoint"
)

// SaveCheckpoint persists the flushed state of the writer and returns the
// checkpoint file name. Items in the active chunk or still pending are not
// part of it; after a resume they must be submitted again.
func (w *Writer) SaveCheckpoint(ctx context.Context) (name string, err error) {
	defer func() {
		w.logger.LogCheckpoint(ctx, name, len(w.chunks), err)
	}()

	cp := &checkpoint.Checkpoint{
		Rank:      w.opts.rank,
		Seq:       len(w.chunks),
		Config:    w.config(),
		Chunks:    w.Chunks(),
		NextIndex: w.checkpointNext(),
		Done:      w.closed,
	}
	if err := cp.SetCovered(w.covered); err != nil {
		return "", err
	}

	name, err = w.checkpoints.Save(ctx, cp)
	if err != nil {
		return "", err
	}
	w.sinceCheckpoint = 0
	w.checkpointing = true

	if keep := w.opts.checkpointRetention; keep > 0 {
		if _, err := w.checkpoints.Prune(ctx, w.opts.rank, keep); err != nil {
			w.logger.WarnContext(ctx, "checkpoint pruning failed", "error", err)
		}
	}
	return name, nil
}

// checkpointNext is the first index a resumed writer expects. Before Done the
// active chunk holds exactly the indices [next-len(active), next).
func (w *Writer) checkpointNext() uint64 {
	if !w.closed {
		return w.next - uint64(len(w.active))
	}
	if w.covered.IsEmpty() {
		return 0
	}
	return w.covered.Maximum() + 1
}

func (w *Writer) resume(ctx context.Context) error {
	rank := w.opts.rank
	cp, err := w.checkpoints.Latest(ctx, rank, func(name string, err error) {
		w.logger.WarnContext(ctx, "skipping invalid checkpoint", "filename", name, "error", err)
	})
	if errors.Is(err, checkpoint.ErrNotFound) {
		w.logger.InfoContext(ctx, "no checkpoint to resume from, starting fresh")
		return nil
	}
	if err != nil {
		return translateError(err)
	}

	if err := w.compatible(cp); err != nil {
		return err
	}
	for _, c := range cp.Chunks {
		if err := w.verifyChunk(ctx, c); err != nil {
			return err
		}
	}

	covered, err := cp.CoveredSet()
	if err != nil {
		return translateError(err)
	}

	w.chunks = append([]ChunkInfo(nil), cp.Chunks...)
	w.covered = covered
	w.next = cp.NextIndex
	if w.schema == nil && len(cp.Config.Schema) > 0 {
		w.schema = cp.Config.Schema
	}
	w.logger.LogResume(ctx, cp.ID, len(cp.Chunks), cp.NextIndex, cp.Done)

	if cp.Done {
		frag := &Fragment{
			Version: cp.Version,
			Rank:    rank,
			Config:  w.config(),
			Chunks:  w.Chunks(),
			Done:    true,
		}
		if err := w.manifests.SaveFragment(ctx, frag); err != nil {
			return err
		}
		w.closed = true
		w.fragment = frag
	}
	return nil
}

func (w *Writer) compatible(cp *checkpoint.Checkpoint) error {
	cfg := w.config()
	switch {
	case cp.Config.ChunkSize != cfg.ChunkSize || cp.Config.ChunkBytes != cfg.ChunkBytes:
		return fmt.Errorf("%w: checkpoint %d flush policy differs", ErrResumeInconsistent, cp.ID)
	case cp.Config.Compression != cfg.Compression:
		return fmt.Errorf("%w: checkpoint %d compression %q, writer %q", ErrResumeInconsistent, cp.ID, cp.Config.Compression, cfg.Compression)
	case w.schema != nil && len(cp.Config.Schema) > 0 && !w.schema.Equal(cp.Config.Schema):
		return fmt.Errorf("%w: checkpoint %d schema %s, writer %s", ErrResumeInconsistent, cp.ID, cp.Config.Schema.Format(), w.schema.Format())
	}
	if len(cp.Config.Schema) > 0 {
		if err := w.opts.registry.Validate(cp.Config.Schema); err != nil {
			return fmt.Errorf("%w: %w", ErrResumeInconsistent, err)
		}
	}
	return nil
}

func (w *Writer) verifyChunk(ctx context.Context, c ChunkInfo) error {
	b, err := w.store.Open(ctx, c.Filename)
	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: chunk %s is missing", ErrResumeInconsistent, c.Filename)
	}
	if err != nil {
		return err
	}
	defer b.Close()
	if b.Size() != c.ChunkBytes {
		return fmt.Errorf("%w: chunk %s has %d bytes, checkpoint records %d", ErrResumeInconsistent, c.Filename, b.Size(), c.ChunkBytes)
	}
	return nil
}
