package chunkstore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/chunkstore/internal/checkpoint"
	"github.com/hupe1980/chunkstore/internal/manifest"
)

var (
	// ErrInvalidConfig is returned when writer or reader options are invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrWriterClosed is returned by Add after Done.
	ErrWriterClosed = errors.New("writer is closed")

	// ErrDuplicateIndex is returned when a logical index is already pending.
	ErrDuplicateIndex = errors.New("duplicate index")

	// ErrIndexAlreadyWritten is returned when a logical index was already
	// appended to a chunk.
	ErrIndexAlreadyWritten = errors.New("index already written")

	// ErrCorrupted is returned when a chunk fails size, checksum or layout
	// verification, or when index.json is malformed or inconsistent.
	ErrCorrupted = errors.New("data corrupted")

	// ErrResumeInconsistent is returned when a checkpoint does not match the
	// files on the backend or the writer configuration.
	ErrResumeInconsistent = errors.New("checkpoint inconsistent with dataset")

	// ErrIndexNotFound is returned when a dataset has no index.json.
	ErrIndexNotFound = errors.New("index not found")

	// ErrOutOfRange is returned when a read addresses an item outside its chunk
	// or a chunk outside the index.
	ErrOutOfRange = errors.New("index out of range")

	// ErrIncompleteMerge is returned when fragments are missing or unfinished.
	ErrIncompleteMerge = errors.New("incomplete merge")

	// ErrInvalidManifest is returned when fragments cannot be combined.
	ErrInvalidManifest = errors.New("invalid manifest")
)

// ErrChunkCorrupted reports which chunk failed verification.
//
// It matches ErrCorrupted; the underlying error can be accessed via errors.Unwrap.
type ErrChunkCorrupted struct {
	Chunk    int
	Filename string
	cause    error
}

func (e *ErrChunkCorrupted) Error() string {
	return fmt.Sprintf("chunk %d (%s) corrupted: %v", e.Chunk, e.Filename, e.cause)
}

func (e *ErrChunkCorrupted) Unwrap() error { return e.cause }

func (e *ErrChunkCorrupted) Is(target error) bool { return target == ErrCorrupted }

// ErrItemOutOfRange reports a logical index that is not stored in the
// addressed chunk.
type ErrItemOutOfRange struct {
	Index uint64
	Chunk int
	Start uint64 // first index of the chunk
	End   uint64 // one past the last index of the chunk
}

func (e *ErrItemOutOfRange) Error() string {
	return fmt.Sprintf("index %d is not in chunk %d [%d, %d)", e.Index, e.Chunk, e.Start, e.End)
}

func (e *ErrItemOutOfRange) Is(target error) bool { return target == ErrOutOfRange }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, manifest.ErrNotDone), errors.Is(err, manifest.ErrNoFragments):
		return fmt.Errorf("%w: %w", ErrIncompleteMerge, err)
	case errors.Is(err, manifest.ErrDuplicateRank),
		errors.Is(err, manifest.ErrSequenceGap),
		errors.Is(err, manifest.ErrFormatMismatch),
		errors.Is(err, manifest.ErrIncompatibleVersion):
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	case errors.Is(err, manifest.ErrInvalidIndex), errors.Is(err, manifest.ErrMalformed):
		return fmt.Errorf("%w: %w", ErrCorrupted, err)
	case errors.Is(err, checkpoint.ErrInvalid):
		return fmt.Errorf("%w: %w", ErrResumeInconsistent, err)
	}

	return err
}
