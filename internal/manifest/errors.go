package manifest

import "errors"

var (
	// ErrIncompatibleVersion is returned when the document version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible manifest version")

	// ErrNotFound is returned when the document does not exist.
	ErrNotFound = errors.New("manifest not found")

	// ErrNoFragments is returned when merging an empty fragment set.
	ErrNoFragments = errors.New("no fragments to merge")

	// ErrDuplicateRank is returned when two fragments claim the same rank.
	ErrDuplicateRank = errors.New("duplicate fragment rank")

	// ErrNotDone is returned when a fragment was not finalized by its writer.
	ErrNotDone = errors.New("fragment is not done")

	// ErrSequenceGap is returned when a fragment's chunk sequence is not 0..n-1.
	ErrSequenceGap = errors.New("chunk sequence gap")

	// ErrMalformed is returned when a document cannot be decoded.
	ErrMalformed = errors.New("malformed manifest document")

	// ErrInvalidIndex is returned when the global index contradicts itself.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrFormatMismatch is returned when fragments disagree on the data format.
	ErrFormatMismatch = errors.New("data format mismatch")
)
