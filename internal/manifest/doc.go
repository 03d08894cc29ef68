// Package manifest describes which chunk files make up a dataset.
//
// # Documents
//
// Every producer (identified by its rank) writes a fragment when it finishes:
//
//	<rank>.index.json   version, rank, writer config, chunks, done flag
//
// Merge combines all fragments into the global index:
//
//	index.json          version, config, chunks (rank ascending, then seq)
//
// Documents are JSON, encoded through a codec.Codec.
//
// # Merge rules
//
// Merge is pure. It sorts fragments by rank and rejects duplicate ranks,
// fragments whose done flag is unset, per-rank sequence gaps and mismatched
// data formats. Merging the same set of fragments always yields an identical
// index.
//
// # Thread Safety
//
// Store methods are safe for concurrent use.
package manifest
