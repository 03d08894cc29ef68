// Package blobstore provides the storage abstraction for chunk files and the
// documents that describe them.
//
// A BlobStore holds immutable blobs addressed by slash-separated names
// relative to a dataset root:
//
//	chunk-0-0.zstd.bin            chunk files
//	0.index.json                  manifest fragment of producer rank 0
//	index.json                    merged global index
//	.checkpoints/checkpoint-0-000003.json
//
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local file system, atomic writes, mmap reads
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 (package blobstore/s3)
//   - minio.Store: MinIO and other S3-compatible services (package blobstore/minio)
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
