// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("datasets/train/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	w, err := chunkstore.NewWriter(ctx, chunkstore.Remote(store), chunkstore.WithChunkSize(1024))
//
// # Features
//
//   - Range reads for partial fetches
//   - CRC32C checksums on every upload
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
