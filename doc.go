// Package chunkstore stores datasets of records as compressed, size-bounded
// chunk files with a JSON index, for fast sequential writing during dataset
// preparation and fast random reads during training.
//
// # Writing
//
// Producers submit records in any order under a logical index. Records are
// appended to chunks in index order and a chunk is flushed once it holds a
// fixed number of items or would exceed a byte budget:
//
//	ctx := context.Background()
//	w, _ := chunkstore.NewWriter(ctx, chunkstore.Local("./data"),
//	    chunkstore.WithChunkBytesString("64MB"),
//	    chunkstore.WithCompression("zstd"),
//	)
//	w.Add(ctx, 1, item.Record{{Name: "label", Value: 7}})
//	w.Add(ctx, 0, item.Record{{Name: "label", Value: 3}})
//	w.Merge(ctx) // flush, write the fragment, build index.json
//
// Remote storage works the same way:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("datasets/train/"))
//	w, _ := chunkstore.NewWriter(ctx, chunkstore.Remote(s3Store), chunkstore.WithChunkSize(1000))
//
// # Parallel producers
//
// Each producer uses its own Writer with a distinct rank (WithRank). Done
// writes <rank>.index.json; once every producer is done, Merge combines the
// fragments into index.json in rank order.
//
// # Resuming
//
// With WithCheckpointEvery a writer periodically records which chunks are
// durable. A restarted writer created with WithResume continues from the
// latest valid checkpoint; NextIndex reports the first index to submit again.
//
// # Reading
//
//	r, _ := chunkstore.OpenReader(ctx, chunkstore.Local("./data"), chunkstore.WithCacheBudgetString("10GB"))
//	addr, _ := r.ChunkFor(42)
//	rec, _ := r.Read(ctx, addr)
//
// Chunks are verified against the size and BLAKE3 checksum recorded in the
// index and kept decompressed in an LRU cache bounded by the cache budget.
package chunkstore
