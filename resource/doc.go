// Package resource implements the Controller for limits shared between
// readers and writers of one process.
//
// The Controller manages three resource types:
//
//   - Memory: budget for cached chunks across all readers (fail-fast when full)
//   - Concurrency: slots for background work such as cache prefetching
//   - IO: token-bucket rate limit for chunk uploads and downloads
//
// # Memory Management
//
// Memory tracking uses a weighted semaphore for hard limits and atomic counters
// for usage tracking. Caches use TryAcquireMemory and simply skip caching when
// the limit is reached:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	if rc.TryAcquireMemory(int64(len(chunk))) {
//	    defer rc.ReleaseMemory(int64(len(chunk)))
//	}
//
// # Background Worker Limits
//
//	rc := resource.NewController(resource.Config{
//	    MaxBackgroundWorkers: 4,
//	})
//
//	if err := rc.AcquireBackground(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseBackground()
//
// # IO Rate Limiting
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 100 * 1000 * 1000, // 100MB/s
//	})
//
//	if err := rc.AcquireIO(ctx, len(chunk)); err != nil {
//	    return err
//	}
//
//	reader := resource.NewRateLimitedReader(ctx, r, rc)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional resource limiting without nil checks everywhere.
package resource
