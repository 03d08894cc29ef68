// Package cache keeps decompressed chunks in memory for random-access reads.
//
// ChunkCache is an LRU bounded by a byte budget over the decompressed size of
// the cached chunks. A budget of 0 means unbounded. Chunks larger than the
// budget are returned to the caller but never cached.
//
// Key features:
//   - Concurrent misses on the same chunk share one load (singleflight)
//   - Optional resource.Controller for a memory limit shared across caches
//   - Hit, miss and eviction counters
//
// Eviction only drops the cache's reference. Views already handed out stay
// valid for as long as their holders use them.
package cache
