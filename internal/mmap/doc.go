// Package mmap provides read-only memory-mapped access to chunk files.
//
// The local blob store maps a chunk file, hints sequential access, copies or
// decompresses it in one pass and unmaps it again. Chunk files are immutable
// once written, so a mapping never observes a concurrent writer.
//
// Platform support:
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) access hints
//   - Windows: CreateFileMapping/MapViewOfFile (advice is a no-op)
//
// Close is idempotent. Callers must not touch Bytes() after Close returns.
package mmap
