// Package fs provides the file system seam used by the local blob store.
//
//   - [FileSystem]: open, rename, remove, stat, mkdir, readdir
//   - [LocalFS]: production implementation on top of package os
//   - [FaultyFS]: test wrapper that injects write, sync, close and rename faults
//
// [WriteFileAtomic] is the only way chunk, fragment, index and checkpoint files
// reach the disk: data goes to a temporary sibling, is synced, then renamed
// over the target. A crash leaves either the old file or the new one.
//
// The package takes no context.Context. Local file operations are not
// interruptible at the syscall level; slow remote I/O lives behind blobstore.
package fs
