package mmap

import (
	"errors"
	"io"
	"os"
	"sync/atomic"
)

// Advice is an access hint passed to the kernel.
type Advice int

const (
	AdviseNormal Advice = iota
	// AdviseSequential favours aggressive read-ahead. Chunk files are always
	// consumed front to back.
	AdviseSequential
	// AdviseWillNeed asks the kernel to start paging the file in now.
	AdviseWillNeed
)

var (
	ErrClosed         = errors.New("mmap: mapping is closed")
	ErrTooLarge       = errors.New("mmap: file too large to map")
	ErrNegativeOffset = errors.New("mmap: negative offset")
)

// Mapping is a read-only view of a whole file.
type Mapping struct {
	data    []byte
	release func() error
	closed  atomic.Bool
}

// Open maps the file at path. Empty files yield an empty mapping without a
// system call.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return &Mapping{}, nil
	}
	if int64(int(size)) != size {
		return nil, ErrTooLarge
	}

	data, release, err := mapFile(f, int(size))
	if err != nil {
		return nil, &os.PathError{Op: "mmap", Path: path, Err: err}
	}
	return &Mapping{data: data, release: release}, nil
}

// Close releases the mapping. Calling it more than once is a no-op.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) || m.release == nil {
		return nil
	}
	return m.release()
}

// Bytes returns the mapped file contents, or nil once closed.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

func (m *Mapping) Size() int { return len(m.data) }

// Advise passes an access hint for the whole mapping. Hints are best effort.
func (m *Mapping) Advise(a Advice) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if len(m.data) == 0 {
		return nil
	}
	return advise(m.data, a)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	switch {
	case m.closed.Load():
		return 0, ErrClosed
	case off < 0:
		return 0, ErrNegativeOffset
	case off >= int64(len(m.data)):
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
