// Package compression provides the named whole-chunk compressors used by the
// chunk writer and reader.
//
// A compressor is selected by its stable name ("zstd", "lz4", "snappy"). The
// name is recorded in the global index next to every chunk, so a reader never
// guesses the algorithm from the bytes. Renaming a compressor is a format break.
package compression

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// NoneInstalledMessage is the exact text of ErrNoneInstalled.
const NoneInstalledMessage = "No compression algorithms are installed."

var (
	// ErrNoneInstalled is returned when a compressor is requested from a
	// registry that holds no compressors at all.
	ErrNoneInstalled = errors.New(NoneInstalledMessage) //nolint:staticcheck // ST1005: fixed message text

	// ErrUnavailable is matched by *UnavailableError.
	ErrUnavailable = errors.New("compression unavailable")

	// ErrSizeMismatch indicates that decompressed output does not have the
	// size recorded for the chunk.
	ErrSizeMismatch = errors.New("decompressed size mismatch")
)

// checkRawSize rejects expected sizes that no chunk can have.
func checkRawSize(name string, rawSize int) error {
	if rawSize < 0 {
		return fmt.Errorf("%s decompress: negative raw size %d: %w", name, rawSize, ErrSizeMismatch)
	}
	return nil
}

// UnavailableError reports a compressor name that is not registered.
type UnavailableError struct {
	Name      string
	Available []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("The provided compression %s isn't available in %s", e.Name, strings.Join(e.Available, ", "))
}

// Is reports whether target is ErrUnavailable.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Compressor compresses and decompresses whole chunk files.
// Implementations must be safe for concurrent use.
type Compressor interface {
	// Name returns the stable name recorded in the index.
	Name() string
	// Compress returns the compressed form of src.
	Compress(src []byte) ([]byte, error)
	// Decompress inflates src. rawSize is the expected output length.
	Decompress(src []byte, rawSize int) ([]byte, error)
}

// Registry maps compressor names to implementations.
type Registry struct {
	mu          sync.RWMutex
	compressors map[string]Compressor
}

// NewRegistry creates a registry holding the given compressors.
func NewRegistry(cs ...Compressor) *Registry {
	r := &Registry{compressors: make(map[string]Compressor, len(cs))}
	for _, c := range cs {
		r.compressors[c.Name()] = c
	}
	return r
}

// Default holds every compressor compiled into this module.
var Default = NewRegistry(NewZstd(DefaultZstdLevel), LZ4{}, Snappy{})

// Register adds or replaces a compressor.
func (r *Registry) Register(c Compressor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compressors[c.Name()] = c
}

// Lookup returns the compressor registered under name.
//
// An empty registry yields ErrNoneInstalled; an unknown name yields an
// *UnavailableError listing the names that are available.
func (r *Registry) Lookup(name string) (Compressor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.compressors) == 0 {
		return nil, ErrNoneInstalled
	}
	c, ok := r.compressors[name]
	if !ok {
		return nil, &UnavailableError{Name: name, Available: r.namesLocked()}
	}
	return c, nil
}

// Names returns the registered compressor names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.compressors))
	for name := range r.compressors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName looks up a compressor in the Default registry.
func ByName(name string) (Compressor, error) {
	return Default.Lookup(name)
}
