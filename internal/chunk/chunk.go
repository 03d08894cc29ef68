// Package chunk implements the decompressed chunk file layout:
//
//	[count u32][offset u64 × (count+1)][item bytes ...]
//
// Offsets are absolute positions within the chunk. offset[0] equals the
// header size and offset[count] equals the chunk length, so item i spans
// [offset[i], offset[i+1]).
package chunk

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/zeebo/blake3"
)

// ErrCorrupt is returned by Parse for any layout violation.
var ErrCorrupt = errors.New("corrupt chunk")

// HeaderSize returns the size of the count and offset table for n items.
func HeaderSize(n int) int {
	return 4 + 8*(n+1)
}

// Size returns the length of a chunk holding items whose sizes sum to dataBytes.
func Size(n int, dataBytes int64) int64 {
	return int64(HeaderSize(n)) + dataBytes
}

// Build lays out items as a chunk.
func Build(items [][]byte) ([]byte, error) {
	if uint64(len(items)) > math.MaxUint32 {
		return nil, fmt.Errorf("chunk: %d items exceed the u32 count", len(items))
	}
	total := HeaderSize(len(items))
	for _, it := range items {
		total += len(it)
	}

	out := make([]byte, total)
	binary.LittleEndian.PutUint32(out, uint32(len(items)))
	off := HeaderSize(len(items))
	for i, it := range items {
		binary.LittleEndian.PutUint64(out[4+8*i:], uint64(off))
		copy(out[off:], it)
		off += len(it)
	}
	binary.LittleEndian.PutUint64(out[4+8*len(items):], uint64(off))
	return out, nil
}

// View is a parsed chunk. Items returned by Item alias the underlying buffer.
type View struct {
	data    []byte
	offsets []uint64
}

// Parse validates the offset table of data and returns a view over it.
func Parse(data []byte) (*View, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the count", ErrCorrupt, len(data))
	}
	n := uint64(binary.LittleEndian.Uint32(data))
	header := 4 + 8*(n+1)
	if header > uint64(len(data)) {
		return nil, fmt.Errorf("%w: offset table for %d items exceeds %d bytes", ErrCorrupt, n, len(data))
	}

	offsets := make([]uint64, n+1)
	prev := header
	for i := range offsets {
		o := binary.LittleEndian.Uint64(data[4+8*i:])
		if i == 0 && o != header {
			return nil, fmt.Errorf("%w: first offset %d, want %d", ErrCorrupt, o, header)
		}
		if o < prev || o > uint64(len(data)) {
			return nil, fmt.Errorf("%w: offset %d out of order or range", ErrCorrupt, i)
		}
		offsets[i] = o
		prev = o
	}
	if offsets[n] != uint64(len(data)) {
		return nil, fmt.Errorf("%w: last offset %d, chunk has %d bytes", ErrCorrupt, offsets[n], len(data))
	}
	return &View{data: data, offsets: offsets}, nil
}

// Len returns the number of items.
func (v *View) Len() int { return len(v.offsets) - 1 }

// Item returns the bytes of item i.
func (v *View) Item(i int) ([]byte, error) {
	if i < 0 || i >= v.Len() {
		return nil, fmt.Errorf("chunk: item %d out of range [0,%d)", i, v.Len())
	}
	return v.data[v.offsets[i]:v.offsets[i+1]], nil
}

// Bytes returns the raw chunk.
func (v *View) Bytes() []byte { return v.data }

// Size returns the chunk length in bytes.
func (v *View) Size() int { return len(v.data) }

// Checksum returns the hex BLAKE3 digest of a decompressed chunk.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileName returns the chunk file name for a producer rank and sequence
// number. Compressed chunks carry the codec name before the extension.
func FileName(rank, seq int, compression string) string {
	name := "chunk-" + strconv.Itoa(rank) + "-" + strconv.Itoa(seq)
	if compression != "" {
		name += "." + compression
	}
	return name + ".bin"
}
