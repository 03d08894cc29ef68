package compression

import (
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 compresses chunks with LZ4 block compression.
//
// Layout: [flag u8][payload]. Flag 1 means the payload is an LZ4 block,
// flag 0 means LZ4 could not shrink the input and the payload is stored as is.
type LZ4 struct{}

const (
	lz4Stored     = 0
	lz4Compressed = 1

	// lz4MaxRatio bounds how far one block byte can expand.
	lz4MaxRatio = 255
)

// Name returns "lz4".
func (LZ4) Name() string { return "lz4" }

// Compress encodes src as a single LZ4 block.
func (LZ4) Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{lz4Stored}, nil
	}
	dst := make([]byte, 1+lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst[1:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if n == 0 || n >= len(src) {
		out := make([]byte, 1+len(src))
		out[0] = lz4Stored
		copy(out[1:], src)
		return out, nil
	}
	dst[0] = lz4Compressed
	return dst[:1+n], nil
}

// Decompress inflates an LZ4 block written by Compress.
func (LZ4) Decompress(src []byte, rawSize int) ([]byte, error) {
	if err := checkRawSize("lz4", rawSize); err != nil {
		return nil, err
	}
	if len(src) == 0 {
		return nil, errors.New("lz4 decompress: empty input")
	}
	switch src[0] {
	case lz4Stored:
		if len(src)-1 != rawSize {
			return nil, fmt.Errorf("lz4 decompress: stored size %d, expected %d: %w", len(src)-1, rawSize, ErrSizeMismatch)
		}
		out := make([]byte, rawSize)
		copy(out, src[1:])
		return out, nil
	case lz4Compressed:
		if int64(rawSize) > lz4MaxRatio*int64(len(src)) {
			return nil, fmt.Errorf("lz4 decompress: %d bytes cannot expand to %d: %w", len(src)-1, rawSize, ErrSizeMismatch)
		}
		out := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(src[1:], out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if n != rawSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d: %w", n, rawSize, ErrSizeMismatch)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("lz4 decompress: unknown block flag %d", src[0])
	}
}
