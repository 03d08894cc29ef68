package compression

import (
	"fmt"

	"github.com/golang/snappy"
)

// Snappy compresses chunks with the snappy block format.
type Snappy struct{}

// Name returns "snappy".
func (Snappy) Name() string { return "snappy" }

// Compress encodes src as a snappy block.
func (Snappy) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

// Decompress decodes a snappy block and checks the output size.
func (Snappy) Decompress(src []byte, rawSize int) ([]byte, error) {
	if err := checkRawSize("snappy", rawSize); err != nil {
		return nil, err
	}
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress: %w", err)
	}
	if n != rawSize {
		return nil, fmt.Errorf("snappy decompress: header says %d bytes, expected %d: %w", n, rawSize, ErrSizeMismatch)
	}
	out, err := snappy.Decode(make([]byte, n), src)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress: %w", err)
	}
	return out, nil
}
