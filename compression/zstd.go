package compression

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// DefaultZstdLevel balances ratio against encode speed.
const DefaultZstdLevel = 3

// zstdPreallocRatio caps the output buffer reserved up front for frames
// without a content size.
const zstdPreallocRatio = 16

// Zstd compresses chunks with zstd. The encoder and decoder are created once
// and shared; both are safe for concurrent EncodeAll/DecodeAll.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstd creates a zstd compressor at the given level (1-22).
func NewZstd(level int) *Zstd {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		panic("compression: zstd encoder initialization failed: " + err.Error())
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic("compression: zstd decoder initialization failed: " + err.Error())
	}
	return &Zstd{enc: enc, dec: dec}
}

// Name returns "zstd".
func (*Zstd) Name() string { return "zstd" }

// Compress encodes src as a single zstd frame.
func (z *Zstd) Compress(src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

// Decompress decodes a zstd frame and checks the output size. A frame that
// declares its content size must declare rawSize.
func (z *Zstd) Decompress(src []byte, rawSize int) ([]byte, error) {
	if err := checkRawSize("zstd", rawSize); err != nil {
		return nil, err
	}
	// Malformed headers are left for DecodeAll to report.
	var h zstd.Header
	prealloc := rawSize
	if err := h.Decode(src); err == nil && h.HasFCS {
		if h.FrameContentSize != uint64(rawSize) {
			return nil, fmt.Errorf("zstd decompress: frame holds %d bytes, expected %d: %w", h.FrameContentSize, rawSize, ErrSizeMismatch)
		}
	} else if limit := zstdPreallocRatio * len(src); prealloc > limit {
		prealloc = limit
	}

	out, err := z.dec.DecodeAll(src, make([]byte, 0, prealloc))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(out) != rawSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d: %w", len(out), rawSize, ErrSizeMismatch)
	}
	return out, nil
}
