package item

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Built-in kind names. They are stored in schemas and must never change.
const (
	KindInt   = "int"
	KindUint  = "uint"
	KindFloat = "float"
	KindBool  = "bool"
	KindStr   = "str"
	KindBytes = "bytes"
	KindImage = "image"
	KindFile  = "file"
	// KindCBOR is the fallback kind. A cbor field does not pin a Go type:
	// it accepts any non-nil value, so a field inferred from a map may later
	// hold a slice or a string. Values decode to generic CBOR shapes.
	KindCBOR = "cbor"
)

// Codec serializes the values of one kind.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name is the kind name recorded in schemas.
	Name() string
	// Accepts reports whether v can be encoded by this codec.
	Accepts(v any) bool
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
}

type intCodec struct{}

func (intCodec) Name() string { return KindInt }

func (intCodec) Accepts(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64:
		return true
	}
	return false
}

func (intCodec) Encode(v any) ([]byte, error) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	default:
		return nil, fmt.Errorf("int codec: unsupported %T", v)
	}
	return binary.LittleEndian.AppendUint64(nil, uint64(n)), nil
}

func (intCodec) Decode(data []byte) (any, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("%w: int payload has %d bytes", ErrMalformed, len(data))
	}
	return int64(binary.LittleEndian.Uint64(data)), nil
}

type uintCodec struct{}

func (uintCodec) Name() string { return KindUint }

func (uintCodec) Accepts(v any) bool {
	switch v.(type) {
	case uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func (uintCodec) Encode(v any) ([]byte, error) {
	var n uint64
	switch x := v.(type) {
	case uint:
		n = uint64(x)
	case uint8:
		n = uint64(x)
	case uint16:
		n = uint64(x)
	case uint32:
		n = uint64(x)
	case uint64:
		n = x
	default:
		return nil, fmt.Errorf("uint codec: unsupported %T", v)
	}
	return binary.LittleEndian.AppendUint64(nil, n), nil
}

func (uintCodec) Decode(data []byte) (any, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("%w: uint payload has %d bytes", ErrMalformed, len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

type floatCodec struct{}

func (floatCodec) Name() string { return KindFloat }

func (floatCodec) Accepts(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func (floatCodec) Encode(v any) ([]byte, error) {
	var f float64
	switch x := v.(type) {
	case float32:
		f = float64(x)
	case float64:
		f = x
	default:
		return nil, fmt.Errorf("float codec: unsupported %T", v)
	}
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(f)), nil
}

func (floatCodec) Decode(data []byte) (any, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("%w: float payload has %d bytes", ErrMalformed, len(data))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(data)), nil
}

type boolCodec struct{}

func (boolCodec) Name() string { return KindBool }

func (boolCodec) Accepts(v any) bool {
	_, ok := v.(bool)
	return ok
}

func (boolCodec) Encode(v any) ([]byte, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("bool codec: unsupported %T", v)
	}
	if b {
		return []byte{1}, nil
	}
	return []byte{0}, nil
}

func (boolCodec) Decode(data []byte) (any, error) {
	if len(data) != 1 || data[0] > 1 {
		return nil, fmt.Errorf("%w: invalid bool payload", ErrMalformed)
	}
	return data[0] == 1, nil
}

type strCodec struct{}

func (strCodec) Name() string { return KindStr }

func (strCodec) Accepts(v any) bool {
	_, ok := v.(string)
	return ok
}

func (strCodec) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("str codec: unsupported %T", v)
	}
	return []byte(s), nil
}

func (strCodec) Decode(data []byte) (any, error) { return string(data), nil }

type bytesCodec struct{}

func (bytesCodec) Name() string { return KindBytes }

func (bytesCodec) Accepts(v any) bool {
	_, ok := v.([]byte)
	return ok
}

func (bytesCodec) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("bytes codec: unsupported %T", v)
	}
	return bytes.Clone(b), nil
}

func (bytesCodec) Decode(data []byte) (any, error) { return bytes.Clone(data), nil }

type imageCodec struct{}

func (imageCodec) Name() string { return KindImage }

func (imageCodec) Accepts(v any) bool {
	img, ok := v.(image.Image)
	return ok && img != nil
}

func (imageCodec) Encode(v any) ([]byte, error) {
	img, ok := v.(image.Image)
	if !ok {
		return nil, fmt.Errorf("image codec: unsupported %T", v)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (imageCodec) Decode(data []byte) (any, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return img, nil
}

type fileCodec struct{}

func (fileCodec) Name() string { return KindFile }

func (fileCodec) Accepts(v any) bool {
	_, ok := v.(FilePath)
	return ok
}

func (fileCodec) Encode(v any) ([]byte, error) {
	p, ok := v.(FilePath)
	if !ok {
		return nil, fmt.Errorf("file codec: unsupported %T", v)
	}
	return []byte(p), nil
}

func (fileCodec) Decode(data []byte) (any, error) { return FilePath(data), nil }

// cborCodec stores arbitrary values with Core Deterministic Encoding, so equal
// values always produce identical bytes.
type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCBORCodec() *cborCodec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("item: CBOR encoder initialization failed: " + err.Error())
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("item: CBOR decoder initialization failed: " + err.Error())
	}
	return &cborCodec{enc: enc, dec: dec}
}

func (*cborCodec) Name() string { return KindCBOR }

func (*cborCodec) Accepts(v any) bool { return v != nil }

func (c *cborCodec) Encode(v any) ([]byte, error) { return c.enc.Marshal(v) }

func (c *cborCodec) Decode(data []byte) (any, error) {
	var v any
	if err := c.dec.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}
