package item

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes rec according to schema.
func Encode(reg *Registry, schema Schema, rec Record) ([]byte, error) {
	if len(rec) != len(schema) {
		return nil, fmt.Errorf("%w: got %d fields, want %d", ErrSchemaMismatch, len(rec), len(schema))
	}

	payloads := make([][]byte, len(rec))
	total := 4 + 4*len(rec)
	for i, f := range rec {
		field := schema[i]
		if f.Name != field.Name {
			return nil, fmt.Errorf("%w: field %d is %q, want %q", ErrSchemaMismatch, i, f.Name, field.Name)
		}
		c, ok := reg.Lookup(field.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %q for field %q", ErrUnknownKind, field.Type, field.Name)
		}
		if !c.Accepts(f.Value) {
			return nil, &TypeMismatchError{Field: f.Name, Want: field.Type, Got: f.Value}
		}
		p, err := c.Encode(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode field %q: %w", f.Name, err)
		}
		if uint64(len(p)) > math.MaxUint32 {
			return nil, fmt.Errorf("encode field %q: payload of %d bytes exceeds 4 GiB", f.Name, len(p))
		}
		payloads[i] = p
		total += len(p)
	}

	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payloads)))
	for _, p := range payloads {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(p)))
	}
	for _, p := range payloads {
		out = append(out, p...)
	}
	return out, nil
}

// Decode parses an item produced by Encode with the same schema.
func Decode(reg *Registry, schema Schema, data []byte) (Record, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrMalformed, len(data))
	}
	n := int(binary.LittleEndian.Uint32(data))
	if n != len(schema) {
		return nil, fmt.Errorf("%w: item has %d fields, schema has %d", ErrSchemaMismatch, n, len(schema))
	}
	header := 4 + 4*n
	if len(data) < header {
		return nil, fmt.Errorf("%w: truncated length table", ErrMalformed)
	}

	rec := make(Record, n)
	off := header
	for i := 0; i < n; i++ {
		size := int(binary.LittleEndian.Uint32(data[4+4*i:]))
		if size > len(data)-off {
			return nil, fmt.Errorf("%w: field %d overruns item", ErrMalformed, i)
		}
		field := schema[i]
		c, ok := reg.Lookup(field.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %q for field %q", ErrUnknownKind, field.Type, field.Name)
		}
		v, err := c.Decode(data[off : off+size])
		if err != nil {
			return nil, fmt.Errorf("decode field %q: %w", field.Name, err)
		}
		rec[i] = Field{Name: field.Name, Value: v}
		off += size
	}
	if off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(data)-off)
	}
	return rec, nil
}
