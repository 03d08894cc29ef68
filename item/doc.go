// Package item turns records into the binary items stored in chunks and back.
//
// A Record is an ordered list of named fields. Each field is serialized by a
// Codec chosen from a Registry by kind name ("int", "str", "image", ...). The
// kinds of all fields form the Schema, which is either supplied up front or
// inferred from the first record written.
//
// # Wire format
//
// An encoded item is
//
//	[field count u32][payload length u32 × n][payload bytes ...]
//
// with all integers little endian. Payloads appear in field order.
//
// # Kinds
//
//	int    int, int8 ... int64        8 bytes, decodes to int64
//	uint   uint, uint8 ... uint64     8 bytes, decodes to uint64
//	float  float32, float64           8 bytes, decodes to float64
//	bool   bool                       1 byte
//	str    string                     UTF-8 bytes
//	bytes  []byte                     raw
//	image  image.Image                PNG
//	file   FilePath                   path as text
//	cbor   anything else              CBOR (fallback, inferred last)
//
// Unlike the other kinds, a cbor field accepts any non-nil value no matter
// which Go type it was inferred from.
package item
