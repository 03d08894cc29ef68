package item

import (
	"fmt"
	"sync"
)

// Registry maps kind names to codecs. Inference walks codecs in registration
// order; the cbor codec, when present, is always tried last.
type Registry struct {
	mu       sync.RWMutex
	order    []Codec
	byName   map[string]Codec
	fallback Codec
}

// NewRegistry returns a registry holding codecs.
// It panics if two codecs share a name.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{byName: make(map[string]Codec)}
	for _, c := range codecs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// DefaultRegistry returns a new registry with all built-in kinds.
func DefaultRegistry() *Registry {
	return NewRegistry(
		intCodec{},
		uintCodec{},
		floatCodec{},
		boolCodec{},
		strCodec{},
		bytesCodec{},
		imageCodec{},
		fileCodec{},
		newCBORCodec(),
	)
}

// Register adds an extension codec.
func (r *Registry) Register(c Codec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, name)
	}
	r.byName[name] = c
	if name == KindCBOR {
		r.fallback = c
		return nil
	}
	r.order = append(r.order, c)
	return nil
}

// Lookup returns the codec registered for kind.
func (r *Registry) Lookup(kind string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[kind]
	return c, ok
}

// Kinds returns all registered kind names in inference order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.order)+1)
	for _, c := range r.order {
		kinds = append(kinds, c.Name())
	}
	if r.fallback != nil {
		kinds = append(kinds, r.fallback.Name())
	}
	return kinds
}

// Infer returns the first codec accepting v.
func (r *Registry) Infer(v any) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.order {
		if c.Accepts(v) {
			return c, true
		}
	}
	if r.fallback != nil && r.fallback.Accepts(v) {
		return r.fallback, true
	}
	return nil, false
}

// InferSchema derives a schema from the runtime types of rec.
func (r *Registry) InferSchema(rec Record) (Schema, error) {
	if len(rec) == 0 {
		return nil, fmt.Errorf("%w: record has no fields", ErrSchemaMismatch)
	}
	schema := make(Schema, len(rec))
	seen := make(map[string]struct{}, len(rec))
	for i, f := range rec {
		if _, dup := seen[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrSchemaMismatch, f.Name)
		}
		seen[f.Name] = struct{}{}

		c, ok := r.Infer(f.Value)
		if !ok {
			return nil, &TypeMismatchError{Field: f.Name, Want: "any registered kind", Got: f.Value}
		}
		schema[i] = FieldSpec{Name: f.Name, Type: c.Name()}
	}
	return schema, nil
}

// Validate checks that every kind of s is registered.
func (r *Registry) Validate(s Schema) error {
	for _, f := range s {
		if _, ok := r.Lookup(f.Type); !ok {
			return fmt.Errorf("%w: %q for field %q", ErrUnknownKind, f.Type, f.Name)
		}
	}
	return nil
}
