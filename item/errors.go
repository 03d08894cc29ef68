package item

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is matched by *TypeMismatchError.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrSchemaMismatch is returned when a record's fields differ from the schema.
	ErrSchemaMismatch = errors.New("record does not match schema")
	// ErrMalformed is returned when an encoded item cannot be parsed.
	ErrMalformed = errors.New("malformed item")
	// ErrUnknownKind is returned when a schema names a kind missing from the registry.
	ErrUnknownKind = errors.New("unknown kind")
	// ErrDuplicateKind is returned when registering a kind twice.
	ErrDuplicateKind = errors.New("kind already registered")
)

// TypeMismatchError reports a field value the schema's codec does not accept.
type TypeMismatchError struct {
	Field string
	Want  string
	Got   any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("the provided item should be of type %s for field %q, got %T", e.Want, e.Field, e.Got)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}
