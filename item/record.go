package item

import "strings"

// Field is one named value of a record.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered list of fields. Field order is significant and is
// preserved through Encode and Decode.
type Record []Field

// Get returns the value of the first field called name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Names returns the field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// FilePath is a reference to a file. It is stored as text with the "file" kind
// so that paths can be told apart from ordinary strings.
type FilePath string

// FieldSpec names the kind used for one field.
type FieldSpec struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// Schema is the ordered list of field specs shared by all records of a dataset.
type Schema []FieldSpec

// Equal reports whether both schemas have the same fields and kinds in the
// same order.
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Format renders the schema as "name:kind,name:kind". It is recorded in
// manifests as the dataset's data format.
func (s Schema) Format() string {
	var b strings.Builder
	for i, f := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Name)
		b.WriteByte(':')
		b.WriteString(f.Type)
	}
	return b.String()
}

// Kinds returns the kind of every field in order.
func (s Schema) Kinds() []string {
	kinds := make([]string, len(s))
	for i, f := range s {
		kinds[i] = f.Type
	}
	return kinds
}
