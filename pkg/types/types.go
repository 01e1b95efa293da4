// Package types defines the shared data model for the execution engine:
// column data types, schema fields, and schemas carried by plan nodes
// and partitions.
package types

import (
	"fmt"
	"strings"
)

// DataType identifies the physical type of a column.
type DataType string

const (
	Int64   DataType = "int64"
	Float64 DataType = "float64"
	String  DataType = "string"
	Bool    DataType = "bool"
)

// Valid reports whether dt is one of the supported column types.
func (dt DataType) Valid() bool {
	switch dt {
	case Int64, Float64, String, Bool:
		return true
	}
	return false
}

// Numeric reports whether dt supports arithmetic kernels.
func (dt DataType) Numeric() bool {
	return dt == Int64 || dt == Float64
}

// Field describes one column of a schema.
type Field struct {
	ID   int      `json:"id" mapstructure:"id"`
	Name string   `json:"name" mapstructure:"name"`
	Type DataType `json:"type" mapstructure:"type"`
}

// Schema is an ordered list of fields. The order is the physical column
// order of every partition produced under this schema.
type Schema struct {
	Fields []Field `json:"fields" mapstructure:"fields"`
}

// NewSchema builds a schema from fields, assigning sequential column IDs
// to fields that do not carry one.
func NewSchema(fields ...Field) Schema {
	out := make([]Field, len(fields))
	copy(out, fields)
	for i := range out {
		if out[i].ID == 0 {
			out[i].ID = i + 1
		}
	}
	return Schema{Fields: out}
}

// Len returns the number of columns.
func (s Schema) Len() int {
	return len(s.Fields)
}

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// IndexOf returns the position of the named column, or -1.
func (s Schema) IndexOf(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field returns the field with the given name.
func (s Schema) Field(name string) (Field, bool) {
	if i := s.IndexOf(name); i >= 0 {
		return s.Fields[i], true
	}
	return Field{}, false
}

// Equal reports whether two schemas have the same names and types in the
// same order. Column IDs are ignored; they are stable within one plan but
// not across plans.
func (s Schema) Equal(other Schema) bool {
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range s.Fields {
		if f.Name != other.Fields[i].Name || f.Type != other.Fields[i].Type {
			return false
		}
	}
	return true
}

// Validate checks that the schema has at least one column, no duplicate
// names, and only supported types.
func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema has no fields")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema field %d has an empty name", f.ID)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("column %q has unsupported type %q", f.Name, f.Type)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate column name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// String renders the schema as "name:type, ...".
func (s Schema) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + ":" + string(f.Type)
	}
	return strings.Join(parts, ", ")
}
