// Package schema describes the fixed row shape of a memdb table.
//
// A Schema is an ordered list of typed, fixed-width columns. It is set before
// a table is created and is immutable afterwards.
package schema

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned when a schema cannot be used to create a table.
var ErrInvalid = errors.New("invalid schema")

// Type defines the storage type of a column.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeInt
	TypeFloat
	TypeString
)

// String returns the string representation of the Type.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeString:
		return "String"
	default:
		return "Invalid"
	}
}

const (
	// DefaultIntWidth is the byte width used for Int columns declared with Size 0.
	DefaultIntWidth = 4
	// FloatWidth is the fixed byte width of every Float column.
	FloatWidth = 8
)

// Column describes a single named, typed column.
//
// Size is the byte width for Int columns (1, 2, 4 or 8; 0 means 4) and the
// maximum byte length for String columns. It is ignored for Float columns.
type Column struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
	Size int    `json:"size,omitempty"`
}

// Int returns an integer column with the given byte width.
func Int(name string, width int) Column {
	return Column{Name: name, Type: TypeInt, Size: width}
}

// Float returns an 8 byte floating point column.
func Float(name string) Column {
	return Column{Name: name, Type: TypeFloat}
}

// String returns a string column holding at most maxLen bytes.
func String(name string, maxLen int) Column {
	return Column{Name: name, Type: TypeString, Size: maxLen}
}

// Width returns the number of value bytes the column occupies.
// String columns report maxLen; the row layout adds the length prefix.
func (c Column) Width() int {
	switch c.Type {
	case TypeInt:
		if c.Size == 0 {
			return DefaultIntWidth
		}
		return c.Size
	case TypeFloat:
		return FloatWidth
	case TypeString:
		return c.Size
	default:
		return 0
	}
}

// Validate checks a single column definition.
func (c Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: column name must not be empty", ErrInvalid)
	}
	switch c.Type {
	case TypeInt:
		switch c.Size {
		case 0, 1, 2, 4, 8:
		default:
			return fmt.Errorf("%w: column %q: int width must be 1, 2, 4 or 8, got %d", ErrInvalid, c.Name, c.Size)
		}
	case TypeFloat:
	case TypeString:
		if c.Size <= 0 {
			return fmt.Errorf("%w: column %q: string length must be positive, got %d", ErrInvalid, c.Name, c.Size)
		}
	default:
		return fmt.Errorf("%w: column %q: unknown type %d", ErrInvalid, c.Name, c.Type)
	}
	return nil
}

// Schema is an ordered sequence of columns with unique names.
type Schema []Column

// Validate checks every column and rejects empty schemas and duplicate names.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: no columns defined", ErrInvalid)
	}
	seen := make(map[string]struct{}, len(s))
	for _, c := range s {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, ok := seen[c.Name]; ok {
			return fmt.Errorf("%w: duplicate column %q", ErrInvalid, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the named column.
func (s Schema) Lookup(name string) (Column, bool) {
	if i := s.Index(name); i >= 0 {
		return s[i], true
	}
	return Column{}, false
}

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Clone returns a copy that does not share the backing array.
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	copy(out, s)
	return out
}
