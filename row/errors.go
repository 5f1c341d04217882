package row

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch is returned when a value cannot be stored in a column of the given type.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrLengthExceeded is returned when a string is longer than its column's maximum length.
	ErrLengthExceeded = errors.New("length exceeded")
	// ErrOutOfRange is returned when an integer does not fit the column's byte width.
	ErrOutOfRange = errors.New("value out of range")
	// ErrUnknownColumn is returned when a row references a column the schema does not define.
	ErrUnknownColumn = errors.New("unknown column")
)

// FieldError reports a validation failure for a single column.
//
// The underlying sentinel can be matched with errors.Is.
type FieldError struct {
	Field string
	Value any
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("column %q: %v (value %v)", e.Field, e.Err, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(name string, v any, err error) error {
	return &FieldError{Field: name, Value: v, Err: err}
}
