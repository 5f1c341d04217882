package memdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/memdb/internal/shm"
	"github.com/hupe1980/memdb/row"
	"github.com/hupe1980/memdb/schema"
)

var (
	// ErrConfiguration is returned when a table is defined with an invalid schema or capacity.
	ErrConfiguration = errors.New("invalid table configuration")

	// ErrNotCreated is returned by row operations on a table before Create.
	ErrNotCreated = errors.New("table not created")

	// ErrReleased is returned by row operations after Clear(true).
	ErrReleased = errors.New("table released")

	// ErrAlreadyCreated is returned when Create is called twice.
	ErrAlreadyCreated = errors.New("table already created")

	// ErrCreationFailed is returned when the backing storage cannot be allocated.
	ErrCreationFailed = errors.New("table creation failed")

	// ErrCapacityExceeded is returned when a new key is saved into a full table.
	ErrCapacityExceeded = shm.ErrCapacityExceeded

	// ErrNotFound is returned when a key is not stored.
	ErrNotFound = errors.New("not found")

	// ErrTypeMismatch is returned when a value does not match its column type.
	ErrTypeMismatch = row.ErrTypeMismatch

	// ErrLengthExceeded is returned when a string exceeds its column's maximum length.
	ErrLengthExceeded = row.ErrLengthExceeded

	// ErrOutOfRange is returned when an integer does not fit its column width.
	ErrOutOfRange = row.ErrOutOfRange

	// ErrUnknownColumn is returned when a value names a column the schema does not define.
	ErrUnknownColumn = row.ErrUnknownColumn
)

// KeyError reports a failed operation on a single key.
//
// The underlying error can be accessed via errors.Unwrap.
type KeyError struct {
	Table string
	Key   string
	cause error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("table %q key %q: %v", e.Table, e.Key, e.cause)
}

func (e *KeyError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, schema.ErrInvalid) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return err
}
