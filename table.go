package memdb

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/memdb/internal/shm"
	"github.com/hupe1980/memdb/resource"
	"github.com/hupe1980/memdb/row"
	"github.com/hupe1980/memdb/schema"
	"github.com/hupe1980/memdb/search"
)

// DefaultCapacity is used when a table is defined with capacity 0.
const DefaultCapacity = 1024

// ErrInvalidKey is returned for empty keys.
var ErrInvalidKey = errors.New("invalid key")

// backing is the storage materialized by Create.
type backing struct {
	layout   *row.Layout
	store    shm.Storage
	reserved int64
}

// Table is a fixed-capacity, concurrently accessible table of typed rows.
//
// Columns are defined before Create; Create compiles the schema and allocates
// storage for every row up front. Each single-key operation is atomic. No
// operation spans several keys atomically.
type Table struct {
	name     string
	capacity int
	opts     options
	logger   *Logger

	mu      sync.Mutex // guards columns and lifecycle transitions
	columns schema.Schema

	backing  atomic.Pointer[backing]
	released atomic.Bool
}

// New defines a table. Row operations fail with ErrNotCreated until Create is called.
func New(name string, capacity int, optFns ...Option) *Table {
	o := applyOptions(optFns)

	return &Table{
		name:     name,
		capacity: capacity,
		opts:     o,
		logger:   o.logger.WithTable(name),
		columns:  o.columns.Clone(),
	}
}

// AddColumn appends a column definition. Columns added after Create take
// effect the next time the table is created.
func (t *Table) AddColumn(col schema.Column) *Table {
	return t.AddColumns(col)
}

// AddColumns appends column definitions.
func (t *Table) AddColumns(cols ...schema.Column) *Table {
	t.mu.Lock()
	t.columns = append(t.columns, cols...)
	t.mu.Unlock()
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// DumpFile returns the configured snapshot name.
func (t *Table) DumpFile() string { return t.opts.dumpFile }

// Schema returns a copy of the column definitions.
func (t *Table) Schema() schema.Schema {
	if b := t.backing.Load(); b != nil {
		return b.layout.Schema()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.columns.Clone()
}

// Capacity returns the maximum number of rows.
func (t *Table) Capacity() int {
	if b := t.backing.Load(); b != nil {
		return b.store.Capacity()
	}
	if t.capacity == 0 {
		return DefaultCapacity
	}
	return t.capacity
}

// Create compiles the schema and allocates the table's storage.
func (t *Table) Create() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx := context.Background()

	if t.backing.Load() != nil {
		return ErrAlreadyCreated
	}

	capacity := t.capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	if capacity < 0 {
		err := fmt.Errorf("%w: capacity %d", ErrConfiguration, capacity)
		t.logger.LogCreate(ctx, capacity, 0, err)
		return err
	}

	layout, err := row.Compile(t.columns)
	if err != nil {
		err = translateError(err)
		t.logger.LogCreate(ctx, capacity, 0, err)
		return err
	}

	size := int64(capacity) * int64(layout.Width())
	if !t.opts.resource.TryAcquireMemory(size) {
		err := fmt.Errorf("%w: %w: %d bytes", ErrCreationFailed, resource.ErrMemoryLimitExceeded, size)
		t.logger.LogCreate(ctx, capacity, layout.Width(), err)
		return err
	}

	store, err := shm.NewSharded(capacity, layout.Width())
	if err != nil {
		t.opts.resource.ReleaseMemory(size)
		err = fmt.Errorf("%w: %w", ErrCreationFailed, err)
		t.logger.LogCreate(ctx, capacity, layout.Width(), err)
		return err
	}

	t.backing.Store(&backing{
		layout:   layout,
		store:    store,
		reserved: size,
	})
	t.released.Store(false)

	t.logger.LogCreate(ctx, capacity, layout.Width(), nil)

	return nil
}

// IsCreated reports whether the table is usable.
func (t *Table) IsCreated() bool { return t.backing.Load() != nil }

func (t *Table) storage() (*backing, error) {
	if b := t.backing.Load(); b != nil {
		return b, nil
	}
	if t.released.Load() {
		return nil, ErrReleased
	}
	return nil, ErrNotCreated
}

// Layout returns the compiled row layout.
func (t *Table) Layout() (*row.Layout, error) {
	b, err := t.storage()
	if err != nil {
		return nil, err
	}
	return b.layout, nil
}

// Get returns the row stored under key, or ErrNotFound.
func (t *Table) Get(key string) (row.Row, error) {
	b, err := t.storage()
	if err != nil {
		return nil, err
	}

	start := time.Now()

	var r row.Row
	ok := b.store.View(key, func(slot []byte) {
		r = b.layout.Decode(slot)
	})

	t.opts.metricsCollector.RecordGet(time.Since(start), ok)

	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// GetField returns a single column of the row stored under key.
func (t *Table) GetField(key, field string) (any, error) {
	b, err := t.storage()
	if err != nil {
		return nil, err
	}

	if _, ok := b.layout.Column(field); !ok {
		return nil, &row.FieldError{Field: field, Err: row.ErrUnknownColumn}
	}

	var v any
	ok := b.store.View(key, func(slot []byte) {
		v, _ = b.layout.DecodeField(slot, field)
	})
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// GetMulti returns the rows stored under keys in the same order.
// Missing keys yield nil entries.
func (t *Table) GetMulti(keys ...string) ([]row.Row, error) {
	b, err := t.storage()
	if err != nil {
		return nil, err
	}

	rows := make([]row.Row, len(keys))
	for i, key := range keys {
		b.store.View(key, func(slot []byte) {
			rows[i] = b.layout.Decode(slot)
		})
	}
	return rows, nil
}

// Save validates values and upserts them under key. Columns missing from
// values are zero for a new row and unchanged for an existing one. Either
// every value is written or none is.
func (t *Table) Save(key string, values row.Row) error {
	b, err := t.storage()
	if err != nil {
		return err
	}

	if key == "" {
		return ErrInvalidKey
	}

	start := time.Now()

	err = b.store.Upsert(key, func(slot []byte, _ bool) error {
		return b.layout.EncodeInto(slot, values)
	})
	if err != nil {
		err = &KeyError{Table: t.name, Key: key, cause: err}
	}

	t.opts.metricsCollector.RecordSave(time.Since(start), err)
	t.logger.LogSave(context.Background(), key, err)

	return err
}

// Delete removes key and reports whether it existed.
func (t *Table) Delete(key string) (bool, error) {
	b, err := t.storage()
	if err != nil {
		return false, err
	}

	start := time.Now()
	deleted := b.store.Delete(key)

	t.opts.metricsCollector.RecordDelete(time.Since(start), deleted)
	t.logger.LogDelete(context.Background(), key, deleted)

	return deleted, nil
}

// DeleteMulti removes every key, skipping missing ones.
// It only fails when the table is not usable.
func (t *Table) DeleteMulti(keys ...string) error {
	if _, err := t.storage(); err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := t.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Exists reports whether key is stored.
func (t *Table) Exists(key string) (bool, error) {
	b, err := t.storage()
	if err != nil {
		return false, err
	}
	return b.store.Exists(key), nil
}

// Count returns the number of stored rows.
func (t *Table) Count() (int, error) {
	b, err := t.storage()
	if err != nil {
		return 0, err
	}
	return b.store.Len(), nil
}

// Clear removes every row. With release, the storage is freed as well and
// row operations fail with ErrReleased until Create is called again.
func (t *Table) Clear(release bool) error {
	b, err := t.storage()
	if err != nil {
		return err
	}

	if !release {
		b.store.Clear()
		t.logger.LogClear(context.Background(), false)
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.backing.CompareAndSwap(b, nil) {
		return ErrReleased
	}
	t.released.Store(true)
	b.store.Clear()
	t.opts.resource.ReleaseMemory(b.reserved)

	t.logger.LogClear(context.Background(), true)

	return nil
}

// Rows returns an iterator over every row. Each call starts a fresh pass.
//
// Rows are copied one shard at a time under the shard's read lock, so a
// concurrent writer may be observed for some rows and not for others. The
// callback may modify the table.
func (t *Table) Rows() (iter.Seq2[string, row.Row], error) {
	b, err := t.storage()
	if err != nil {
		return nil, err
	}

	return func(yield func(string, row.Row) bool) {
		b.store.Range(func(key string, slot []byte) bool {
			return yield(key, b.layout.Decode(slot))
		})
	}, nil
}

// Incr atomically adds by to an integer column and returns the new value.
// Float columns are incremented with IncrFloat; Incr on a float or string
// column fails with ErrTypeMismatch. A sum outside the column's width fails
// with ErrOutOfRange and leaves the row unchanged.
func (t *Table) Incr(key, field string, by int64) (int64, error) {
	b, err := t.storage()
	if err != nil {
		return 0, err
	}

	start := time.Now()

	var n int64
	found, err := b.store.Update(key, func(slot []byte) error {
		var aerr error
		n, aerr = b.layout.AddInt(slot, field, by)
		return aerr
	})
	if err == nil && !found {
		err = ErrNotFound
	}

	t.opts.metricsCollector.RecordSave(time.Since(start), err)

	if err != nil {
		return 0, err
	}
	return n, nil
}

// Decr atomically subtracts by from an integer column and returns the new value.
func (t *Table) Decr(key, field string, by int64) (int64, error) {
	if by == math.MinInt64 {
		return 0, &row.FieldError{Field: field, Value: by, Err: row.ErrOutOfRange}
	}
	return t.Incr(key, field, -by)
}

// IncrFloat atomically adds by to a float column and returns the new value.
func (t *Table) IncrFloat(key, field string, by float64) (float64, error) {
	b, err := t.storage()
	if err != nil {
		return 0, err
	}

	start := time.Now()

	var f float64
	found, err := b.store.Update(key, func(slot []byte) error {
		var aerr error
		f, aerr = b.layout.AddFloat(slot, field, by)
		return aerr
	})
	if err == nil && !found {
		err = ErrNotFound
	}

	t.opts.metricsCollector.RecordSave(time.Since(start), err)

	if err != nil {
		return 0, err
	}
	return f, nil
}

// DecrFloat atomically subtracts by from a float column and returns the new value.
func (t *Table) DecrFloat(key, field string, by float64) (float64, error) {
	return t.IncrFloat(key, field, -by)
}

// Load saves every row of data. With a non-empty indexKey each row that has
// that column set is stored under the column's value instead of its map key.
// Rows that fail are skipped; their errors are joined into the returned error.
func (t *Table) Load(data map[string]row.Row, indexKey string) (int, error) {
	if _, err := t.storage(); err != nil {
		return 0, err
	}

	var (
		n    int
		errs []error
	)

	for key, values := range data {
		if v, ok := values[indexKey]; indexKey != "" && ok && v != nil {
			key = keyOf(v)
		}

		if err := t.Save(key, values); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}

	t.logger.LogLoad(context.Background(), len(data), len(errs))

	return n, errors.Join(errs...)
}

func keyOf(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Search scans the table for rows whose field contains keyword.
// The field is set with search.Field.
func (t *Table) Search(keyword string, limit int, optFns ...search.Option) search.Result {
	start := time.Now()

	res := search.Search(t, keyword, limit, optFns...)

	t.opts.metricsCollector.RecordSearch(res.ResultRows, time.Since(start))
	t.logger.LogSearch(context.Background(), keyword, limit, res.ResultRows, res.Message)

	return res
}

// AttachTo registers the table in db.
func (t *Table) AttachTo(db *DB) error {
	return db.AddTable(t)
}

var _ search.Source = (*Table)(nil)
