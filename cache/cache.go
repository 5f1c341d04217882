// Package cache provides a fixed-capacity TTL cache backed by a memdb table.
//
// Every entry is a row with two columns: the expiry time in Unix seconds and
// the encoded value. Expiry is lazy: an expired entry stays in the table and
// is reported as a miss until it is overwritten, deleted or removed by
// PurgeExpired.
//
// A value is returned while the current time is at or before its expiry.
// WithLegacyExpiry inverts this check for compatibility with stores written
// by systems that used the inverted comparison.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/memdb"
	"github.com/hupe1980/memdb/codec"
	"github.com/hupe1980/memdb/row"
	"github.com/hupe1980/memdb/schema"
)

// Column names of the backing table.
const (
	ColumnExpiresAt = "expires_at"
	ColumnValue     = "value"
)

// Cache is a TTL cache of values of type V. It is safe for concurrent use.
type Cache[V any] struct {
	table      *memdb.Table
	codec      codec.Codec
	defaultTTL time.Duration
	now        func() time.Time
	legacy     bool
	logger     *memdb.Logger
}

// New creates a cache and its backing table.
func New[V any](optFns ...Option) (*Cache[V], error) {
	o := applyOptions(optFns)

	tableOpts := append([]memdb.Option{
		memdb.WithLogger(o.logger),
		memdb.WithColumns(
			schema.Int(ColumnExpiresAt, 8),
			schema.String(ColumnValue, o.maxValueSize),
		),
	}, o.tableOptions...)

	t := memdb.New(o.name, o.size, tableOpts...)
	if err := t.Create(); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	return &Cache[V]{
		table:      t,
		codec:      o.codec,
		defaultTTL: o.defaultTTL,
		now:        o.now,
		legacy:     o.legacyExpiry,
		logger:     o.logger.WithTable(o.name),
	}, nil
}

// Table returns the backing table.
func (c *Cache[V]) Table() *memdb.Table { return c.table }

// Set stores value under key for ttl. If ttl <= 0 the default TTL is used;
// if that is <= 0 too, the entry never expires.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) error {
	b, err := c.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}

	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	var expiresAt int64
	if ttl > 0 {
		expiresAt = c.now().Add(ttl).Unix()
	}

	return c.table.Save(key, row.Row{
		ColumnExpiresAt: expiresAt,
		ColumnValue:     b,
	})
}

// SetMultiple stores every value for ttl. Entries stored before a failure
// are kept; all failures are joined into the returned error.
func (c *Cache[V]) SetMultiple(values map[string]V, ttl time.Duration) error {
	var errs []error
	for key, v := range values {
		if err := c.Set(key, v, ttl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Get returns the value stored under key unless it is absent or expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	r, err := c.table.Get(key)
	if err != nil {
		return zero, false
	}

	expiresAt, _ := r.Int(ColumnExpiresAt)
	if !c.alive(expiresAt) {
		return zero, false
	}

	return c.decode(key, r)
}

// GetOr returns the value stored under key, or def.
func (c *Cache[V]) GetOr(key string, def V) V {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// GetMultiple returns a value for every key, using def for misses.
func (c *Cache[V]) GetMultiple(keys []string, def V) map[string]V {
	values := make(map[string]V, len(keys))
	for _, key := range keys {
		values[key] = c.GetOr(key, def)
	}
	return values
}

// Has reports whether key is stored, regardless of expiry.
func (c *Cache[V]) Has(key string) bool {
	ok, _ := c.table.Exists(key)
	return ok
}

// Delete removes key and reports whether it was stored.
func (c *Cache[V]) Delete(key string) bool {
	ok, _ := c.table.Delete(key)
	return ok
}

// DeleteMultiple removes every key.
func (c *Cache[V]) DeleteMultiple(keys ...string) error {
	return c.table.DeleteMulti(keys...)
}

// All returns every stored value, including expired ones.
// Values that fail to decode are skipped.
func (c *Cache[V]) All() []V {
	rows, err := c.table.Rows()
	if err != nil {
		return nil
	}

	var values []V
	for key, r := range rows {
		if v, ok := c.decode(key, r); ok {
			values = append(values, v)
		}
	}
	return values
}

// Len returns the number of stored entries, including expired ones.
func (c *Cache[V]) Len() int {
	n, _ := c.table.Count()
	return n
}

// Clear removes every entry. The cache stays usable.
func (c *Cache[V]) Clear() error {
	return c.table.Clear(false)
}

// PurgeExpired deletes entries whose expiry time has passed and returns how
// many were removed. It always uses wall-clock expiry, also with WithLegacyExpiry.
// An entry renewed concurrently between the scan and the delete may be removed.
func (c *Cache[V]) PurgeExpired() int {
	rows, err := c.table.Rows()
	if err != nil {
		return 0
	}

	now := c.now().Unix()

	n := 0
	for key, r := range rows {
		if exp, _ := r.Int(ColumnExpiresAt); exp != 0 && now > exp {
			if ok, _ := c.table.Delete(key); ok {
				n++
			}
		}
	}

	c.logger.DebugContext(context.Background(), "expired entries purged", "count", n)

	return n
}

func (c *Cache[V]) alive(expiresAt int64) bool {
	now := c.now().Unix()
	if c.legacy {
		return now > expiresAt
	}
	return expiresAt == 0 || now <= expiresAt
}

func (c *Cache[V]) decode(key string, r row.Row) (V, bool) {
	s, _ := r.String(ColumnValue)

	var v V
	if err := c.codec.Unmarshal([]byte(s), &v); err != nil {
		c.logger.WarnContext(context.Background(), "cache value decode failed", "key", key, "error", err)
		var zero V
		return zero, false
	}
	return v, true
}
