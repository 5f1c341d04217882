package cache

import (
	"time"

	"github.com/hupe1980/memdb"
	"github.com/hupe1980/memdb/codec"
)

const (
	// DefaultSize is the default number of entries.
	DefaultSize = 10240

	// DefaultMaxValueSize is the default maximum encoded value size in bytes.
	DefaultMaxValueSize = 4096

	// DefaultName is the default backing table name.
	DefaultName = "cache"
)

type options struct {
	name         string
	size         int
	maxValueSize int
	codec        codec.Codec
	defaultTTL   time.Duration
	now          func() time.Time
	legacyExpiry bool
	logger       *memdb.Logger
	tableOptions []memdb.Option
}

// Option configures a Cache.
type Option func(*options)

// WithName sets the backing table name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithSize sets the maximum number of entries.
func WithSize(size int) Option {
	return func(o *options) {
		o.size = size
	}
}

// WithMaxValueSize sets the maximum encoded value size in bytes.
func WithMaxValueSize(n int) Option {
	return func(o *options) {
		o.maxValueSize = n
	}
}

// WithCodec sets the value codec. If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithDefaultTTL is used when Set is called with ttl <= 0.
// If the default is <= 0 as well, entries never expire.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.defaultTTL = ttl
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLegacyExpiry inverts the expiry check: Get returns a stored value only
// once its expiry time has passed and reports a miss before that. Entries
// without expiry are always returned.
func WithLegacyExpiry() Option {
	return func(o *options) {
		o.legacyExpiry = true
	}
}

// WithLogger configures structured logging for the cache and its table.
func WithLogger(logger *memdb.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = memdb.NoopLogger()
		}
		o.logger = logger
	}
}

// WithTableOptions passes options to the backing table, for example a
// resource controller, a metrics collector or a dump file.
func WithTableOptions(optFns ...memdb.Option) Option {
	return func(o *options) {
		o.tableOptions = append(o.tableOptions, optFns...)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		name:         DefaultName,
		size:         DefaultSize,
		maxValueSize: DefaultMaxValueSize,
		codec:        codec.Default,
		now:          time.Now,
		logger:       memdb.NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
