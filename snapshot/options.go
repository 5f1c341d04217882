package snapshot

import (
	"github.com/hupe1980/memdb"
	"github.com/hupe1980/memdb/codec"
	"github.com/hupe1980/memdb/resource"
)

// DefaultConcurrency is the default number of tables DumpDB and RestoreDB
// process at the same time.
const DefaultConcurrency = 4

type options struct {
	codec        codec.Codec
	compression  Compression
	resource     *resource.Controller
	logger       *memdb.Logger
	metrics      memdb.MetricsCollector
	versioning   bool
	keepVersions int
	concurrency  int
}

// Option configures a Store.
type Option func(*options)

// WithCodec sets the codec used to encode snapshots. It must produce JSON.
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression sets the compression applied on dump.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithResourceController throttles snapshot IO and bounds the number of
// concurrent async snapshots.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resource = rc
	}
}

// WithLogger configures structured logging.
func WithLogger(logger *memdb.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = memdb.NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector records dump and restore metrics.
func WithMetricsCollector(mc memdb.MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = memdb.NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

// WithVersioning writes every dump to a new blob and commits it through a
// pointer blob.
func WithVersioning() Option {
	return func(o *options) {
		o.versioning = true
	}
}

// WithKeepVersions enables versioning and deletes all but the newest n
// versions after each dump. n <= 0 keeps every version.
func WithKeepVersions(n int) Option {
	return func(o *options) {
		o.versioning = true
		o.keepVersions = n
	}
}

// WithConcurrency sets how many tables DumpDB and RestoreDB process at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:       codec.Default,
		compression: CompressionNone,
		logger:      memdb.NoopLogger(),
		metrics:     memdb.NoopMetricsCollector{},
		concurrency: DefaultConcurrency,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

type restoreOptions struct {
	indexKey string
}

// RestoreOption configures a single restore.
type RestoreOption func(*restoreOptions)

// IndexKey stores each restored row under the value of field instead of its
// snapshot key. Rows without the field keep their snapshot key.
func IndexKey(field string) RestoreOption {
	return func(o *restoreOptions) {
		o.indexKey = field
	}
}
