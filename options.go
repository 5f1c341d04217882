package memdb

import (
	"log/slog"

	"github.com/hupe1980/memdb/resource"
	"github.com/hupe1980/memdb/schema"
)

type options struct {
	columns          schema.Schema
	metricsCollector MetricsCollector
	logger           *Logger
	resource         *resource.Controller
	dumpFile         string
}

// Option configures a Table.
type Option func(*options)

// WithColumns appends column definitions to the table schema.
func WithColumns(cols ...schema.Column) Option {
	return func(o *options) {
		o.columns = append(o.columns, cols...)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &memdb.BasicMetricsCollector{}
//	t := memdb.New("users", 1024, memdb.WithMetricsCollector(metrics))
//	// ... use t ...
//	stats := metrics.GetStats()
//	fmt.Printf("Saves: %d, Avg latency: %dns\n", stats.SaveCount, stats.SaveAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := memdb.NewJSONLogger(slog.LevelInfo)
//	t := memdb.New("users", 1024, memdb.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithResourceController charges the table's slab against the controller's
// memory budget. Create fails with ErrCreationFailed when the budget is exhausted.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resource = rc
	}
}

// WithDumpFile sets the snapshot name used by snapshot.DumpDB and snapshot.RestoreDB.
func WithDumpFile(name string) Option {
	return func(o *options) {
		o.dumpFile = name
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
