package memdb

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    saveCounter     prometheus.Counter
//	    searchHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordSave(duration time.Duration, err error) {
//	    p.saveCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordSave is called after each save, including Incr/Decr.
	RecordSave(duration time.Duration, err error)

	// RecordGet is called after each point read. hit reports whether the key existed.
	RecordGet(duration time.Duration, hit bool)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, deleted bool)

	// RecordSearch is called after each search. hits is the number of rows returned.
	RecordSearch(hits int, duration time.Duration)

	// RecordDump is called after each snapshot dump.
	RecordDump(rows int, bytes int64, duration time.Duration, err error)

	// RecordRestore is called after each snapshot restore.
	RecordRestore(rows int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSave(time.Duration, error)             {}
func (NoopMetricsCollector) RecordGet(time.Duration, bool)               {}
func (NoopMetricsCollector) RecordDelete(time.Duration, bool)            {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration)             {}
func (NoopMetricsCollector) RecordDump(int, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordRestore(int, time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SaveCount        atomic.Int64
	SaveErrors       atomic.Int64
	SaveTotalNanos   atomic.Int64
	GetCount         atomic.Int64
	GetMisses        atomic.Int64
	DeleteCount      atomic.Int64
	SearchCount      atomic.Int64
	SearchHits       atomic.Int64
	SearchTotalNanos atomic.Int64
	DumpCount        atomic.Int64
	DumpErrors       atomic.Int64
	DumpBytes        atomic.Int64
	RestoreCount     atomic.Int64
	RestoreErrors    atomic.Int64
	RestoreRows      atomic.Int64
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(duration time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SaveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(_ time.Duration, hit bool) {
	b.GetCount.Add(1)
	if !hit {
		b.GetMisses.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(_ time.Duration, deleted bool) {
	if deleted {
		b.DeleteCount.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(hits int, duration time.Duration) {
	b.SearchCount.Add(1)
	b.SearchHits.Add(int64(hits))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
}

// RecordDump implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDump(_ int, bytes int64, _ time.Duration, err error) {
	b.DumpCount.Add(1)
	b.DumpBytes.Add(bytes)
	if err != nil {
		b.DumpErrors.Add(1)
	}
}

// RecordRestore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRestore(rows int, _ time.Duration, err error) {
	b.RestoreCount.Add(1)
	b.RestoreRows.Add(int64(rows))
	if err != nil {
		b.RestoreErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SaveCount:      b.SaveCount.Load(),
		SaveErrors:     b.SaveErrors.Load(),
		SaveAvgNanos:   avg(b.SaveTotalNanos.Load(), b.SaveCount.Load()),
		GetCount:       b.GetCount.Load(),
		GetMisses:      b.GetMisses.Load(),
		DeleteCount:    b.DeleteCount.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchHits:     b.SearchHits.Load(),
		SearchAvgNanos: avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		DumpCount:      b.DumpCount.Load(),
		DumpErrors:     b.DumpErrors.Load(),
		DumpBytes:      b.DumpBytes.Load(),
		RestoreCount:   b.RestoreCount.Load(),
		RestoreErrors:  b.RestoreErrors.Load(),
		RestoreRows:    b.RestoreRows.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SaveCount      int64
	SaveErrors     int64
	SaveAvgNanos   int64
	GetCount       int64
	GetMisses      int64
	DeleteCount    int64
	SearchCount    int64
	SearchHits     int64
	SearchAvgNanos int64
	DumpCount      int64
	DumpErrors     int64
	DumpBytes      int64
	RestoreCount   int64
	RestoreErrors  int64
	RestoreRows    int64
}
