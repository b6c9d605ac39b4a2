package vectra

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
//	    insertCounter prometheus.Counter
//	    findHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordInsert(duration time.Duration, err error) {
//	    p.insertCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	// duration is the total time taken, err is nil if successful.
	RecordInsert(duration time.Duration, err error)

	// RecordFind is called after each find operation.
	// k is the number of neighbors requested, duration is the time
	// taken, err is nil if successful.
	RecordFind(k int, duration time.Duration, err error)

	// RecordFlush is called after each flush pass (scheduler tick or
	// explicit flush). err is nil if every dirty entry persisted.
	RecordFlush(duration time.Duration, err error)

	// RecordEviction is called when a cached collection is removed.
	// dirty reports whether the entry still carried unflushed writes.
	RecordEviction(dirty bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)    {}
func (NoopMetricsCollector) RecordFind(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFlush(time.Duration, error)     {}
func (NoopMetricsCollector) RecordEviction(bool)                  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount     atomic.Int64
	InsertErrors    atomic.Int64
	InsertTotalNano atomic.Int64
	FindCount       atomic.Int64
	FindErrors      atomic.Int64
	FindTotalNanos  atomic.Int64
	FlushCount      atomic.Int64
	FlushErrors     atomic.Int64
	Evictions       atomic.Int64
	DirtyEvictions  atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNano.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordFind implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFind(k int, duration time.Duration, err error) {
	b.FindCount.Add(1)
	b.FindTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FindErrors.Add(1)
	}
}

// RecordFlush implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFlush(duration time.Duration, err error) {
	b.FlushCount.Add(1)
	if err != nil {
		b.FlushErrors.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(dirty bool) {
	b.Evictions.Add(1)
	if dirty {
		b.DirtyEvictions.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:    b.InsertCount.Load(),
		InsertErrors:   b.InsertErrors.Load(),
		InsertAvgNanos: b.getAvgInsertNanos(),
		FindCount:      b.FindCount.Load(),
		FindErrors:     b.FindErrors.Load(),
		FindAvgNanos:   b.getAvgFindNanos(),
		FlushCount:     b.FlushCount.Load(),
		FlushErrors:    b.FlushErrors.Load(),
		Evictions:      b.Evictions.Load(),
		DirtyEvictions: b.DirtyEvictions.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgInsertNanos() int64 {
	count := b.InsertCount.Load()
	if count == 0 {
		return 0
	}
	return b.InsertTotalNano.Load() / count
}

func (b *BasicMetricsCollector) getAvgFindNanos() int64 {
	count := b.FindCount.Load()
	if count == 0 {
		return 0
	}
	return b.FindTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount    int64 `json:"insert_count"`
	InsertErrors   int64 `json:"insert_errors"`
	InsertAvgNanos int64 `json:"insert_avg_nanos"`
	FindCount      int64 `json:"find_count"`
	FindErrors     int64 `json:"find_errors"`
	FindAvgNanos   int64 `json:"find_avg_nanos"`
	FlushCount     int64 `json:"flush_count"`
	FlushErrors    int64 `json:"flush_errors"`
	Evictions      int64 `json:"evictions"`
	DirtyEvictions int64 `json:"dirty_evictions"`
}
