package altcache

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
//	    updateCounter    prometheus.Counter
//	    resolveHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordUpdate(fetched int, duration time.Duration, err error) {
//	    p.updateCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordUpdate is called after each Update call. fetched is the
	// number of accounts merged into the store, duration is the total
	// time taken, err is nil if successful.
	RecordUpdate(fetched int, duration time.Duration, err error)

	// RecordFetchBatch is called after each data-source batch call.
	// requested is the number of keys asked for, returned the number of
	// accounts the source had data for.
	RecordFetchBatch(requested, returned int, duration time.Duration, err error)

	// RecordResolve is called after each LoadAddresses call. lookups is
	// the number of table lookups processed.
	RecordResolve(lookups int, duration time.Duration, err error)

	// RecordSave is called after each snapshot save. bytes is the
	// encoded snapshot size.
	RecordSave(bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpdate(int, time.Duration, error)          {}
func (NoopMetricsCollector) RecordFetchBatch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordResolve(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordSave(int, time.Duration, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UpdateCount       atomic.Int64
	UpdateErrors      atomic.Int64
	UpdateTotalNanos  atomic.Int64
	FetchedAccounts   atomic.Int64
	FetchBatches      atomic.Int64
	FetchErrors       atomic.Int64
	ResolveCount      atomic.Int64
	ResolveErrors     atomic.Int64
	ResolveTotalNanos atomic.Int64
	SaveCount         atomic.Int64
	SaveErrors        atomic.Int64
	SavedBytes        atomic.Int64
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(fetched int, duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	b.UpdateTotalNanos.Add(duration.Nanoseconds())
	b.FetchedAccounts.Add(int64(fetched))
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordFetchBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetchBatch(requested, returned int, duration time.Duration, err error) {
	b.FetchBatches.Add(1)
	if err != nil {
		b.FetchErrors.Add(1)
	}
}

// RecordResolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResolve(lookups int, duration time.Duration, err error) {
	b.ResolveCount.Add(1)
	b.ResolveTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ResolveErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(bytes int, duration time.Duration, err error) {
	b.SaveCount.Add(1)
	b.SavedBytes.Add(int64(bytes))
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// BasicMetricsStats is a point-in-time snapshot of collected metrics.
type BasicMetricsStats struct {
	UpdateCount     int64
	UpdateErrors    int64
	UpdateAvgNanos  int64
	FetchedAccounts int64
	FetchBatches    int64
	FetchErrors     int64
	ResolveCount    int64
	ResolveErrors   int64
	ResolveAvgNanos int64
	SaveCount       int64
	SaveErrors      int64
	SavedBytes      int64
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpdateCount:     b.UpdateCount.Load(),
		UpdateErrors:    b.UpdateErrors.Load(),
		UpdateAvgNanos:  avgNanos(&b.UpdateTotalNanos, &b.UpdateCount),
		FetchedAccounts: b.FetchedAccounts.Load(),
		FetchBatches:    b.FetchBatches.Load(),
		FetchErrors:     b.FetchErrors.Load(),
		ResolveCount:    b.ResolveCount.Load(),
		ResolveErrors:   b.ResolveErrors.Load(),
		ResolveAvgNanos: avgNanos(&b.ResolveTotalNanos, &b.ResolveCount),
		SaveCount:       b.SaveCount.Load(),
		SaveErrors:      b.SaveErrors.Load(),
		SavedBytes:      b.SavedBytes.Load(),
	}
}

func avgNanos(total, count *atomic.Int64) int64 {
	n := count.Load()
	if n == 0 {
		return 0
	}
	return total.Load() / n
}
