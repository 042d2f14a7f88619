package altcache

import (
	"github.com/hupe1980/altcache/blobstore"
	"github.com/hupe1980/altcache/fetcher"
)

type options struct {
	fetcher          fetcher.Fetcher
	logger           *Logger
	metricsCollector MetricsCollector
	compression      Compression
	fetchConcurrency int
	blob             blobstore.BlobStore
}

// Option configures Store constructor behavior.
type Option func(*options)

// WithFetcher configures the data source used by Update to fetch
// account data for missing keys. Without a fetcher the store is
// read-only: Update fails as soon as data would have to be fetched.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithLogger configures structured logging. If nil is passed, logging
// is disabled (the default).
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures operational metrics collection.
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCompression selects the snapshot body compression codec.
// The codec used to write a snapshot is recorded in its header, so a
// store can always load snapshots written with a different setting.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithFetchConcurrency caps the number of data-source batches in
// flight during one Update call. Values below 1 fall back to the
// default of 4.
func WithFetchConcurrency(n int) Option {
	return func(o *options) {
		o.fetchConcurrency = n
	}
}

// WithBlobStore persists snapshots through the given blob store
// instead of the local filesystem; the path passed to LoadOrCreate is
// then used as the blob name. The store must honor the BlobStore
// atomic-replace contract for the crash guarantees to hold.
func WithBlobStore(bs blobstore.BlobStore) Option {
	return func(o *options) {
		o.blob = bs
	}
}
