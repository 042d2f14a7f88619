package altcache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/altcache/blobstore"
	"github.com/hupe1980/altcache/fetcher"
	"github.com/hupe1980/altcache/model"
)

// UpdateMode controls how Update treats keys already present in the
// store.
type UpdateMode int

const (
	// Append fetches data only for keys not already present.
	Append UpdateMode = iota
	// Overwrite refetches data for every given key, regardless of
	// existing entries.
	Overwrite
)

// String returns the mode name.
func (m UpdateMode) String() string {
	switch m {
	case Append:
		return "append"
	case Overwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

const defaultFetchConcurrency = 4

// Store is a persistent cache of lookup-table account data keyed by
// account pubkey.
//
// The in-memory mapping is the source of truth between saves; the full
// mapping is snapshotted to the backing blob after every successful
// Update. Reads may proceed concurrently; Update serializes the
// merge-and-persist step while the network fetch itself runs outside
// the lock.
type Store struct {
	name             string
	blob             blobstore.BlobStore
	fetcher          fetcher.Fetcher
	logger           *Logger
	metrics          MetricsCollector
	compression      Compression
	fetchConcurrency int

	mu     sync.RWMutex
	tables map[model.Pubkey][]byte
}

// LoadOrCreate opens the store backed by the given path.
//
// If the backing file exists it is decoded fully into memory; a file
// that cannot be decoded fails with ErrStoreCorrupt. If it does not
// exist, an empty file is created so a later process sees a valid
// (empty) store even if no update ever succeeds.
//
// With WithBlobStore, path is the blob name inside that store instead
// of a filesystem path.
func LoadOrCreate(ctx context.Context, path string, optFns ...Option) (*Store, error) {
	opts := options{
		metricsCollector: NoopMetricsCollector{},
		fetchConcurrency: defaultFetchConcurrency,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = NoopLogger()
	}
	if opts.fetchConcurrency < 1 {
		opts.fetchConcurrency = defaultFetchConcurrency
	}

	name := path
	blob := opts.blob
	if blob == nil {
		blob = blobstore.NewLocalStore(filepath.Dir(path))
		name = filepath.Base(path)
	}

	s := &Store{
		name:             name,
		blob:             blob,
		fetcher:          opts.fetcher,
		logger:           opts.logger,
		metrics:          opts.metricsCollector,
		compression:      opts.compression,
		fetchConcurrency: opts.fetchConcurrency,
	}

	data, err := blob.Get(ctx, name)
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		if err := blob.Put(ctx, name, nil); err != nil {
			return nil, fmt.Errorf("create store at %s: %w", path, err)
		}
		s.tables = make(map[model.Pubkey][]byte)
	case err != nil:
		return nil, fmt.Errorf("read store at %s: %w", path, err)
	default:
		tables, err := decodeSnapshot(data)
		if err != nil {
			return nil, fmt.Errorf("load store at %s: %w", path, err)
		}
		s.tables = tables
	}

	s.logger.Debug("store opened", "path", path, "tables", len(s.tables))
	return s, nil
}

// Contains reports whether the store holds data for the given key.
func (s *Store) Contains(key model.Pubkey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tables[key]
	return ok
}

// Len returns the number of cached tables.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tables)
}

// Keys returns the cached table keys in unspecified order.
func (s *Store) Keys() []model.Pubkey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]model.Pubkey, 0, len(s.tables))
	for key := range s.tables {
		keys = append(keys, key)
	}
	return keys
}

// Get returns a copy of the raw account data cached for the given key.
func (s *Store) Get(key model.Pubkey) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.tables[key]
	if !ok {
		return nil, false
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, true
}

// Update ensures the store holds data for the given keys, fetching
// through the configured data source as the mode demands and
// persisting the merged mapping.
//
// Keys the data source has no account for are skipped without error.
// An empty fetch set short-circuits: no fetch, no save. On a fetch
// error nothing is merged and nothing is saved; on a persist error the
// in-memory mapping may be ahead of disk and the caller should retry
// (Append mode retries only the still-missing subset).
func (s *Store) Update(ctx context.Context, keys []model.Pubkey, mode UpdateMode) error {
	start := time.Now()
	fetched, err := s.update(ctx, keys, mode)
	s.metrics.RecordUpdate(fetched, time.Since(start), err)
	return err
}

func (s *Store) update(ctx context.Context, keys []model.Pubkey, mode UpdateMode) (int, error) {
	fetchKeys := s.missing(keys, mode)
	if len(fetchKeys) == 0 {
		s.logger.Debug("update is a no-op", "keys", len(keys), "mode", mode.String())
		return 0, nil
	}
	if s.fetcher == nil {
		return 0, ErrNoFetcher
	}

	// Fetch outside the lock: readers and the resolver stay unblocked
	// during network latency.
	accounts, err := s.fetchAll(ctx, fetchKeys)
	if err != nil {
		return 0, fmt.Errorf("fetch %d accounts: %w", len(fetchKeys), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range accounts {
		s.tables[acc.Key] = acc.Data
	}
	if err := s.saveLocked(ctx); err != nil {
		return len(accounts), err
	}

	s.logger.Debug("store updated",
		"mode", mode.String(),
		"requested", len(keys),
		"fetched", len(fetchKeys),
		"returned", len(accounts),
		"tables", len(s.tables),
	)
	return len(accounts), nil
}

// missing computes the deduplicated fetch set for the given mode,
// preserving first-occurrence order.
func (s *Store) missing(keys []model.Pubkey, mode UpdateMode) []model.Pubkey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[model.Pubkey]struct{}, len(keys))
	fetchKeys := make([]model.Pubkey, 0, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if mode == Append {
			if _, ok := s.tables[key]; ok {
				continue
			}
		}
		fetchKeys = append(fetchKeys, key)
	}
	return fetchKeys
}

// fetchAll splits keys into batches within the fetcher's limit and
// fetches them with bounded concurrency. Results are merged by key;
// batch output order carries no meaning.
func (s *Store) fetchAll(ctx context.Context, keys []model.Pubkey) ([]fetcher.Account, error) {
	limit := s.fetcher.BatchLimit()
	if limit < 1 {
		limit = fetcher.DefaultBatchLimit
	}

	batches := make([][]model.Pubkey, 0, (len(keys)+limit-1)/limit)
	for len(keys) > limit {
		batches = append(batches, keys[:limit])
		keys = keys[limit:]
	}
	batches = append(batches, keys)

	results := make([][]fetcher.Account, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i, batch := range batches {
		g.Go(func() error {
			batchStart := time.Now()
			accounts, err := s.fetcher.Fetch(gctx, batch)
			s.metrics.RecordFetchBatch(len(batch), len(accounts), time.Since(batchStart), err)
			if err != nil {
				return err
			}
			results[i] = accounts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var accounts []fetcher.Account
	for _, r := range results {
		accounts = append(accounts, r...)
	}
	return accounts, nil
}

// Save persists the full mapping to the backing blob, replacing prior
// content atomically. Update calls it automatically; Save is exposed
// for callers that mutate nothing but want to rewrite the snapshot,
// e.g. after changing the compression option.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(ctx)
}

func (s *Store) saveLocked(ctx context.Context) error {
	start := time.Now()

	data, err := encodeSnapshot(s.tables, s.compression)
	if err == nil {
		err = s.blob.Put(ctx, s.name, data)
	}
	s.metrics.RecordSave(len(data), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}

	s.logger.Debug("snapshot saved", "tables", len(s.tables), "bytes", len(data), "codec", s.compression.String())
	return nil
}
