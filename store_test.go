package altcache

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/altcache/blobstore"
	"github.com/hupe1980/altcache/fetcher"
	"github.com/hupe1980/altcache/model"
)

// makeTableData builds raw account bytes for an initialized lookup
// table holding the given addresses.
func makeTableData(addresses ...model.Pubkey) []byte {
	data := make([]byte, 56, 56+len(addresses)*model.PubkeySize)
	binary.LittleEndian.PutUint32(data[0:4], 1) // initialized lookup table
	for _, addr := range addresses {
		data = append(data, addr[:]...)
	}
	return data
}

// countingFetcher serves from a fixed map and records every batch it is
// asked for. Safe for concurrent use.
type countingFetcher struct {
	src   fetcher.Static
	limit int

	mu      sync.Mutex
	batches [][]model.Pubkey
}

func (c *countingFetcher) Fetch(ctx context.Context, keys []model.Pubkey) ([]fetcher.Account, error) {
	c.mu.Lock()
	batch := make([]model.Pubkey, len(keys))
	copy(batch, keys)
	c.batches = append(c.batches, batch)
	c.mu.Unlock()

	return c.src.Fetch(ctx, keys)
}

func (c *countingFetcher) BatchLimit() int {
	if c.limit > 0 {
		return c.limit
	}
	return fetcher.DefaultBatchLimit
}

func (c *countingFetcher) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func (c *countingFetcher) requested() []model.Pubkey {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []model.Pubkey
	for _, batch := range c.batches {
		keys = append(keys, batch...)
	}
	return keys
}

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "tables.bin")
}

func TestLoadOrCreate_CreatesEmpty(t *testing.T) {
	ctx := context.Background()
	path := storePath(t)

	store, err := LoadOrCreate(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	// The backing file exists immediately, before any update.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size())

	// A second open sees the same empty store.
	again, err := LoadOrCreate(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Len())
}

func TestLoadOrCreate_Corrupt(t *testing.T) {
	ctx := context.Background()
	path := storePath(t)
	require.NoError(t, os.WriteFile(path, []byte("definitely not a snapshot"), 0o644))

	_, err := LoadOrCreate(ctx, path)
	assert.ErrorIs(t, err, ErrStoreCorrupt)
}

func TestUpdate_AppendIdempotent(t *testing.T) {
	ctx := context.Background()

	key1 := model.Pubkey{1}
	key2 := model.Pubkey{2}
	src := &countingFetcher{src: fetcher.Static{
		key1: makeTableData(model.Pubkey{0xa}),
		key2: makeTableData(model.Pubkey{0xb}),
	}}

	store, err := LoadOrCreate(ctx, storePath(t), WithFetcher(src))
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, []model.Pubkey{key1, key2}, Append))
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, []model.Pubkey{key1, key2}, src.requested())

	// Everything is present: the second call must not fetch or save.
	require.NoError(t, store.Update(ctx, []model.Pubkey{key1, key2}, Append))
	assert.Equal(t, 1, src.calls())
	assert.Equal(t, 2, store.Len())
}

func TestUpdate_AppendFetchesOnlyMissing(t *testing.T) {
	ctx := context.Background()

	key1 := model.Pubkey{1}
	key2 := model.Pubkey{2}
	src := &countingFetcher{src: fetcher.Static{
		key1: makeTableData(),
		key2: makeTableData(),
	}}

	store, err := LoadOrCreate(ctx, storePath(t), WithFetcher(src))
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, []model.Pubkey{key1}, Append))
	require.NoError(t, store.Update(ctx, []model.Pubkey{key1, key2}, Append))

	assert.Equal(t, []model.Pubkey{key1, key2}, src.requested())
}

func TestUpdate_OverwriteRefetchesAll(t *testing.T) {
	ctx := context.Background()

	key := model.Pubkey{1}
	src := &countingFetcher{src: fetcher.Static{key: makeTableData()}}

	store, err := LoadOrCreate(ctx, storePath(t), WithFetcher(src))
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, []model.Pubkey{key}, Overwrite))
	require.NoError(t, store.Update(ctx, []model.Pubkey{key}, Overwrite))

	assert.Equal(t, []model.Pubkey{key, key}, src.requested())

	// Overwrite picks up new data for a present key.
	newData := makeTableData(model.Pubkey{0xff})
	src.src[key] = newData
	require.NoError(t, store.Update(ctx, []model.Pubkey{key}, Overwrite))

	got, ok := store.Get(key)
	require.True(t, ok)
	assert.Equal(t, newData, got)
}

func TestUpdate_EmptyShortCircuit(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}

	src := &countingFetcher{src: fetcher.Static{}}
	store, err := LoadOrCreate(ctx, storePath(t),
		WithFetcher(src),
		WithMetricsCollector(metrics),
	)
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, nil, Append))
	require.NoError(t, store.Update(ctx, nil, Overwrite))

	assert.Equal(t, 0, src.calls())
	assert.Equal(t, int64(0), metrics.SaveCount.Load())
}

func TestUpdate_NotFoundKeysSkipped(t *testing.T) {
	ctx := context.Background()

	known := model.Pubkey{1}
	unknown := model.Pubkey{2}
	src := &countingFetcher{src: fetcher.Static{known: makeTableData()}}

	store, err := LoadOrCreate(ctx, storePath(t), WithFetcher(src))
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, []model.Pubkey{known, unknown}, Append))
	assert.True(t, store.Contains(known))
	assert.False(t, store.Contains(unknown))

	// The unknown key stays missing and is refetched on retry.
	require.NoError(t, store.Update(ctx, []model.Pubkey{known, unknown}, Append))
	assert.Equal(t, []model.Pubkey{known, unknown, unknown}, src.requested())
}

func TestUpdate_DuplicateKeysCollapse(t *testing.T) {
	ctx := context.Background()

	key := model.Pubkey{1}
	src := &countingFetcher{src: fetcher.Static{key: makeTableData()}}

	store, err := LoadOrCreate(ctx, storePath(t), WithFetcher(src))
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, []model.Pubkey{key, key, key}, Append))
	assert.Equal(t, []model.Pubkey{key}, src.requested())
	assert.Equal(t, 1, store.Len())
}

func TestUpdate_FetchErrorPropagates(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}

	fetchErr := errors.New("connection refused")
	src := fetcher.Func(func(context.Context, []model.Pubkey) ([]fetcher.Account, error) {
		return nil, fetchErr
	})

	store, err := LoadOrCreate(ctx, storePath(t),
		WithFetcher(src),
		WithMetricsCollector(metrics),
	)
	require.NoError(t, err)

	err = store.Update(ctx, []model.Pubkey{{1}}, Append)
	require.ErrorIs(t, err, fetchErr)

	// Nothing merged, nothing saved.
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, int64(0), metrics.SaveCount.Load())
}

func TestUpdate_NoFetcher(t *testing.T) {
	ctx := context.Background()

	store, err := LoadOrCreate(ctx, storePath(t))
	require.NoError(t, err)

	// Empty fetch set needs no fetcher.
	require.NoError(t, store.Update(ctx, nil, Append))

	err = store.Update(ctx, []model.Pubkey{{1}}, Append)
	assert.ErrorIs(t, err, ErrNoFetcher)
}

func TestUpdate_ChunksToBatchLimit(t *testing.T) {
	ctx := context.Background()

	src := &countingFetcher{src: fetcher.Static{}, limit: 2}
	keys := make([]model.Pubkey, 5)
	for i := range keys {
		keys[i] = model.Pubkey{byte(i + 1)}
		src.src[keys[i]] = makeTableData()
	}

	store, err := LoadOrCreate(ctx, storePath(t), WithFetcher(src))
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, keys, Append))
	assert.Equal(t, 5, store.Len())

	require.Equal(t, 3, src.calls())
	for _, batch := range src.batches {
		assert.LessOrEqual(t, len(batch), 2)
	}
	assert.ElementsMatch(t, keys, src.requested())
}

func TestUpdate_PersistFailedSurfaces(t *testing.T) {
	ctx := context.Background()

	key := model.Pubkey{1}
	src := &countingFetcher{src: fetcher.Static{key: makeTableData()}}

	blob := &flakyBlobStore{BlobStore: blobstore.NewMemoryStore()}
	store, err := LoadOrCreate(ctx, "tables.bin", WithFetcher(src), WithBlobStore(blob))
	require.NoError(t, err)

	blob.failPuts = true
	err = store.Update(ctx, []model.Pubkey{key}, Append)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFetcher)

	// Memory is ahead of disk until a save succeeds.
	assert.True(t, store.Contains(key))

	blob.failPuts = false
	require.NoError(t, store.Save(ctx))

	reloaded, err := LoadOrCreate(ctx, "tables.bin", WithBlobStore(blob))
	require.NoError(t, err)
	assert.True(t, reloaded.Contains(key))
}

// flakyBlobStore fails Put on demand.
type flakyBlobStore struct {
	blobstore.BlobStore
	failPuts bool
}

func (f *flakyBlobStore) Put(ctx context.Context, name string, data []byte) error {
	if f.failPuts {
		return errors.New("disk full")
	}
	return f.BlobStore.Put(ctx, name, data)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := storePath(t)

	key1 := model.Pubkey{1}
	key2 := model.Pubkey{2}
	data1 := makeTableData(model.Pubkey{0xa}, model.Pubkey{0xb})
	data2 := makeTableData(model.Pubkey{0xc})

	src := &countingFetcher{src: fetcher.Static{key1: data1, key2: data2}}

	store, err := LoadOrCreate(ctx, path, WithFetcher(src))
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, []model.Pubkey{key1, key2}, Append))

	// A fresh store on the same path sees byte-exact values, offline.
	reloaded, err := LoadOrCreate(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Len())
	assert.ElementsMatch(t, []model.Pubkey{key1, key2}, reloaded.Keys())

	got1, ok := reloaded.Get(key1)
	require.True(t, ok)
	assert.Equal(t, data1, got1)

	got2, ok := reloaded.Get(key2)
	require.True(t, ok)
	assert.Equal(t, data2, got2)
}

func TestStore_RoundTripCompressed(t *testing.T) {
	for _, codec := range []Compression{CompressionZstd, CompressionLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			ctx := context.Background()
			path := storePath(t)

			key := model.Pubkey{9}
			data := makeTableData(model.Pubkey{1}, model.Pubkey{2}, model.Pubkey{3})
			src := &countingFetcher{src: fetcher.Static{key: data}}

			store, err := LoadOrCreate(ctx, path, WithFetcher(src), WithCompression(codec))
			require.NoError(t, err)
			require.NoError(t, store.Update(ctx, []model.Pubkey{key}, Append))

			// The codec is recorded in the snapshot header: reloading
			// without the option still works.
			reloaded, err := LoadOrCreate(ctx, path)
			require.NoError(t, err)

			got, ok := reloaded.Get(key)
			require.True(t, ok)
			assert.Equal(t, data, got)
		})
	}
}

func TestStore_GetCopiesData(t *testing.T) {
	ctx := context.Background()

	key := model.Pubkey{1}
	src := &countingFetcher{src: fetcher.Static{key: makeTableData(model.Pubkey{0xa})}}

	store, err := LoadOrCreate(ctx, storePath(t), WithFetcher(src))
	require.NoError(t, err)
	require.NoError(t, store.Update(ctx, []model.Pubkey{key}, Append))

	got, ok := store.Get(key)
	require.True(t, ok)
	got[0] = 0xff

	again, ok := store.Get(key)
	require.True(t, ok)
	assert.NotEqual(t, got[0], again[0])
}

func TestStore_ConcurrentReadsAndUpdates(t *testing.T) {
	ctx := context.Background()

	src := &countingFetcher{src: fetcher.Static{}}
	keys := make([]model.Pubkey, 32)
	for i := range keys {
		keys[i] = model.Pubkey{byte(i + 1)}
		src.src[keys[i]] = makeTableData(model.Pubkey{byte(i + 1)})
	}

	store, err := LoadOrCreate(ctx, storePath(t), WithFetcher(src))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range keys {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Update(ctx, []model.Pubkey{keys[i]}, Append))
		}()
		go func() {
			defer wg.Done()
			store.Contains(keys[i])
			store.Len()
		}()
	}
	wg.Wait()

	assert.Equal(t, len(keys), store.Len())
}
