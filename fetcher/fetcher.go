// Package fetcher defines the data-source contract altcache fetches
// account data through, plus small adapters for tests and offline use.
//
// A Fetcher serves ONE batch per call; the cache store owns splitting a
// larger key set into BatchLimit-sized batches and merging the results
// by key. Output ordering carries no meaning.
//
// Omission is not failure: a key with no corresponding account is simply
// absent from the result. Errors are reserved for transport or protocol
// failures affecting the whole batch.
package fetcher

import (
	"context"
	"fmt"

	"github.com/hupe1980/altcache/model"
)

// DefaultBatchLimit is the batch limit used by adapters that have no
// inherent limit of their own. It matches the getMultipleAccounts
// per-call account limit.
const DefaultBatchLimit = 100

// Account pairs a requested key with the raw account data returned for
// it.
type Account struct {
	Key  model.Pubkey
	Data []byte
}

// Fetcher retrieves raw account data for a batch of keys.
//
// Implementations must return at most one Account per requested key and
// may return fewer Accounts than keys. Implementations must not be
// called with more than BatchLimit() keys.
type Fetcher interface {
	// Fetch returns account data for the keys that exist.
	Fetch(ctx context.Context, keys []model.Pubkey) ([]Account, error)

	// BatchLimit returns the maximum number of keys per Fetch call.
	BatchLimit() int
}

// Func adapts a function to the Fetcher interface with the default
// batch limit.
type Func func(ctx context.Context, keys []model.Pubkey) ([]Account, error)

// Fetch implements Fetcher.
func (f Func) Fetch(ctx context.Context, keys []model.Pubkey) ([]Account, error) {
	return f(ctx, keys)
}

// BatchLimit implements Fetcher.
func (f Func) BatchLimit() int {
	return DefaultBatchLimit
}

// Static is a map-backed Fetcher for tests and offline use. Keys absent
// from the map are omitted from results.
type Static map[model.Pubkey][]byte

// Fetch implements Fetcher.
func (s Static) Fetch(ctx context.Context, keys []model.Pubkey) ([]Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(keys) > s.BatchLimit() {
		return nil, fmt.Errorf("batch of %d keys exceeds limit %d", len(keys), s.BatchLimit())
	}

	var accounts []Account
	for _, key := range keys {
		data, ok := s[key]
		if !ok {
			continue
		}
		copied := make([]byte, len(data))
		copy(copied, data)
		accounts = append(accounts, Account{Key: key, Data: copied})
	}
	return accounts, nil
}

// BatchLimit implements Fetcher.
func (s Static) BatchLimit() int {
	return DefaultBatchLimit
}
