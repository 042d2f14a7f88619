package altcache

import (
	"fmt"
	"time"

	"github.com/hupe1980/altcache/model"
	"github.com/hupe1980/altcache/table"
)

// LoadAddresses resolves the given table lookups into full addresses
// using only cached data; it never touches the network and never
// mutates the store.
//
// Lookups are processed strictly in input order and each index list in
// element order: Writable holds every writable resolution concatenated
// across lookups, Readonly likewise. Duplicates are preserved. The
// first missing table (ErrTableNotFound), undecodable table
// (ErrInvalidTableData), or out-of-range index (ErrIndexOutOfRange)
// aborts the whole call with no partial result.
func (s *Store) LoadAddresses(lookups []model.TableLookup) (model.LoadedAddresses, error) {
	start := time.Now()
	loaded, err := s.loadAddresses(lookups)
	s.metrics.RecordResolve(len(lookups), time.Since(start), err)
	return loaded, err
}

func (s *Store) loadAddresses(lookups []model.TableLookup) (model.LoadedAddresses, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var loaded model.LoadedAddresses
	for _, lookup := range lookups {
		data, ok := s.tables[lookup.AccountKey]
		if !ok {
			return model.LoadedAddresses{}, fmt.Errorf("%w: %s", ErrTableNotFound, lookup.AccountKey)
		}

		alt, err := table.Deserialize(data)
		if err != nil {
			return model.LoadedAddresses{}, fmt.Errorf("table %s: %w", lookup.AccountKey, err)
		}

		for _, index := range lookup.WritableIndexes {
			addr, ok := alt.Lookup(index)
			if !ok {
				return model.LoadedAddresses{}, indexError(lookup.AccountKey, index, alt.Len())
			}
			loaded.Writable = append(loaded.Writable, addr)
		}
		for _, index := range lookup.ReadonlyIndexes {
			addr, ok := alt.Lookup(index)
			if !ok {
				return model.LoadedAddresses{}, indexError(lookup.AccountKey, index, alt.Len())
			}
			loaded.Readonly = append(loaded.Readonly, addr)
		}
	}
	return loaded, nil
}

func indexError(key model.Pubkey, index uint8, size int) error {
	return fmt.Errorf("%w: index %d exceeds %d addresses in table %s", ErrIndexOutOfRange, index, size, key)
}
