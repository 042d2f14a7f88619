package altcache

import (
	"errors"

	"github.com/hupe1980/altcache/table"
)

var (
	// ErrStoreCorrupt is returned by LoadOrCreate when the backing file
	// exists but cannot be decoded as a snapshot.
	ErrStoreCorrupt = errors.New("store snapshot is corrupt")

	// ErrNoFetcher is returned by Update when data must be fetched but
	// no fetcher was configured.
	ErrNoFetcher = errors.New("no fetcher configured")

	// ErrTableNotFound is returned when a lookup references a table key
	// absent from the store.
	ErrTableNotFound = errors.New("lookup table not found")

	// ErrInvalidTableData is returned when cached bytes do not decode
	// as a structurally valid lookup table.
	ErrInvalidTableData = table.ErrInvalidTableData

	// ErrIndexOutOfRange is returned when a lookup index exceeds the
	// decoded table's address count.
	ErrIndexOutOfRange = errors.New("lookup index out of range")
)
