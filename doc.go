// Package altcache provides a persistent cache of address lookup
// tables and resolves table lookups from compact transaction messages
// into full account addresses.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	src, err := rpc.Dial("https://api.mainnet-beta.solana.com")
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	store, err := altcache.LoadOrCreate("~/.altcache/tables.bin",
//	    altcache.WithFetcher(src),
//	)
//	if err != nil {
//	    return err
//	}
//
//	// Make sure the tables a message references are cached. Already
//	// cached tables are not refetched.
//	if err := store.Update(ctx, keys, altcache.Append); err != nil {
//	    return err
//	}
//
//	// Resolve index references into addresses, offline.
//	loaded, err := store.LoadAddresses(lookups)
//
// # Update Modes
//
// Update runs in one of two modes:
//
//   - Append: fetch only keys not already cached. A fully cached key
//     set is a no-op with no network call and no save.
//   - Overwrite: refetch every given key regardless of presence.
//
// Keys the data source has no account for are silently skipped;
// absence is not failure.
//
// # Durability Model
//
// The full table mapping is snapshotted to the backing file after every
// successful update. Snapshots are replaced atomically (temp file +
// rename), so a crash mid-save leaves the previous snapshot intact.
// Loading a corrupt snapshot fails with ErrStoreCorrupt rather than
// silently starting empty.
//
// # Resolution Semantics
//
// LoadAddresses is pure, ordered, and fail-fast: output follows input
// index order exactly, across lookups in request order, and the first
// missing table, undecodable table, or out-of-range index aborts the
// whole call with no partial result.
package altcache
