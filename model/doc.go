// Package model defines core types shared across altcache.
//
// # Identity Types
//
//   - Pubkey: 32-byte account identifier (cache key and addressable value)
//
// # Resolution Types
//
//   - TableLookup: one lookup-table reference from a transaction message
//     (target table plus ordered writable/readonly index lists)
//   - LoadedAddresses: the resolved writable and readonly address lists
package model
