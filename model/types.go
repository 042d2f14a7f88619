package model

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PubkeySize is the length in bytes of a Pubkey.
const PubkeySize = 32

// Pubkey is a fixed-size account identifier.
//
// It is comparable and therefore usable as a map key. Equality is
// byte-exact; there are no ordering semantics beyond identity.
type Pubkey [PubkeySize]byte

// PubkeyFromBytes creates a Pubkey from a byte slice.
// The slice must be exactly PubkeySize bytes long.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != PubkeySize {
		return pk, fmt.Errorf("invalid pubkey length: expected %d, got %d", PubkeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// ParsePubkey decodes a base58-encoded pubkey string.
func ParsePubkey(s string) (Pubkey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("invalid pubkey %q: %w", s, err)
	}
	return PubkeyFromBytes(b)
}

// MustParsePubkey is like ParsePubkey but panics on invalid input.
// Intended for tests and static initializers.
func MustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// String returns the base58 text form of the pubkey.
func (pk Pubkey) String() string {
	return base58.Encode(pk[:])
}

// Bytes returns a copy of the pubkey bytes.
func (pk Pubkey) Bytes() []byte {
	b := make([]byte, PubkeySize)
	copy(b, pk[:])
	return b
}

// IsZero reports whether the pubkey is the all-zero value.
func (pk Pubkey) IsZero() bool {
	return pk == Pubkey{}
}

// TableLookup references one lookup table within a transaction message:
// the table's account key plus the ordered index lists to resolve.
//
// Index order is significant and duplicates are allowed; the resolver
// preserves both.
type TableLookup struct {
	// AccountKey is the address of the lookup-table account to consult.
	AccountKey Pubkey
	// WritableIndexes are positions of addresses loaded as writable.
	WritableIndexes []uint8
	// ReadonlyIndexes are positions of addresses loaded as readonly.
	ReadonlyIndexes []uint8
}

// LoadedAddresses holds resolved addresses for a sequence of table
// lookups. Writable holds the concatenated writable resolutions in
// request order, Readonly likewise.
type LoadedAddresses struct {
	Writable []Pubkey
	Readonly []Pubkey
}

// NumLoaded returns the total number of resolved addresses.
func (la LoadedAddresses) NumLoaded() int {
	return len(la.Writable) + len(la.Readonly)
}
