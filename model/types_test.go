package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubkeyFromBytes(t *testing.T) {
	b := make([]byte, PubkeySize)
	for i := range b {
		b[i] = byte(i)
	}

	pk, err := PubkeyFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, b, pk.Bytes())

	// Mutating the source must not affect the pubkey.
	b[0] = 0xff
	assert.Equal(t, byte(0), pk[0])

	_, err = PubkeyFromBytes(b[:31])
	assert.Error(t, err)

	_, err = PubkeyFromBytes(append(b, 0))
	assert.Error(t, err)
}

func TestParsePubkey(t *testing.T) {
	// The Solana address lookup table program id.
	const s = "AddressLookupTab1e1111111111111111111111111"

	pk, err := ParsePubkey(s)
	require.NoError(t, err)
	assert.Equal(t, s, pk.String())
	assert.False(t, pk.IsZero())

	_, err = ParsePubkey("not-base58-0OIl")
	assert.Error(t, err)

	// Valid base58 but wrong length.
	_, err = ParsePubkey("abc")
	assert.Error(t, err)
}

func TestPubkeyRoundTrip(t *testing.T) {
	var pk Pubkey
	for i := range pk {
		pk[i] = byte(255 - i)
	}

	parsed, err := ParsePubkey(pk.String())
	require.NoError(t, err)
	assert.Equal(t, pk, parsed)
}

func TestPubkeyIsZero(t *testing.T) {
	var pk Pubkey
	assert.True(t, pk.IsZero())

	pk[31] = 1
	assert.False(t, pk.IsZero())
}

func TestLoadedAddressesNumLoaded(t *testing.T) {
	la := LoadedAddresses{
		Writable: []Pubkey{{1}, {2}},
		Readonly: []Pubkey{{3}},
	}
	assert.Equal(t, 3, la.NumLoaded())
	assert.Equal(t, 0, LoadedAddresses{}.NumLoaded())
}
