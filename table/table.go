// Package table decodes raw on-chain account data into address lookup
// tables.
//
// Decoding is a pure function over the input bytes: it never mutates the
// source, has no I/O, and fails with ErrInvalidTableData on any
// structurally malformed input. It performs no cryptographic or
// consensus validation of the account contents.
package table

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/altcache/model"
)

// MetaSize is the serialized size in bytes of the lookup-table meta
// section. The address list starts at this offset.
const MetaSize = 56

// Account state discriminants, little-endian uint32 at offset 0.
const (
	stateUninitialized = 0
	stateLookupTable   = 1
)

// ErrInvalidTableData is returned when account bytes do not form a
// structurally valid lookup table.
var ErrInvalidTableData = errors.New("invalid lookup table data")

// Meta is the decoded lookup-table header.
type Meta struct {
	// DeactivationSlot is the slot at which the table was deactivated,
	// or the max uint64 if the table is active.
	DeactivationSlot uint64
	// LastExtendedSlot is the slot the table was last extended in.
	LastExtendedSlot uint64
	// LastExtendedSlotStartIndex is the index of the first address
	// appended during the last extension.
	LastExtendedSlotStartIndex uint8
	// Authority may close or extend the table. Nil for frozen tables.
	Authority *model.Pubkey
}

// AddressLookupTable is a decoded view over one account's data: the
// meta header plus the ordered address list.
type AddressLookupTable struct {
	Meta      Meta
	Addresses []model.Pubkey
}

// Deserialize decodes raw account bytes into an AddressLookupTable.
//
// Layout: a MetaSize-byte header (u32 state discriminant, u64
// deactivation slot, u64 last extended slot, u8 start index, optional
// authority as a 1-byte tag plus 32 bytes, 2 bytes padding) followed by
// a sequence of 32-byte addresses.
func Deserialize(data []byte) (*AddressLookupTable, error) {
	if len(data) < MetaSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the %d-byte meta", ErrInvalidTableData, len(data), MetaSize)
	}

	state := binary.LittleEndian.Uint32(data[0:4])
	switch state {
	case stateLookupTable:
	case stateUninitialized:
		return nil, fmt.Errorf("%w: account is uninitialized", ErrInvalidTableData)
	default:
		return nil, fmt.Errorf("%w: unknown state discriminant %d", ErrInvalidTableData, state)
	}

	meta := Meta{
		DeactivationSlot:           binary.LittleEndian.Uint64(data[4:12]),
		LastExtendedSlot:           binary.LittleEndian.Uint64(data[12:20]),
		LastExtendedSlotStartIndex: data[20],
	}

	switch tag := data[21]; tag {
	case 0:
	case 1:
		authority, err := model.PubkeyFromBytes(data[22 : 22+model.PubkeySize])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTableData, err)
		}
		meta.Authority = &authority
	default:
		return nil, fmt.Errorf("%w: invalid authority tag %d", ErrInvalidTableData, tag)
	}

	raw := data[MetaSize:]
	if len(raw)%model.PubkeySize != 0 {
		return nil, fmt.Errorf("%w: address section of %d bytes is not a multiple of %d", ErrInvalidTableData, len(raw), model.PubkeySize)
	}

	addresses := make([]model.Pubkey, len(raw)/model.PubkeySize)
	for i := range addresses {
		copy(addresses[i][:], raw[i*model.PubkeySize:])
	}

	return &AddressLookupTable{
		Meta:      meta,
		Addresses: addresses,
	}, nil
}

// Len returns the number of addresses in the table.
func (t *AddressLookupTable) Len() int {
	return len(t.Addresses)
}

// Lookup returns the address at the given zero-based position.
// ok is false when the index is out of range.
func (t *AddressLookupTable) Lookup(index uint8) (model.Pubkey, bool) {
	if int(index) >= len(t.Addresses) {
		return model.Pubkey{}, false
	}
	return t.Addresses[index], true
}
