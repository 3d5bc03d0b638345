// Package primitives defines the wire-exact data model of floxnode:
// addresses, accounts, transactions, block headers/interlinks/bodies
// and the assembled Block, plus their canonical big-endian
// serializations.
package primitives

import (
	"encoding/hex"
	"errors"

	"github.com/kkdai/bstream"
)

// AddressSize is the length in bytes of an Address.
const AddressSize = 20

// Address is a 20-byte account identifier derived from a public key.
type Address [AddressSize]byte

// ZeroAddress is the all-zero address. Transaction validation does not
// treat it specially.
var ZeroAddress Address

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// AddressFromBytes builds an Address from a byte slice of exactly
// AddressSize bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressSize {
		return a, errors.New("primitives: invalid address length")
	}
	copy(a[:], b)
	return a, nil
}

// Nibbles returns the 40 hex nibbles (4 bits each, most significant
// first) of the address, used as the key path in the accounts tree.
// Reading 4 bits at a time off a bstream.BStream keeps this symmetric
// with how the trie itself is walked one nibble per level.
func (a Address) Nibbles() []byte {
	r := bstream.NewBStreamReader(a[:])
	nibbles := make([]byte, AddressSize*2)
	for i := range nibbles {
		v, err := r.ReadBits(4)
		if err != nil {
			panic("primitives: address nibble read: " + err.Error())
		}
		nibbles[i] = byte(v)
	}
	return nibbles
}
