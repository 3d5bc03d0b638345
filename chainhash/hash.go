// Package chainhash defines the 32-byte hash type used for block
// headers, accounts-tree nodes and transactions throughout floxnode.
package chainhash

import (
	"encoding/hex"
	"errors"
)

// HashSize is the number of bytes in a Hash.
const HashSize = 32

// Hash is a 32-byte hash value, most often the output of the external
// crypto contract's hash function over a canonical serialization.
type Hash [HashSize]byte

// Zero is the all-zero hash, used as the genesis block's prevHash. The
// empty accounts tree's root hash is a separate value, not Zero.
var Zero Hash

// String returns the hash as a hex string.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == Zero
}

// CloneBytes returns a newly allocated copy of the hash bytes.
func (h Hash) CloneBytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// NewFromString parses a hex-encoded hash.
func NewFromString(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != HashSize {
		return h, errors.New("chainhash: invalid hash string length")
	}
	copy(h[:], b)
	return h, nil
}

// NewFromBytes builds a Hash from a byte slice, which must be exactly
// HashSize long.
func NewFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, errors.New("chainhash: invalid hash byte length")
	}
	copy(h[:], b)
	return h, nil
}

// Less provides a total order over hashes: it compares them byte by
// byte, lexicographically.
func (h Hash) Less(other Hash) bool {
	for i := 0; i < HashSize; i++ {
		if h[i] != other[i] {
			return h[i] < other[i]
		}
	}
	return false
}
