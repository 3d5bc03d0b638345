// Package merkle builds the binary merkle roots used for both a
// block body's bodyHash and a block interlink's interlinkHash, so the
// two commitments share one construction: a binary hash tree that
// duplicates the last leaf whenever a level has an odd count.
package merkle

import "github.com/floxnode/floxnode/chainhash"

// HashFunc hashes an arbitrary byte slice to a 32-byte digest. It is
// satisfied by the external crypto contract's hash function.
type HashFunc func([]byte) chainhash.Hash

// Root computes the merkle root over leaves, each already hashed by
// the caller. An odd level duplicates its last entry before pairing.
// An empty leaf set returns the zero hash.
func Root(hash HashFunc, leaves []chainhash.Hash) chainhash.Hash {
	if len(leaves) == 0 {
		return chainhash.Zero
	}
	level := make([]chainhash.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]chainhash.Hash, len(level)/2)
		for i := range next {
			pair := make([]byte, 0, chainhash.HashSize*2)
			pair = append(pair, level[2*i][:]...)
			pair = append(pair, level[2*i+1][:]...)
			next[i] = hash(pair)
		}
		level = next
	}
	return level[0]
}
