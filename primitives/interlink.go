package primitives

import (
	"bytes"
	"errors"
	"io"
	"math/big"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/merkle"
)

// InterlinkLevels is the number of superblock levels tracked in every
// interlink. 64 levels comfortably covers any totalWork difference
// this network's difficulty bounds can produce.
const InterlinkLevels = 64

// BlockInterlink is the ordered list of ancestor hashes at
// exponentially increasing difficulty levels used for succinct chain
// proofs.
type BlockInterlink struct {
	Levels [InterlinkLevels]chainhash.Hash
}

// Derive computes the next block's interlink from its parent's
// interlink, the parent's hash and per-block work, and the work the
// next block itself must satisfy: level i is extended with parentHash
// whenever the parent's own work is at least 2^i times the next
// block's required work, otherwise the parent's level i is carried
// forward unchanged. This depends only on chain data and is therefore
// identical across all nodes computing it.
func (parent *BlockInterlink) Derive(parentHash chainhash.Hash, parentWork, nextWork *big.Int) *BlockInterlink {
	next := &BlockInterlink{}
	for i := 0; i < InterlinkLevels; i++ {
		threshold := new(big.Int).Lsh(nextWork, uint(i))
		if parentWork.Cmp(threshold) >= 0 {
			next.Levels[i] = parentHash
		} else {
			next.Levels[i] = parent.Levels[i]
		}
	}
	return next
}

// Hash computes interlinkHash: the same duplicate-last-leaf binary
// merkle root construction used for bodyHash, applied to the ordered
// interlink levels.
func (il *BlockInterlink) Hash(hashFn merkle.HashFunc) chainhash.Hash {
	return merkle.Root(hashFn, il.Levels[:])
}

// Serialize writes the fixed-size interlink encoding: InterlinkLevels
// concatenated 32-byte hashes.
func (il *BlockInterlink) Serialize(w io.Writer) error {
	for _, h := range il.Levels {
		if _, err := w.Write(h[:]); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the fixed-size interlink encoding.
func (il *BlockInterlink) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(InterlinkLevels * chainhash.HashSize)
	_ = il.Serialize(&buf)
	return buf.Bytes()
}

// DeserializeInterlink reads a fixed-size interlink from r.
func DeserializeInterlink(r io.Reader) (*BlockInterlink, error) {
	buf := make([]byte, InterlinkLevels*chainhash.HashSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return InterlinkFromBytes(buf)
}

// InterlinkFromBytes parses a fixed-size interlink.
func InterlinkFromBytes(b []byte) (*BlockInterlink, error) {
	if len(b) != InterlinkLevels*chainhash.HashSize {
		return nil, errors.New("primitives: invalid interlink length")
	}
	il := &BlockInterlink{}
	for i := range il.Levels {
		copy(il.Levels[i][:], b[i*chainhash.HashSize:(i+1)*chainhash.HashSize])
	}
	return il, nil
}
