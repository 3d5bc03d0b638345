package primitives

import (
	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/merkle"
)

// Block is a header, its interlink and an optional body — optional so
// header-only propagation can be represented without a
// pointer-to-struct-with-nil-slice ambiguity.
type Block struct {
	Header    *BlockHeader
	Interlink *BlockInterlink
	Body      *BlockBody // nil for a header-only block
}

// HasBody reports whether the full transaction body is present.
func (b *Block) HasBody() bool {
	return b.Body != nil
}

// Hash returns the block's identity hash: the hash of the serialized
// header.
func (b *Block) Hash(hashFn merkle.HashFunc) chainhash.Hash {
	return hashFn(b.Header.Bytes())
}
