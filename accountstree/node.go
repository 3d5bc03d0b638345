// Package accountstree implements an authenticated radix-16 patricia
// trie over account addresses: a persistent key/value store of
// (Address -> Account) that commits to a single root hash,
// accountsHash, embedded in every block header.
package accountstree

import (
	"bytes"
	"errors"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/merkle"
	"github.com/floxnode/floxnode/primitives"
)

// NodeKind distinguishes a patricia-trie branch from a terminal leaf.
type NodeKind uint8

const (
	KindBranch NodeKind = iota
	KindTerminal
)

// ChildRef is a branch's pointer to one of its 16 possible children:
// the child's own hash, and the nibble prefix it holds. A zero Present
// means no child occupies that nibble.
type ChildRef struct {
	Present bool
	Hash    chainhash.Hash
	Prefix  []byte
}

// Node is either a Branch (children[16]) or a Terminal (an Account),
// each holding the nibble-path segment it consumes from its parent.
type Node struct {
	Kind   NodeKind
	Prefix []byte // nibbles consumed from the parent, path-compressed

	// Terminal only.
	Account primitives.Account

	// Branch only.
	Children [16]ChildRef
}

// domain-separation tags so a Branch and a Terminal never collide
// under canonical serialization even with identical prefix bytes.
const (
	tagTerminal byte = 0x00
	tagBranch   byte = 0x01
)

// CanonicalBytes returns the deterministic serialization a node's
// hash is computed over: children are always enumerated in fixed
// nibble order 0..15 regardless of insertion history, so two trees
// with the same logical mapping always produce byte-identical node
// encodings.
func (n *Node) CanonicalBytes() []byte {
	var buf bytes.Buffer
	switch n.Kind {
	case KindTerminal:
		buf.WriteByte(tagTerminal)
		writePrefix(&buf, n.Prefix)
		var tail [12]byte
		putUint64(tail[0:8], n.Account.Balance)
		putUint32(tail[8:12], n.Account.Nonce)
		buf.Write(tail[:])
	case KindBranch:
		buf.WriteByte(tagBranch)
		writePrefix(&buf, n.Prefix)
		for i := 0; i < 16; i++ {
			c := n.Children[i]
			if !c.Present {
				buf.WriteByte(0x00)
				continue
			}
			buf.WriteByte(0x01)
			writePrefix(&buf, c.Prefix)
			buf.Write(c.Hash[:])
		}
	}
	return buf.Bytes()
}

// Hash computes the node's hash under hashFn.
func (n *Node) Hash(hashFn merkle.HashFunc) chainhash.Hash {
	return hashFn(n.CanonicalBytes())
}

func writePrefix(buf *bytes.Buffer, prefix []byte) {
	buf.WriteByte(byte(len(prefix)))
	buf.Write(prefix)
}

func putUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

func putUint32(b []byte, v uint32) {
	for i := 3; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// ErrNotFound is returned by a NodeStore when a referenced node hash
// is missing, which always indicates backing-store corruption since a
// tree never references a hash it did not itself persist.
var ErrNotFound = errors.New("accountstree: node not found")
