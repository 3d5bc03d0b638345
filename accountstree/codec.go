package accountstree

import (
	"encoding/binary"
	"errors"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/primitives"
)

// encodeNode returns the node's persisted form. A node's canonical
// serialization already carries everything needed to reconstruct it
// (kind tag, prefix, account or children), so the storage encoding and
// the hash-input encoding are the same bytes.
func encodeNode(n *Node) []byte {
	return n.CanonicalBytes()
}

// decodeNode is the inverse of encodeNode.
func decodeNode(b []byte) (*Node, error) {
	if len(b) < 1 {
		return nil, errors.New("accountstree: empty node encoding")
	}
	switch b[0] {
	case tagTerminal:
		prefix, rest, err := readPrefix(b[1:])
		if err != nil {
			return nil, err
		}
		if len(rest) != 12 {
			return nil, errors.New("accountstree: malformed terminal node")
		}
		return &Node{
			Kind:   KindTerminal,
			Prefix: prefix,
			Account: primitives.Account{
				Balance: binary.BigEndian.Uint64(rest[0:8]),
				Nonce:   binary.BigEndian.Uint32(rest[8:12]),
			},
		}, nil
	case tagBranch:
		prefix, rest, err := readPrefix(b[1:])
		if err != nil {
			return nil, err
		}
		n := &Node{Kind: KindBranch, Prefix: prefix}
		for i := 0; i < 16; i++ {
			if len(rest) < 1 {
				return nil, errors.New("accountstree: malformed branch node")
			}
			present := rest[0]
			rest = rest[1:]
			if present == 0x00 {
				continue
			}
			childPrefix, childRest, err := readPrefix(rest)
			if err != nil {
				return nil, err
			}
			rest = childRest
			if len(rest) < 32 {
				return nil, errors.New("accountstree: truncated child hash")
			}
			var h chainhash.Hash
			copy(h[:], rest[:32])
			rest = rest[32:]
			n.Children[i] = ChildRef{Present: true, Hash: h, Prefix: childPrefix}
		}
		return n, nil
	default:
		return nil, errors.New("accountstree: unknown node tag")
	}
}

func readPrefix(b []byte) (prefix, rest []byte, err error) {
	if len(b) < 1 {
		return nil, nil, errors.New("accountstree: truncated prefix length")
	}
	n := int(b[0])
	if len(b) < 1+n {
		return nil, nil, errors.New("accountstree: truncated prefix")
	}
	prefix = append([]byte(nil), b[1:1+n]...)
	return prefix, b[1+n:], nil
}
