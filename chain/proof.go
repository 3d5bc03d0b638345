package chain

import (
	"fmt"
	"math/big"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/merkle"
	"github.com/floxnode/floxnode/pow"
	"github.com/floxnode/floxnode/primitives"
)

// ChainProof is a succinct proof of a head's claimed totalWork: the
// head's own header and interlink, plus the chain of ancestor headers
// reached by always following the highest populated interlink level —
// the superblock with the most work below the head. Verifying it sums
// the work of the head and these sampled ancestors only, without
// needing every block between genesis and the head; it is a simplified
// NIPoPoW-style proof over spec.md's interlink.
type ChainProof struct {
	Head          chainhash.Hash
	HeadHeader    *primitives.BlockHeader
	HeadInterlink *primitives.BlockInterlink
	Ancestors     []*primitives.BlockHeader
}

// Proof builds a ChainProof for headHash out of the stored chain data.
func (c *FullChain) Proof(headHash chainhash.Hash) (*ChainProof, error) {
	head, err := c.store.Get(headHash)
	if err != nil {
		return nil, err
	}

	proof := &ChainProof{
		Head:          headHash,
		HeadHeader:    head.Block.Header,
		HeadInterlink: head.Block.Interlink,
	}

	cur, curHash := head, headHash
	for {
		level := highestPopulatedLevel(cur.Block.Interlink)
		if level < 0 {
			break
		}
		ancestorHash := cur.Block.Interlink.Levels[level]
		if ancestorHash == curHash {
			break
		}
		ancestor, err := c.store.Get(ancestorHash)
		if err != nil {
			return nil, err
		}
		proof.Ancestors = append(proof.Ancestors, ancestor.Block.Header)
		cur, curHash = ancestor, ancestorHash
	}
	return proof, nil
}

// highestPopulatedLevel returns the index of the deepest non-zero
// interlink level, or -1 if the interlink is entirely empty (only true
// for genesis).
func highestPopulatedLevel(il *primitives.BlockInterlink) int {
	for i := len(il.Levels) - 1; i >= 0; i-- {
		if il.Levels[i] != (chainhash.Hash{}) {
			return i
		}
	}
	return -1
}

// VerifyChainProof checks the head's interlinkHash, every header's PoW
// and that heights strictly decrease from the head through the
// ancestors, and returns the cumulative work of those headers. It does
// not check hash linkage between the headers. It does not (and, per the
// interlink's own design, cannot) prove that proof.Ancestors is a
// complete accounting of every block's work between genesis and the
// head — only that the claimed superblocks themselves are genuine.
func VerifyChainProof(proof *ChainProof, hashFn merkle.HashFunc, powLimit *big.Int) (*big.Int, error) {
	if proof.HeadInterlink.Hash(hashFn) != proof.HeadHeader.InterlinkHash {
		return nil, fmt.Errorf("chain: proof: head interlinkHash mismatch")
	}
	if !pow.CheckProofOfWork(proof.Head, proof.HeadHeader.NBits, powLimit) {
		return nil, fmt.Errorf("chain: proof: head fails proof of work")
	}

	total := pow.CalcWork(proof.HeadHeader.NBits)
	prevHeader := proof.HeadHeader
	for _, h := range proof.Ancestors {
		hash := hashFn(h.Bytes())
		if !pow.CheckProofOfWork(hash, h.NBits, powLimit) {
			return nil, fmt.Errorf("chain: proof: ancestor %s fails proof of work", hash)
		}
		if h.Height >= prevHeader.Height {
			return nil, fmt.Errorf("chain: proof: ancestor %s does not precede its successor", hash)
		}
		total.Add(total, pow.CalcWork(h.NBits))
		prevHeader = h
	}
	return total, nil
}
