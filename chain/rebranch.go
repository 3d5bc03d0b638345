package chain

import (
	"math/big"

	"github.com/floxnode/floxnode/accounts"
	"github.com/floxnode/floxnode/chaindata"
	"github.com/floxnode/floxnode/chainerr"
	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/events"
	"github.com/floxnode/floxnode/primitives"
)

// rebranch switches the main chain from the current head to newBlock's
// branch, which has strictly greater total work. It finds the lowest
// common ancestor by walking both chains back by height, reverts every
// old-chain block down to (but excluding) the ancestor and applies
// every new-chain block from the ancestor up to newBlock, all within a
// single Accounts transaction so a bad block anywhere on the new side
// leaves the old main chain untouched.
func (c *FullChain) rebranch(newBlock *primitives.Block, newHash chainhash.Hash, newParent *chaindata.ChainData, newTotalWork *big.Int) (PushResult, error) {
	oldHeadHash := c.store.Head()
	oldHead, err := c.store.Get(oldHeadHash)
	if err != nil {
		return Invalid, chainerr.New(chainerr.ErrStorageFailure, "chain: rebranch: load old head: %v", err)
	}

	oldSide, newSide, lca, err := c.findForkPoint(oldHead, newParent)
	if err != nil {
		return Invalid, chainerr.New(chainerr.ErrStorageFailure, "chain: rebranch: find fork point: %v", err)
	}
	newSide = append(newSide, &chaindata.ChainData{Block: newBlock, TotalWork: newTotalWork})

	reverts := make([]accounts.Step, len(oldSide))
	for i, cd := range oldSide {
		reverts[i] = accounts.Step{
			Body:     cd.Block.Body,
			Height:   cd.Block.Header.Height,
			WantHash: priorAccountsHash(oldSide, i, lca),
		}
	}

	applies := make([]accounts.Step, len(newSide))
	for i, cd := range newSide {
		applies[i] = accounts.Step{
			Body:     cd.Block.Body,
			Height:   cd.Block.Header.Height,
			WantHash: cd.Block.Header.AccountsHash,
		}
	}

	if err := c.accounts.Rebranch(reverts, applies); err != nil {
		return Invalid, err
	}

	batch := c.store.NewBatch()
	for _, cd := range oldSide {
		updated := *cd
		updated.OnMainChain = false
		updated.MainChainSuccessor = nil
		batch.Put(hashOf(cd, c), &updated)
	}
	for i, cd := range newSide {
		updated := *cd
		updated.OnMainChain = true
		if i+1 < len(newSide) {
			succ := hashOf(newSide[i+1], c)
			updated.MainChainSuccessor = &succ
		} else {
			updated.MainChainSuccessor = nil
		}
		batch.Put(hashOf(cd, c), &updated)
	}
	if len(newSide) > 0 {
		lcaUpdated := *lca
		firstHash := hashOf(newSide[0], c)
		lcaUpdated.MainChainSuccessor = &firstHash
		batch.Put(hashOf(lca, c), &lcaUpdated)
	}
	batch.SetHead(newHash)
	if err := batch.Commit(); err != nil {
		return Invalid, chainerr.New(chainerr.ErrStorageFailure, "chain: rebranch: commit: %v", err)
	}

	c.headChanged.Publish(events.HeadChanged{NewHead: newHash, RebranchDepth: uint32(len(newSide))})
	return Forked, nil
}

// hashOf recomputes cd's block hash; ChainData does not carry its own
// key, so every caller that needs it derives it from the block.
func hashOf(cd *chaindata.ChainData, c *FullChain) chainhash.Hash {
	return cd.Block.Hash(c.hashFn)
}

// priorAccountsHash returns the accountsHash the tree must show after
// reverting oldSide[i]: the accountsHash of oldSide[i+1] (the block
// one step closer to the common ancestor), or lca's own accountsHash for the
// last revert step.
func priorAccountsHash(oldSide []*chaindata.ChainData, i int, lca *chaindata.ChainData) chainhash.Hash {
	if i+1 < len(oldSide) {
		return oldSide[i+1].Block.Header.AccountsHash
	}
	return lca.Block.Header.AccountsHash
}

// findForkPoint walks oldHead and newParent back to equal height, then
// walks both back together until their hashes match, returning the
// blocks after that common ancestor up to and including each tip. oldSide
// is ordered from oldHead down towards the ancestor (revert order);
// newSide is ordered from just after the ancestor up towards newParent
// (apply order).
func (c *FullChain) findForkPoint(oldHead, newParent *chaindata.ChainData) (oldSide, newSide []*chaindata.ChainData, lca *chaindata.ChainData, err error) {
	oldChain := []*chaindata.ChainData{oldHead}
	newChain := []*chaindata.ChainData{newParent}

	for oldChain[len(oldChain)-1].Block.Header.Height > newChain[len(newChain)-1].Block.Header.Height {
		parent, gerr := c.store.Get(oldChain[len(oldChain)-1].Block.Header.PrevHash)
		if gerr != nil {
			return nil, nil, nil, gerr
		}
		oldChain = append(oldChain, parent)
	}
	for newChain[len(newChain)-1].Block.Header.Height > oldChain[len(oldChain)-1].Block.Header.Height {
		parent, gerr := c.store.Get(newChain[len(newChain)-1].Block.Header.PrevHash)
		if gerr != nil {
			return nil, nil, nil, gerr
		}
		newChain = append(newChain, parent)
	}

	for hashOf(oldChain[len(oldChain)-1], c) != hashOf(newChain[len(newChain)-1], c) {
		op, gerr := c.store.Get(oldChain[len(oldChain)-1].Block.Header.PrevHash)
		if gerr != nil {
			return nil, nil, nil, gerr
		}
		oldChain = append(oldChain, op)
		np, gerr := c.store.Get(newChain[len(newChain)-1].Block.Header.PrevHash)
		if gerr != nil {
			return nil, nil, nil, gerr
		}
		newChain = append(newChain, np)
	}

	lca = oldChain[len(oldChain)-1]
	oldSide = oldChain[:len(oldChain)-1]

	newSide = make([]*chaindata.ChainData, len(newChain)-1)
	for i, cd := range newChain[:len(newChain)-1] {
		newSide[len(newSide)-1-i] = cd
	}
	return oldSide, newSide, lca, nil
}
