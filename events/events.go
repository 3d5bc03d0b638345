// Package events defines the payload types carried over the event
// buses that connect Blockchain, Mempool and Miner: head-changed,
// block-added, transaction-added, transactions-ready, block-mined and
// hashrate-changed.
package events

import (
	"math/big"

	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/primitives"
)

// HeadChanged is published whenever the main-chain head moves,
// whether by simple extension or by a rebranch.
type HeadChanged struct {
	NewHead       chainhash.Hash
	RebranchDepth uint32
}

// BlockAdded is published for every block accepted into the store,
// whether or not it became (or stayed) part of the main chain.
type BlockAdded struct {
	Hash  chainhash.Hash
	Block *primitives.Block
}

// TransactionAdded is published when a transaction is admitted to the
// mempool.
type TransactionAdded struct {
	Hash chainhash.Hash
	Tx   *primitives.Transaction
}

// TransactionsReady is published exactly once per head-change sweep,
// after the mempool has finished re-validating its entries against the
// new state. It is the synchronization point a Miner restarts on.
type TransactionsReady struct {
	Head chainhash.Hash
}

// BlockMined is published when the Miner's search loop finds a valid
// proof of work for its current candidate.
type BlockMined struct {
	Block *primitives.Block
}

// HashrateChanged is published roughly once a second with the Miner's
// current moving-average hash rate.
type HashrateChanged struct {
	HashesPerSecond *big.Float
}
