package miner

import "math/big"

// Policy bundles the constants a Miner's search loop and candidate
// assembly need beyond the chain/mempool it is wired to.
type Policy struct {
	// PowLimit bounds the easiest target the network will accept,
	// mirroring chain.Policy.PowLimit; CheckProofOfWork rejects any
	// candidate whose target exceeds it.
	PowLimit *big.Int
	// MaxBlockTransactions caps how many pending transactions a single
	// candidate body pulls from the mempool.
	MaxBlockTransactions int
	// AttemptsPerYield is how many nonce attempts the search loop makes
	// between cooperative preemption checks.
	AttemptsPerYield uint32
}

// DefaultAttemptsPerYield matches the "1-1024 attempts per yield"
// range called out in the concurrency model.
const DefaultAttemptsPerYield = 1024

// DefaultMaxBlockTransactions is used by callers with no stronger
// opinion; primitives.MaxBodyTransactions is the wire-format ceiling.
const DefaultMaxBlockTransactions = 255
