package chain

import (
	"math/big"
	"time"

	"github.com/floxnode/floxnode/primitives"
)

// RetargetWindow is the number of blocks between difficulty
// adjustments.
const RetargetWindow = 2048

// TargetSpacingSeconds is the intended time between blocks.
const TargetSpacingSeconds = 60

// RetargetClampFactor bounds how much a single retarget can move the
// target in either direction, a min/max timespan clamp collapsed into
// one symmetric factor.
const RetargetClampFactor = 4

// MaxFutureDrift is how far into the future a block's timestamp may
// sit relative to the validator's clock before it is rejected.
const MaxFutureDrift = 10 * time.Minute

// Policy bundles the network constants and genesis block a FullChain
// is parameterized over, so tests can run a miniature chain (small
// retarget window, low PoW limit) without touching production values.
type Policy struct {
	RetargetWindow       uint32
	TargetSpacingSeconds int64
	RetargetClampFactor  int64
	MaxFutureDrift       time.Duration
	PowLimit             *big.Int
	Genesis              *primitives.Block
	BlockReward          func(height uint32) uint64
}

// DefaultBlockReward is a fixed per-block subsidy; this network carries
// no halving schedule in scope, so the reward is policy-constant.
const DefaultBlockReward = 50_00000000

func defaultBlockReward(uint32) uint64 { return DefaultBlockReward }

// DefaultPolicy returns production network constants paired with
// genesis. Callers needing a faster-iterating test chain should build
// their own Policy with a small RetargetWindow instead.
func DefaultPolicy(genesis *primitives.Block, powLimit *big.Int) Policy {
	return Policy{
		RetargetWindow:       RetargetWindow,
		TargetSpacingSeconds: TargetSpacingSeconds,
		RetargetClampFactor:  RetargetClampFactor,
		MaxFutureDrift:       MaxFutureDrift,
		PowLimit:             powLimit,
		Genesis:              genesis,
		BlockReward:          defaultBlockReward,
	}
}
