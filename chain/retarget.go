package chain

import (
	"math/big"

	"github.com/floxnode/floxnode/chaindata"
	"github.com/floxnode/floxnode/pow"
)

// getNextTarget computes the nBits the block after parent must carry.
// Every RetargetWindow blocks, the window's actual elapsed time (clamped
// to within RetargetClampFactor of the expected timespan) rescales the
// previous target; every other block simply carries the previous
// block's nBits forward. This is the classic clamp-and-divide retarget
// shape, parameterized over this network's own window and spacing
// constants.
func (c *FullChain) getNextTarget(parent *chaindata.ChainData) (uint32, error) {
	nextHeight := parent.Block.Header.Height + 1
	if nextHeight%c.policy.RetargetWindow != 0 {
		return parent.Block.Header.NBits, nil
	}

	first, err := c.ancestorAtHeight(parent, nextHeight-c.policy.RetargetWindow)
	if err != nil {
		return 0, err
	}

	expected := int64(c.policy.RetargetWindow) * c.policy.TargetSpacingSeconds
	actual := int64(parent.Block.Header.Timestamp) - int64(first.Block.Header.Timestamp)

	min := expected / c.policy.RetargetClampFactor
	max := expected * c.policy.RetargetClampFactor
	switch {
	case actual < min:
		actual = min
	case actual > max:
		actual = max
	}

	oldTarget := pow.CompactToBig(parent.Block.Header.NBits)
	newTarget := new(big.Int).Mul(oldTarget, big.NewInt(actual))
	newTarget.Div(newTarget, big.NewInt(expected))

	if newTarget.Sign() <= 0 {
		newTarget.SetInt64(1)
	}
	if newTarget.Cmp(c.policy.PowLimit) > 0 {
		newTarget.Set(c.policy.PowLimit)
	}
	return pow.BigToCompact(newTarget), nil
}

// ancestorAtHeight walks from from back along prevHash pointers to the
// block at the given height. from's own chain must already reach back
// that far (the caller never asks for a height below genesis).
func (c *FullChain) ancestorAtHeight(from *chaindata.ChainData, height uint32) (*chaindata.ChainData, error) {
	cur := from
	for cur.Block.Header.Height > height {
		parent, err := c.store.Get(cur.Block.Header.PrevHash)
		if err != nil {
			return nil, err
		}
		cur = parent
	}
	return cur, nil
}
