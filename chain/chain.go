// Package chain implements FullChain: the single-writer block store
// that validates, orders and applies blocks against an Accounts
// ledger, choosing the main chain by cumulative proof-of-work and
// rebranching when a heavier side chain appears.
package chain

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/floxnode/floxnode/accounts"
	"github.com/floxnode/floxnode/chaindata"
	"github.com/floxnode/floxnode/chainerr"
	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/eventbus"
	"github.com/floxnode/floxnode/events"
	"github.com/floxnode/floxnode/log"
	"github.com/floxnode/floxnode/merkle"
	"github.com/floxnode/floxnode/pow"
	"github.com/floxnode/floxnode/primitives"
)

var logger log.Logger = log.Disabled

// UseLogger installs l as the package logger.
func UseLogger(l log.Logger) { logger = l }

// PushResult is the outcome of a single pushBlock call.
type PushResult int

const (
	Known PushResult = iota
	Extended
	Forked
	Orphan
	Invalid
	Accepted
)

var pushResultStrings = map[PushResult]string{
	Known:    "KNOWN",
	Extended: "EXTENDED",
	Forked:   "FORKED",
	Orphan:   "ORPHAN",
	Invalid:  "INVALID",
	Accepted: "ACCEPTED",
}

func (r PushResult) String() string {
	if s, ok := pushResultStrings[r]; ok {
		return s
	}
	return fmt.Sprintf("PushResult(%d)", int(r))
}

// FullChain is the single-writer blockchain engine: all pushBlock
// calls are serialized through mu.
type FullChain struct {
	mu       sync.Mutex
	store    *chaindata.Store
	accounts *accounts.Accounts
	hashFn   merkle.HashFunc
	policy   Policy
	orphans  *orphanPool

	headChanged *eventbus.Bus[events.HeadChanged]
	blockAdded  *eventbus.Bus[events.BlockAdded]
}

// New opens a FullChain over store and accountsFacade. If the store
// has no head yet, policy.Genesis is inserted as the first main-chain
// block.
func New(store *chaindata.Store, accountsFacade *accounts.Accounts, hashFn merkle.HashFunc, policy Policy) (*FullChain, error) {
	c := &FullChain{
		store:       store,
		accounts:    accountsFacade,
		hashFn:      hashFn,
		policy:      policy,
		orphans:     newOrphanPool(),
		headChanged: eventbus.New[events.HeadChanged](),
		blockAdded:  eventbus.New[events.BlockAdded](),
	}

	if store.Head() == (chainhash.Hash{}) {
		if err := c.insertGenesis(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *FullChain) insertGenesis() error {
	genesis := c.policy.Genesis
	hash := genesis.Hash(c.hashFn)

	batch := c.store.NewBatch()
	batch.Put(hash, &chaindata.ChainData{
		Block:       genesis,
		TotalWork:   pow.CalcWork(genesis.Header.NBits),
		OnMainChain: true,
	})
	batch.SetHead(hash)
	if err := batch.Commit(); err != nil {
		return err
	}
	logger.Infof("chain: inserted genesis block %s", hash)
	return nil
}

// Head returns the current main-chain head hash.
func (c *FullChain) Head() chainhash.Hash {
	return c.store.Head()
}

// GetBlock returns the stored block for hash.
func (c *FullChain) GetBlock(hash chainhash.Hash) (*primitives.Block, error) {
	cd, err := c.store.Get(hash)
	if err != nil {
		return nil, err
	}
	return cd.Block, nil
}

// NextTarget returns the nBits a block extending the current head must
// carry, the first step of a miner's candidate assembly.
func (c *FullChain) NextTarget() (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	head, err := c.store.Get(c.store.Head())
	if err != nil {
		return 0, chainerr.New(chainerr.ErrStorageFailure, "chain: load head: %v", err)
	}
	return c.getNextTarget(head)
}

// SubscribeHeadChanged returns a subscription delivering head-changed
// events, one buffered channel per subscriber.
func (c *FullChain) SubscribeHeadChanged(bufSize int) *eventbus.Subscription[events.HeadChanged] {
	return c.headChanged.Subscribe(bufSize)
}

// SubscribeBlockAdded returns a subscription delivering block-added
// events.
func (c *FullChain) SubscribeBlockAdded(bufSize int) *eventbus.Subscription[events.BlockAdded] {
	return c.blockAdded.Subscribe(bufSize)
}

// PushBlock validates and inserts block, returning which of the six
// outcomes applied. All calls are serialized against one another.
func (c *FullChain) PushBlock(block *primitives.Block) (PushResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pushBlockLocked(block)
}

func (c *FullChain) pushBlockLocked(block *primitives.Block) (PushResult, error) {
	hash := block.Hash(c.hashFn)

	known, err := c.store.Has(hash)
	if err != nil {
		return Invalid, chainerr.New(chainerr.ErrStorageFailure, "chain: lookup %s: %v", hash, err)
	}
	if known {
		return Known, nil
	}

	if err := c.checkStateless(block, hash); err != nil {
		return Invalid, err
	}

	parent, err := c.store.Get(block.Header.PrevHash)
	if err != nil {
		if chaindataIsNotFound(err) {
			c.orphans.add(block)
			logger.Debugf("chain: buffered orphan %s awaiting parent %s", hash, block.Header.PrevHash)
			return Orphan, nil
		}
		return Invalid, chainerr.New(chainerr.ErrStorageFailure, "chain: load parent of %s: %v", hash, err)
	}

	result, err := c.connectBlock(block, hash, parent)
	if err != nil {
		return Invalid, err
	}

	c.blockAdded.Publish(events.BlockAdded{Hash: hash, Block: block})
	c.reexamineOrphans(hash)
	return result, nil
}

// checkStateless performs every validation that depends only on the
// block itself: wire size, internal hash consistency, timestamp drift
// and proof of work, all ahead of the parent lookup.
func (c *FullChain) checkStateless(block *primitives.Block, hash chainhash.Hash) error {
	if len(block.Header.Bytes()) != primitives.HeaderSize {
		return chainerr.New(chainerr.ErrInvalidBlock, "chain: header is not %d bytes", primitives.HeaderSize)
	}
	if block.Interlink.Hash(c.hashFn) != block.Header.InterlinkHash {
		return chainerr.New(chainerr.ErrInvalidBlock, "chain: interlinkHash mismatch for %s", hash)
	}
	if block.HasBody() && block.Body.Hash(c.hashFn) != block.Header.BodyHash {
		return chainerr.New(chainerr.ErrInvalidBlock, "chain: bodyHash mismatch for %s", hash)
	}
	maxTimestamp := uint32(time.Now().Add(c.policy.MaxFutureDrift).Unix())
	if block.Header.Timestamp > maxTimestamp {
		return chainerr.New(chainerr.ErrPolicyViolation, "chain: %s timestamp too far in the future", hash)
	}
	if !pow.CheckProofOfWork(hash, block.Header.NBits, c.policy.PowLimit) {
		return chainerr.New(chainerr.ErrInvalidBlock, "chain: %s fails proof of work", hash)
	}
	return nil
}

// connectBlock runs the contextual checks that need the parent's
// ChainData, then dispatches to the appropriate fork-choice path.
func (c *FullChain) connectBlock(block *primitives.Block, hash chainhash.Hash, parent *chaindata.ChainData) (PushResult, error) {
	if !block.HasBody() {
		return Invalid, chainerr.New(chainerr.ErrInvalidBlock, "chain: %s has no body", hash)
	}
	if block.Header.Height != parent.Block.Header.Height+1 {
		return Invalid, chainerr.New(chainerr.ErrInvalidBlock, "chain: %s height %d does not follow parent height %d", hash, block.Header.Height, parent.Block.Header.Height)
	}
	if block.Header.Timestamp < parent.Block.Header.Timestamp+1 {
		return Invalid, chainerr.New(chainerr.ErrInvalidBlock, "chain: %s timestamp does not advance past parent", hash)
	}
	wantBits, err := c.getNextTarget(parent)
	if err != nil {
		return Invalid, chainerr.New(chainerr.ErrStorageFailure, "chain: compute next target for %s: %v", hash, err)
	}
	if block.Header.NBits != wantBits {
		return Invalid, chainerr.New(chainerr.ErrInvalidBlock, "chain: %s nBits %08x does not match required %08x", hash, block.Header.NBits, wantBits)
	}

	totalWork := new(big.Int).Add(parent.TotalWork, pow.CalcWork(block.Header.NBits))

	headHash := c.store.Head()
	switch {
	case block.Header.PrevHash == headHash:
		return c.extendHead(block, hash, parent, totalWork)
	default:
		headData, err := c.store.Get(headHash)
		if err != nil {
			return Invalid, chainerr.New(chainerr.ErrStorageFailure, "chain: load head: %v", err)
		}
		if totalWork.Cmp(headData.TotalWork) > 0 {
			return c.rebranch(block, hash, parent, totalWork)
		}
		return c.storeSideBlock(block, hash, totalWork)
	}
}

// extendHead applies block directly on top of the current head.
func (c *FullChain) extendHead(block *primitives.Block, hash chainhash.Hash, parent *chaindata.ChainData, totalWork *big.Int) (PushResult, error) {
	if err := c.accounts.CommitBlockBody(block.Body, block.Header.Height, block.Header.AccountsHash); err != nil {
		return Invalid, err
	}

	parentHash := block.Header.PrevHash
	updatedParent := *parent
	updatedParent.MainChainSuccessor = &hash
	updatedParent.OnMainChain = true

	batch := c.store.NewBatch()
	batch.Put(parentHash, &updatedParent)
	batch.Put(hash, &chaindata.ChainData{Block: block, TotalWork: totalWork, OnMainChain: true})
	batch.SetHead(hash)
	if err := batch.Commit(); err != nil {
		return Invalid, chainerr.New(chainerr.ErrStorageFailure, "chain: commit extend of %s: %v", hash, err)
	}

	c.headChanged.Publish(events.HeadChanged{NewHead: hash, RebranchDepth: 0})
	return Extended, nil
}

// storeSideBlock persists block without moving the main-chain head.
func (c *FullChain) storeSideBlock(block *primitives.Block, hash chainhash.Hash, totalWork *big.Int) (PushResult, error) {
	batch := c.store.NewBatch()
	batch.Put(hash, &chaindata.ChainData{Block: block, TotalWork: totalWork, OnMainChain: false})
	if err := batch.Commit(); err != nil {
		return Invalid, chainerr.New(chainerr.ErrStorageFailure, "chain: commit side block %s: %v", hash, err)
	}
	return Accepted, nil
}

func (c *FullChain) reexamineOrphans(parent chainhash.Hash) {
	for _, orphan := range c.orphans.take(parent) {
		if _, err := c.pushBlockLocked(orphan); err != nil {
			logger.Debugf("chain: orphan %s still invalid once parent arrived: %v", orphan.Hash(c.hashFn), err)
		}
	}
}

func chaindataIsNotFound(err error) bool {
	return errors.Is(err, chaindata.ErrNotFound)
}
