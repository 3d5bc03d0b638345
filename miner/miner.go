// Package miner assembles candidate blocks from the current chain head
// and pending mempool transactions, then searches for a nonce
// satisfying the required proof of work, restarting whenever the head
// or the mempool's ready set changes out from under it.
package miner

import (
	"math/rand"
	"sync"
	"time"

	"github.com/floxnode/floxnode/accounts"
	"github.com/floxnode/floxnode/chain"
	"github.com/floxnode/floxnode/eventbus"
	"github.com/floxnode/floxnode/events"
	"github.com/floxnode/floxnode/log"
	"github.com/floxnode/floxnode/mempool"
	"github.com/floxnode/floxnode/merkle"
	"github.com/floxnode/floxnode/pow"
	"github.com/floxnode/floxnode/primitives"
)

var logger log.Logger = log.Disabled

// UseLogger installs l as the package logger.
func UseLogger(l log.Logger) { logger = l }

// Miner assembles candidate blocks against chn and pool and searches
// for a satisfying proof of work, submitting anything it finds back to
// chn. A Miner is either idle or working; StartWork/StopWork toggle
// between the two and are safe to call from any goroutine.
type Miner struct {
	chn          *chain.FullChain
	pool         *mempool.Pool
	accountsView *accounts.Accounts
	hashFn       merkle.HashFunc
	address      primitives.Address
	policy       Policy

	rate *hashrateEstimator

	hashrateChanged *eventbus.Bus[events.HashrateChanged]
	blockMined      *eventbus.Bus[events.BlockMined]

	mu      sync.Mutex
	working bool
	cancel  func()
	done    chan struct{}
}

// New returns an idle Miner crediting address and submitting found
// blocks to chn.
func New(chn *chain.FullChain, pool *mempool.Pool, accountsView *accounts.Accounts, hashFn merkle.HashFunc, address primitives.Address, policy Policy) *Miner {
	if policy.AttemptsPerYield == 0 {
		policy.AttemptsPerYield = DefaultAttemptsPerYield
	}
	if policy.MaxBlockTransactions <= 0 {
		policy.MaxBlockTransactions = DefaultMaxBlockTransactions
	}
	return &Miner{
		chn:             chn,
		pool:            pool,
		accountsView:    accountsView,
		hashFn:          hashFn,
		address:         address,
		policy:          policy,
		rate:            newHashrateEstimator(),
		hashrateChanged: eventbus.New[events.HashrateChanged](),
		blockMined:      eventbus.New[events.BlockMined](),
	}
}

// SubscribeHashrateChanged returns a subscription delivering roughly
// one hashrate sample per second while the miner is working.
func (m *Miner) SubscribeHashrateChanged(bufSize int) *eventbus.Subscription[events.HashrateChanged] {
	return m.hashrateChanged.Subscribe(bufSize)
}

// SubscribeBlockMined returns a subscription delivering every block
// this miner successfully finds a proof of work for.
func (m *Miner) SubscribeBlockMined(bufSize int) *eventbus.Subscription[events.BlockMined] {
	return m.blockMined.Subscribe(bufSize)
}

// Working reports whether the search loop is currently running.
func (m *Miner) Working() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.working
}

// StartWork begins (or restarts) the search loop. It is idempotent:
// calling it while already working has no effect.
func (m *Miner) StartWork() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.working {
		return
	}

	headSub := m.chn.SubscribeHeadChanged(eventbus.DefaultBufferSize)
	readySub := m.pool.SubscribeTransactionsReady(eventbus.DefaultBufferSize)
	done := make(chan struct{})
	stop := make(chan struct{})

	m.working = true
	m.cancel = sync.OnceFunc(func() { close(stop) })
	m.done = done

	go func() {
		defer close(done)
		defer headSub.Unsubscribe()
		defer readySub.Unsubscribe()
		m.run(stop, headSub, readySub)
	}()
}

// StopWork halts the search loop and blocks until it has exited.
func (m *Miner) StopWork() {
	m.mu.Lock()
	if !m.working {
		m.mu.Unlock()
		return
	}
	cancel, done := m.cancel, m.done
	m.working = false
	m.mu.Unlock()

	cancel()
	<-done
}

// run drives one or more candidate-assembly-then-search cycles until
// stop is closed, restarting assembly whenever headSub or readySub
// fires.
func (m *Miner) run(stop <-chan struct{}, headSub *eventbus.Subscription[events.HeadChanged], readySub *eventbus.Subscription[events.TransactionsReady]) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	lastTick := time.Now()

	for {
		candidate, err := m.assembleCandidate()
		if err != nil {
			logger.Warnf("miner: assemble candidate: %v", err)
			select {
			case <-stop:
				return
			case <-time.After(time.Second):
				continue
			}
		}

		restart := make(chan struct{}, 1)
		found := make(chan *primitives.Block, 1)
		searchDone := make(chan struct{})
		go func() {
			defer close(searchDone)
			if block := m.search(candidate, stop, restart, ticker, &lastTick); block != nil {
				found <- block
			}
		}()

	waitForSearch:
		for {
			select {
			case <-stop:
				<-searchDone
				return
			case <-headSub.C():
				select {
				case restart <- struct{}{}:
				default:
				}
			case <-readySub.C():
				select {
				case restart <- struct{}{}:
				default:
				}
			case block := <-found:
				m.submit(block)
				break waitForSearch
			case <-searchDone:
				break waitForSearch
			}
		}
	}
}

// assembleCandidate builds a header-and-body pair extending the
// current chain head: required difficulty, derived interlink, pulled
// transactions, previewed accounts hash and a clock-respecting
// timestamp, everything but a winning nonce.
func (m *Miner) assembleCandidate() (*primitives.Block, error) {
	nBits, err := m.chn.NextTarget()
	if err != nil {
		return nil, err
	}

	headHash := m.chn.Head()
	parent, err := m.chn.GetBlock(headHash)
	if err != nil {
		return nil, err
	}

	interlink := parent.Interlink.Derive(headHash, pow.CalcWork(parent.Header.NBits), pow.CalcWork(nBits))

	txs := m.pool.GetTransactions(m.policy.MaxBlockTransactions)
	body := &primitives.BlockBody{MinerAddress: m.address, Transactions: txs}

	height := parent.Header.Height + 1
	accountsHash, err := m.accountsView.PreviewAccountsHash(body, height)
	if err != nil {
		return nil, err
	}

	timestamp := uint32(time.Now().Unix())
	if minTimestamp := parent.Header.Timestamp + 1; timestamp < minTimestamp {
		timestamp = minTimestamp
	}

	header := &primitives.BlockHeader{
		PrevHash:      headHash,
		InterlinkHash: interlink.Hash(m.hashFn),
		BodyHash:      body.Hash(m.hashFn),
		AccountsHash:  accountsHash,
		NBits:         nBits,
		Height:        height,
		Timestamp:     timestamp,
		Nonce:         rand.Uint32(),
	}

	return &primitives.Block{Header: header, Interlink: interlink, Body: body}, nil
}

// search tries successive nonces starting from candidate's own, one
// cooperative preemption check every AttemptsPerYield attempts. It
// returns the solved block, or nil if it was preempted or told to
// stop first.
func (m *Miner) search(candidate *primitives.Block, stop <-chan struct{}, restart <-chan struct{}, ticker *time.Ticker, lastTick *time.Time) *primitives.Block {
	head := candidate.Header.PrevHash
	powLimit := m.policy.PowLimit

	for {
		for i := uint32(0); i < m.policy.AttemptsPerYield; i++ {
			hash := candidate.Hash(m.hashFn)
			m.rate.recordAttempt()
			if pow.CheckProofOfWork(hash, candidate.Header.NBits, powLimit) {
				return candidate
			}
			candidate.Header.Nonce++
		}

		select {
		case <-stop:
			return nil
		case <-restart:
			return nil
		case now := <-ticker.C:
			m.hashrateChanged.Publish(events.HashrateChanged{HashesPerSecond: m.rate.tick(now.Sub(*lastTick))})
			*lastTick = now
		default:
		}

		if m.chn.Head() != head {
			return nil
		}
	}
}

// submit publishes block-mined and hands the block to the chain, the
// same entry point any remote block arrives through.
func (m *Miner) submit(block *primitives.Block) {
	hash := block.Hash(m.hashFn)
	m.blockMined.Publish(events.BlockMined{Block: block})

	result, err := m.chn.PushBlock(block)
	if err != nil {
		logger.Errorf("miner: mined block %s rejected: %v", hash, err)
		return
	}
	logger.Infof("miner: mined block %s: %s", hash, result)
}
