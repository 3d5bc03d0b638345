package mempool

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/aead/siphash"

	"github.com/floxnode/floxnode/accounts"
	"github.com/floxnode/floxnode/chainerr"
	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/crypto"
	"github.com/floxnode/floxnode/eventbus"
	"github.com/floxnode/floxnode/events"
	"github.com/floxnode/floxnode/log"
	"github.com/floxnode/floxnode/primitives"
)

var logger log.Logger = log.Disabled

// UseLogger installs l as the package logger.
func UseLogger(l log.Logger) { logger = l }

// PushResult is the outcome of a single pushTransaction call.
type PushResult int

const (
	Added PushResult = iota
	Known
	Invalid
)

var pushResultStrings = map[PushResult]string{
	Added:   "ADDED",
	Known:   "KNOWN",
	Invalid: "INVALID",
}

func (r PushResult) String() string {
	if s, ok := pushResultStrings[r]; ok {
		return s
	}
	return "PushResult(?)"
}

// siphashKey is fixed for the process lifetime: the per-sender index is
// an in-memory lookup structure, not a persisted or network-exposed
// hash, so there is no benefit to a randomized or configurable key.
var siphashKey = [16]byte{0x66, 0x6c, 0x6f, 0x78, 0x6e, 0x6f, 0x64, 0x65, 0x6d, 0x65, 0x6d, 0x70, 0x6f, 0x6f, 0x6c, 0x00}

func senderBucket(addr primitives.Address) uint64 {
	return siphash.Sum64(siphashKey[:], addr[:])
}

// entry is one admitted, still-pending transaction.
type entry struct {
	tx     *primitives.Transaction
	hash   chainhash.Hash
	sender primitives.Address
}

// Pool is the single-writer set of pending transactions. accountsView
// supplies read-only sender balance/nonce lookups; Pool never opens an
// Accounts transaction of its own.
type Pool struct {
	mu           sync.Mutex
	accountsView *accounts.Accounts
	policy       Policy

	byKey    map[senderNonce]*entry
	bySender map[uint64][]*entry // bucketed by senderBucket; entries filtered by exact sender on read

	txAdded  *eventbus.Bus[events.TransactionAdded]
	txsReady *eventbus.Bus[events.TransactionsReady]
}

type senderNonce struct {
	sender primitives.Address
	nonce  uint32
}

// New returns an empty pool reading sender state from accountsView.
func New(accountsView *accounts.Accounts, policy Policy) *Pool {
	if policy.MaxPerSender <= 0 {
		policy.MaxPerSender = DefaultMaxPerSender
	}
	return &Pool{
		accountsView: accountsView,
		policy:       policy,
		byKey:        make(map[senderNonce]*entry),
		bySender:     make(map[uint64][]*entry),
		txAdded:      eventbus.New[events.TransactionAdded](),
		txsReady:     eventbus.New[events.TransactionsReady](),
	}
}

// SubscribeTransactionAdded returns a subscription delivering
// transaction-added events.
func (p *Pool) SubscribeTransactionAdded(bufSize int) *eventbus.Subscription[events.TransactionAdded] {
	return p.txAdded.Subscribe(bufSize)
}

// SubscribeTransactionsReady returns a subscription delivering
// transactions-ready events, the signal a miner restarts on.
func (p *Pool) SubscribeTransactionsReady(bufSize int) *eventbus.Subscription[events.TransactionsReady] {
	return p.txsReady.Subscribe(bufSize)
}

// Count returns the number of currently pending transactions.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byKey)
}

// PushTransaction validates tx against the pool's admission rules and
// the live account state, admitting it if every rule passes.
func (p *Pool) PushTransaction(tx *primitives.Transaction) (PushResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hash := crypto.Hash(tx.Bytes())
	sender := crypto.PubkeyToAddress(tx.SenderPubKey)
	key := senderNonce{sender: sender, nonce: tx.Nonce}
	if _, ok := p.byKey[key]; ok {
		return Known, nil
	}

	if !crypto.Verify(tx.SenderPubKey, tx.SigningPayload(), tx.Signature) {
		return Invalid, chainerr.New(chainerr.ErrInvalidTx, "mempool: tx %s: bad signature", hash)
	}
	if tx.Value == 0 {
		return Invalid, chainerr.New(chainerr.ErrInvalidTx, "mempool: tx %s: zero-value transaction rejected", hash)
	}
	if tx.Recipient == sender {
		return Invalid, chainerr.New(chainerr.ErrInvalidTx, "mempool: tx %s: self-transfer rejected", hash)
	}
	if tx.Fee < p.policy.MinFee {
		return Invalid, chainerr.New(chainerr.ErrPolicyViolation, "mempool: tx %s: fee %d below minimum %d", hash, tx.Fee, p.policy.MinFee)
	}

	pending := p.pendingForSender(sender)
	if len(pending) >= p.policy.MaxPerSender {
		return Invalid, chainerr.New(chainerr.ErrPolicyViolation, "mempool: sender %s already has %d pending transactions", sender, len(pending))
	}

	account, err := p.accountsView.Get(sender)
	if err != nil {
		return Invalid, chainerr.New(chainerr.ErrStorageFailure, "mempool: read sender %s: %v", sender, err)
	}

	wantNonce := account.Nonce + uint32(len(pending))
	if tx.Nonce != wantNonce {
		return Invalid, chainerr.New(chainerr.ErrInvalidTx, "mempool: tx %s: nonce %d does not continue pending sequence (want %d)", hash, tx.Nonce, wantNonce)
	}

	var committed uint64
	for _, e := range pending {
		committed += e.tx.Total()
	}
	total, overflow := addUint64(committed, tx.Total())
	if overflow || total > account.Balance {
		return Invalid, chainerr.New(chainerr.ErrInvalidTx, "mempool: tx %s: cumulative pending spend %d exceeds balance %d", hash, total, account.Balance)
	}

	e := &entry{tx: tx, hash: hash, sender: sender}
	p.byKey[key] = e
	bucket := senderBucket(sender)
	p.bySender[bucket] = insertSorted(p.bySender[bucket], e)

	p.txAdded.Publish(events.TransactionAdded{Hash: hash, Tx: tx})
	logger.Debugf("mempool: admitted %s from %s nonce %d", hash, sender, tx.Nonce)
	return Added, nil
}

// pendingForSender returns sender's currently pending entries, ordered
// by nonce, filtered out of the (possibly shared) siphash bucket.
func (p *Pool) pendingForSender(sender primitives.Address) []*entry {
	bucket := p.bySender[senderBucket(sender)]
	out := make([]*entry, 0, len(bucket))
	for _, e := range bucket {
		if e.sender == sender {
			out = append(out, e)
		}
	}
	return out
}

func insertSorted(bucket []*entry, e *entry) []*entry {
	i := sort.Search(len(bucket), func(i int) bool {
		if bucket[i].sender != e.sender {
			return bytes.Compare(bucket[i].sender[:], e.sender[:]) >= 0
		}
		return bucket[i].tx.Nonce >= e.tx.Nonce
	})
	bucket = append(bucket, nil)
	copy(bucket[i+1:], bucket[i:])
	bucket[i] = e
	return bucket
}

// GetTransactions returns a deterministic snapshot of up to maxCount
// pending transactions, ordered by fee-per-byte descending then by
// (sender, nonce) ascending. Since every transaction has the same wire
// size, ordering by fee-per-byte is equivalent to ordering by fee.
func (p *Pool) GetTransactions(maxCount int) []*primitives.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries := make([]*entry, 0, len(p.byKey))
	for _, e := range p.byKey {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.tx.Fee != b.tx.Fee {
			return a.tx.Fee > b.tx.Fee
		}
		if cmp := bytes.Compare(a.sender[:], b.sender[:]); cmp != 0 {
			return cmp < 0
		}
		return a.tx.Nonce < b.tx.Nonce
	})

	if maxCount >= 0 && maxCount < len(entries) {
		entries = entries[:maxCount]
	}
	out := make([]*primitives.Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.tx
	}
	return out
}

// Run reads head-changed events off sub until ctx is done, re-validating
// the pool and publishing transactions-ready after each sweep. It is
// meant to run in its own goroutine, wired by whatever owns both the
// chain and the pool.
func (p *Pool) Run(ctx context.Context, sub *eventbus.Subscription[events.HeadChanged]) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			p.sweep(ev.NewHead)
		}
	}
}

// sweep re-validates every pending entry against the current account
// state in a single pass, dropping anything now invalid, then
// publishes transactions-ready exactly once.
func (p *Pool) sweep(head chainhash.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bySenderAddr := make(map[primitives.Address][]*entry)
	for _, e := range p.byKey {
		bySenderAddr[e.sender] = append(bySenderAddr[e.sender], e)
	}

	for sender, pending := range bySenderAddr {
		sort.Slice(pending, func(i, j int) bool { return pending[i].tx.Nonce < pending[j].tx.Nonce })

		account, err := p.accountsView.Get(sender)
		if err != nil {
			logger.Warnf("mempool: sweep: read sender %s: %v", sender, err)
			p.dropAll(pending, RemovalReasonUnknown)
			continue
		}

		var spent uint64
		wantNonce := account.Nonce
		for _, e := range pending {
			reason := RemovalReason(-1)
			switch {
			case e.tx.Nonce < account.Nonce:
				reason = RemovalReasonMined
			case e.tx.Nonce != wantNonce:
				reason = RemovalReasonStaleNonce
			default:
				total, overflow := addUint64(spent, e.tx.Total())
				if overflow || total > account.Balance {
					reason = RemovalReasonInsufficientBalance
				} else {
					spent = total
				}
			}
			if reason >= 0 {
				p.drop(e, reason)
				continue
			}
			wantNonce++
		}
	}

	p.txsReady.Publish(events.TransactionsReady{Head: head})
}

func (p *Pool) dropAll(entries []*entry, reason RemovalReason) {
	for _, e := range entries {
		p.drop(e, reason)
	}
}

// drop removes e from both indices. Caller holds p.mu.
func (p *Pool) drop(e *entry, reason RemovalReason) {
	key := senderNonce{sender: e.sender, nonce: e.tx.Nonce}
	delete(p.byKey, key)

	bucket := senderBucket(e.sender)
	entries := p.bySender[bucket]
	for i, cand := range entries {
		if cand == e {
			p.bySender[bucket] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	logger.Debugf("mempool: dropped %s from %s: %s", e.hash, e.sender, reason)
}

func addUint64(a, b uint64) (sum uint64, overflow bool) {
	sum = a + b
	return sum, sum < a
}
