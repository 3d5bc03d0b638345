package chain_test

import (
	"math/big"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/floxnode/floxnode/accounts"
	"github.com/floxnode/floxnode/accountstree"
	"github.com/floxnode/floxnode/chain"
	"github.com/floxnode/floxnode/chaindata"
	"github.com/floxnode/floxnode/crypto"
	"github.com/floxnode/floxnode/merkle"
	"github.com/floxnode/floxnode/pow"
	"github.com/floxnode/floxnode/primitives"
	"github.com/floxnode/floxnode/storage"
)

// easyBits is a proof-of-work target so permissive that essentially
// every block hash satisfies it, the way a regtest-style network
// fixes an easy target instead of actually searching for a nonce.
const easyBits = 0x2100ffff

func easyPowLimit() *big.Int { return pow.CompactToBig(easyBits) }

type testChain struct {
	chain *chain.FullChain
	acc   *accounts.Accounts
	hash  merkle.HashFunc
	seed  map[primitives.Address]primitives.Account
}

// builder returns a fresh Accounts instance seeded exactly like tc's
// real one, for constructing a branch's headers block by block before
// any of it is pushed. It is independent of tc.acc, which only ever
// reflects blocks actually accepted onto a chain via PushBlock.
func (tc *testChain) builder(t *testing.T) *accounts.Accounts {
	t.Helper()
	return newAccounts(t, tc.seed)
}

// testReward is the fixed, nonzero per-block subsidy used across these
// tests so a rebranch's revert step has an observable effect to check.
const testReward = 7

func newAccounts(t *testing.T, seed map[primitives.Address]primitives.Account) *accounts.Accounts {
	t.Helper()
	tree := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	for addr, a := range seed {
		require.NoError(t, tree.Put(addr, a))
	}
	return accounts.New(tree, func(uint32) uint64 { return testReward })
}

func newTestChain(t *testing.T, seed map[primitives.Address]primitives.Account) *testChain {
	t.Helper()
	kv, err := storage.NewLevelDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	cdStore, err := chaindata.New(kv)
	require.NoError(t, err)

	acc := newAccounts(t, seed)

	genesis := &primitives.Block{
		Header:    &primitives.BlockHeader{NBits: easyBits, Height: 0, Timestamp: 1},
		Interlink: &primitives.BlockInterlink{},
		Body:      &primitives.BlockBody{},
	}
	genesis.Header.InterlinkHash = genesis.Interlink.Hash(crypto.Hash)
	genesis.Header.BodyHash = genesis.Body.Hash(crypto.Hash)
	genesis.Header.AccountsHash = acc.Hash()

	policy := chain.Policy{
		RetargetWindow:       4,
		TargetSpacingSeconds: 60,
		RetargetClampFactor:  4,
		MaxFutureDrift:       chain.MaxFutureDrift,
		PowLimit:             easyPowLimit(),
		Genesis:              genesis,
		BlockReward:          func(uint32) uint64 { return testReward },
	}

	c, err := chain.New(cdStore, acc, crypto.Hash, policy)
	require.NoError(t, err)
	return &testChain{chain: c, acc: acc, hash: crypto.Hash, seed: seed}
}

// child builds a valid child of parent with the given transactions,
// computing every derived field (interlink, accountsHash, nBits) the
// way a miner's candidate assembly would. Since easyBits accepts
// essentially any hash, no real nonce search is needed. previewAcc
// supplies the accountsHash and must reflect the state of parent's
// branch exactly as built so far: the caller advances it by calling
// previewAcc.CommitBlockBody once per block, in branch order, whether
// or not that block has actually been pushed to the real chain yet.
// tc.acc is reserved for the chain's real, push-driven state and must
// never be used as previewAcc for a block that is not the very next
// one on the currently canonical path.
func (tc *testChain) child(t *testing.T, previewAcc *accounts.Accounts, parent *primitives.Block, minerAddr primitives.Address, txs []*primitives.Transaction, timestamp uint32) *primitives.Block {
	t.Helper()
	parentHash := parent.Hash(tc.hash)
	height := parent.Header.Height + 1

	body := &primitives.BlockBody{MinerAddress: minerAddr, Transactions: txs}
	accountsHash, err := previewAcc.PreviewAccountsHash(body, height)
	require.NoError(t, err)

	nextBits := parent.Header.NBits // RetargetWindow=4 in these tests, no boundary crossed below height 4

	parentWork := pow.CalcWork(parent.Header.NBits)
	nextWork := pow.CalcWork(nextBits)
	interlink := parent.Interlink.Derive(parentHash, parentWork, nextWork)

	header := &primitives.BlockHeader{
		PrevHash:     parentHash,
		AccountsHash: accountsHash,
		NBits:        nextBits,
		Height:       height,
		Timestamp:    timestamp,
	}
	header.InterlinkHash = interlink.Hash(tc.hash)
	header.BodyHash = body.Hash(tc.hash)

	require.NoError(t, previewAcc.CommitBlockBody(body, height, accountsHash))

	return &primitives.Block{Header: header, Interlink: interlink, Body: body}
}

func (tc *testChain) genesis() *primitives.Block {
	b, err := tc.chain.GetBlock(tc.chain.Head())
	if err == nil && b.Header.Height == 0 {
		return b
	}
	// Head may already have moved in a test; genesis is always
	// reachable by walking PrevHash from whatever GetBlock returns,
	// but every test that needs genesis calls this before pushing
	// anything, so the chain head is still genesis itself.
	return b
}

func pkAddr(b byte) ([primitives.PubKeySize]byte, primitives.Address) {
	var pk [primitives.PubKeySize]byte
	pk[0] = b
	return pk, crypto.PubkeyToAddress(pk)
}

func newSigner(t *testing.T, seed byte) *crypto.Signer {
	t.Helper()
	var raw [32]byte
	raw[31] = seed
	raw[0] = 0x01 // keep the scalar away from 0
	return crypto.NewSigner(secp256k1.PrivKeyFromBytes(raw[:]))
}

func signedTx(t *testing.T, signer *crypto.Signer, recipient primitives.Address, value, fee uint64, nonce uint32) *primitives.Transaction {
	t.Helper()
	tx := &primitives.Transaction{
		SenderPubKey: signer.PubKey(),
		Recipient:    recipient,
		Value:        value,
		Fee:          fee,
		Nonce:        nonce,
	}
	sig, err := signer.Sign(tx.SigningPayload())
	require.NoError(t, err)
	tx.Signature = sig
	return tx
}

func TestPushBlockExtendsLinearly(t *testing.T) {
	tc := newTestChain(t, nil)
	genesis := tc.genesis()

	var miner primitives.Address
	miner[19] = 0x01

	bld := tc.builder(t)
	b1 := tc.child(t, bld, genesis, miner, nil, 61)
	result, err := tc.chain.PushBlock(b1)
	require.NoError(t, err)
	require.Equal(t, chain.Extended, result)
	require.Equal(t, b1.Hash(tc.hash), tc.chain.Head())

	b2 := tc.child(t, bld, b1, miner, nil, 122)
	result, err = tc.chain.PushBlock(b2)
	require.NoError(t, err)
	require.Equal(t, chain.Extended, result)
	require.Equal(t, b2.Hash(tc.hash), tc.chain.Head())
}

func TestPushBlockKnownIsIdempotent(t *testing.T) {
	tc := newTestChain(t, nil)
	genesis := tc.genesis()

	var miner primitives.Address
	miner[19] = 0x02
	b1 := tc.child(t, tc.builder(t), genesis, miner, nil, 61)

	result, err := tc.chain.PushBlock(b1)
	require.NoError(t, err)
	require.Equal(t, chain.Extended, result)

	result, err = tc.chain.PushBlock(b1)
	require.NoError(t, err)
	require.Equal(t, chain.Known, result)
}

func TestPushBlockRejectsBadProofOfWork(t *testing.T) {
	tc := newTestChain(t, nil)
	genesis := tc.genesis()

	var miner primitives.Address
	miner[19] = 0x03
	b1 := tc.child(t, tc.builder(t), genesis, miner, nil, 61)
	b1.Header.NBits = 0x03000001 // an unreachably hard target

	result, err := tc.chain.PushBlock(b1)
	require.Error(t, err)
	require.Equal(t, chain.Invalid, result)
}

func TestPushBlockBuffersOrphanThenResolves(t *testing.T) {
	tc := newTestChain(t, nil)
	genesis := tc.genesis()

	var miner primitives.Address
	miner[19] = 0x04
	bld := tc.builder(t)
	b1 := tc.child(t, bld, genesis, miner, nil, 61)
	b2 := tc.child(t, bld, b1, miner, nil, 122)

	result, err := tc.chain.PushBlock(b2)
	require.NoError(t, err)
	require.Equal(t, chain.Orphan, result)
	require.Equal(t, genesis.Hash(tc.hash), tc.chain.Head(), "head must not move while b2 is orphaned")

	result, err = tc.chain.PushBlock(b1)
	require.NoError(t, err)
	require.Equal(t, chain.Extended, result)
	require.Equal(t, b2.Hash(tc.hash), tc.chain.Head(), "resolving b1 must also connect the previously-orphaned b2")
}

func TestTransferAppliesAcrossABlock(t *testing.T) {
	signerSender := newSigner(t, 0x10)
	addrSender := signerSender.Address()
	_, addrRecipient := pkAddr(0x11)
	tc := newTestChain(t, map[primitives.Address]primitives.Account{
		addrSender: {Balance: 1000, Nonce: 0},
	})
	genesis := tc.genesis()

	var miner primitives.Address
	miner[19] = 0x05

	tx := signedTx(t, signerSender, addrRecipient, 100, 1, 0)
	b1 := tc.child(t, tc.builder(t), genesis, miner, []*primitives.Transaction{tx}, 61)

	result, err := tc.chain.PushBlock(b1)
	require.NoError(t, err)
	require.Equal(t, chain.Extended, result)

	recipientAcct, err := tc.acc.Get(addrRecipient)
	require.NoError(t, err)
	require.Equal(t, uint64(100), recipientAcct.Balance)
}

func TestRebranchSwitchesToHeavierFork(t *testing.T) {
	tc := newTestChain(t, nil)
	genesis := tc.genesis()

	var minerA, minerB primitives.Address
	minerA[19] = 0x0A
	minerB[19] = 0x0B

	branchA := tc.child(t, tc.builder(t), genesis, minerA, nil, 61)
	result, err := tc.chain.PushBlock(branchA)
	require.NoError(t, err)
	require.Equal(t, chain.Extended, result)
	require.Equal(t, branchA.Hash(tc.hash), tc.chain.Head())

	// branchB is a two-block fork off genesis, built against its own
	// builder so its headers never see branchA's effects: its first
	// block alone has the same per-block work as branchA and is merely
	// stored (ACCEPTED), but the second block pushes its cumulative
	// work past branchA's, forcing a rebranch.
	branchBBuilder := tc.builder(t)
	branchB1 := tc.child(t, branchBBuilder, genesis, minerB, nil, 61)
	result, err = tc.chain.PushBlock(branchB1)
	require.NoError(t, err)
	require.Equal(t, chain.Accepted, result)
	require.Equal(t, branchA.Hash(tc.hash), tc.chain.Head(), "equal work must not move the head")

	branchB2 := tc.child(t, branchBBuilder, branchB1, minerB, nil, 122)
	result, err = tc.chain.PushBlock(branchB2)
	require.NoError(t, err)
	require.Equal(t, chain.Forked, result)
	require.Equal(t, branchB2.Hash(tc.hash), tc.chain.Head())

	minerAAcct, err := tc.acc.Get(minerA)
	require.NoError(t, err)
	require.True(t, minerAAcct.IsZero(), "branchA's effects must be reverted after the rebranch")
}
