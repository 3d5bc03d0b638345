package mempool_test

import (
	"context"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/floxnode/floxnode/accounts"
	"github.com/floxnode/floxnode/accountstree"
	"github.com/floxnode/floxnode/crypto"
	"github.com/floxnode/floxnode/eventbus"
	"github.com/floxnode/floxnode/events"
	"github.com/floxnode/floxnode/mempool"
	"github.com/floxnode/floxnode/primitives"
)

func fixedReward(uint32) uint64 { return 0 }

func newFundedAccounts(t *testing.T, funded map[primitives.Address]primitives.Account) *accounts.Accounts {
	t.Helper()
	tree := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	for addr, acct := range funded {
		require.NoError(t, tree.Put(addr, acct))
	}
	return accounts.New(tree, fixedReward)
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

func newTestPool(t *testing.T, funded map[primitives.Address]primitives.Account) (*mempool.Pool, *accounts.Accounts) {
	t.Helper()
	acc := newFundedAccounts(t, funded)
	return mempool.New(acc, mempool.Policy{MinFee: 1}), acc
}

func TestPushTransactionAdmitsValidTransfer(t *testing.T) {
	signer := newSigner(t, 0x01)
	sender := signer.Address()
	var recipient primitives.Address
	recipient[19] = 0x02

	pool, _ := newTestPool(t, map[primitives.Address]primitives.Account{
		sender: {Balance: 1000, Nonce: 0},
	})

	tx := signedTx(t, signer, recipient, 100, 10, 0)
	result, err := pool.PushTransaction(tx)
	require.NoError(t, err)
	require.Equal(t, mempool.Added, result)
	require.Equal(t, 1, pool.Count())
}

func TestPushTransactionRejectsBadSignature(t *testing.T) {
	signer := newSigner(t, 0x01)
	sender := signer.Address()
	var recipient primitives.Address
	recipient[19] = 0x02

	pool, _ := newTestPool(t, map[primitives.Address]primitives.Account{
		sender: {Balance: 1000, Nonce: 0},
	})

	tx := signedTx(t, signer, recipient, 100, 10, 0)
	tx.Signature[0] ^= 0xff

	result, err := pool.PushTransaction(tx)
	require.Error(t, err)
	require.Equal(t, mempool.Invalid, result)
}

func TestPushTransactionRejectsFeeBelowMinimum(t *testing.T) {
	signer := newSigner(t, 0x01)
	sender := signer.Address()
	var recipient primitives.Address
	recipient[19] = 0x02

	pool, _ := newTestPool(t, map[primitives.Address]primitives.Account{
		sender: {Balance: 1000, Nonce: 0},
	})

	tx := signedTx(t, signer, recipient, 100, 0, 0)
	result, err := pool.PushTransaction(tx)
	require.Error(t, err)
	require.Equal(t, mempool.Invalid, result)
}

func TestPushTransactionEnforcesNonceContiguity(t *testing.T) {
	signer := newSigner(t, 0x01)
	sender := signer.Address()
	var recipient primitives.Address
	recipient[19] = 0x02

	pool, _ := newTestPool(t, map[primitives.Address]primitives.Account{
		sender: {Balance: 1000, Nonce: 0},
	})

	skip := signedTx(t, signer, recipient, 100, 10, 1) // skips nonce 0
	result, err := pool.PushTransaction(skip)
	require.Error(t, err)
	require.Equal(t, mempool.Invalid, result)

	first := signedTx(t, signer, recipient, 100, 10, 0)
	result, err = pool.PushTransaction(first)
	require.NoError(t, err)
	require.Equal(t, mempool.Added, result)

	second := signedTx(t, signer, recipient, 100, 10, 1)
	result, err = pool.PushTransaction(second)
	require.NoError(t, err)
	require.Equal(t, mempool.Added, result)
}

func TestPushTransactionRejectsOverspend(t *testing.T) {
	signer := newSigner(t, 0x01)
	sender := signer.Address()
	var recipient primitives.Address
	recipient[19] = 0x02

	pool, _ := newTestPool(t, map[primitives.Address]primitives.Account{
		sender: {Balance: 150, Nonce: 0},
	})

	first := signedTx(t, signer, recipient, 100, 10, 0)
	result, err := pool.PushTransaction(first)
	require.NoError(t, err)
	require.Equal(t, mempool.Added, result)

	second := signedTx(t, signer, recipient, 100, 10, 1) // 110+110 > 150
	result, err = pool.PushTransaction(second)
	require.Error(t, err)
	require.Equal(t, mempool.Invalid, result)
}

func TestGetTransactionsOrdersByFeeDescending(t *testing.T) {
	signerA := newSigner(t, 0x01)
	signerB := newSigner(t, 0x02)
	var recipient primitives.Address
	recipient[19] = 0x09

	pool, _ := newTestPool(t, map[primitives.Address]primitives.Account{
		signerA.Address(): {Balance: 1000, Nonce: 0},
		signerB.Address(): {Balance: 1000, Nonce: 0},
	})

	low := signedTx(t, signerA, recipient, 100, 5, 0)
	high := signedTx(t, signerB, recipient, 100, 50, 0)

	_, err := pool.PushTransaction(low)
	require.NoError(t, err)
	_, err = pool.PushTransaction(high)
	require.NoError(t, err)

	got := pool.GetTransactions(10)
	require.Len(t, got, 2)
	require.Equal(t, uint64(50), got[0].Fee, "higher fee must sort first")
	require.Equal(t, uint64(5), got[1].Fee)
}

func TestSweepDropsMinedEntryAndKeepsStillValidSuccessor(t *testing.T) {
	signer := newSigner(t, 0x01)
	sender := signer.Address()
	var recipient primitives.Address
	recipient[19] = 0x02

	pool, acc := newTestPool(t, map[primitives.Address]primitives.Account{
		sender: {Balance: 1000, Nonce: 0},
	})

	tx0 := signedTx(t, signer, recipient, 100, 10, 0)
	tx1 := signedTx(t, signer, recipient, 100, 10, 1)
	_, err := pool.PushTransaction(tx0)
	require.NoError(t, err)
	_, err = pool.PushTransaction(tx1)
	require.NoError(t, err)
	require.Equal(t, 2, pool.Count())

	// Simulate tx0 having been mined directly against the ledger (not
	// through this pool), advancing the sender's nonce past it. tx1
	// remains valid: its nonce now continues the on-chain nonce and the
	// sender's remaining balance still covers it.
	body := &primitives.BlockBody{MinerAddress: recipient, Transactions: []*primitives.Transaction{tx0}}
	want, err := acc.PreviewAccountsHash(body, 1)
	require.NoError(t, err)
	require.NoError(t, acc.CommitBlockBody(body, 1, want))

	bus := eventbus.New[events.HeadChanged]()
	sub := bus.Subscribe(1)
	readySub := pool.SubscribeTransactionsReady(1)

	ctx, cancel := context.WithCancel(context.Background())
	go pool.Run(ctx, sub)
	defer cancel()

	bus.Publish(events.HeadChanged{})

	<-readySub.C()
	require.Equal(t, 1, pool.Count(), "tx0 must be dropped as mined, tx1 must survive")
	remaining := pool.GetTransactions(10)
	require.Len(t, remaining, 1)
	require.Equal(t, uint32(1), remaining[0].Nonce)
}
