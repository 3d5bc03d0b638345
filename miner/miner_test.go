package miner_test

import (
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"

	"github.com/floxnode/floxnode/accounts"
	"github.com/floxnode/floxnode/accountstree"
	"github.com/floxnode/floxnode/chain"
	"github.com/floxnode/floxnode/chaindata"
	"github.com/floxnode/floxnode/crypto"
	"github.com/floxnode/floxnode/mempool"
	"github.com/floxnode/floxnode/miner"
	"github.com/floxnode/floxnode/pow"
	"github.com/floxnode/floxnode/primitives"
	"github.com/floxnode/floxnode/storage"
)

// easyBits is a target about half of all block hashes satisfy, so the
// miner's nonce search finds a solution within a few attempts.
const easyBits = 0x207fffff

const testReward = 5

func newFundedAccounts(t *testing.T, funded map[primitives.Address]primitives.Account) *accounts.Accounts {
	t.Helper()
	tree := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	for addr, a := range funded {
		require.NoError(t, tree.Put(addr, a))
	}
	return accounts.New(tree, func(uint32) uint64 { return testReward })
}

func newSigner(t *testing.T, seed byte) *crypto.Signer {
	t.Helper()
	var raw [32]byte
	raw[31] = seed
	raw[0] = 0x01
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

// newTestChain builds a single-genesis chain whose blocks carry nBits,
// so tests can pick an easy or an effectively unsolvable target.
func newTestChain(t *testing.T, acc *accounts.Accounts, nBits uint32) *chain.FullChain {
	t.Helper()
	kv, err := storage.NewLevelDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	cdStore, err := chaindata.New(kv)
	require.NoError(t, err)

	genesis := &primitives.Block{
		Header:    &primitives.BlockHeader{NBits: nBits, Height: 0, Timestamp: 1},
		Interlink: &primitives.BlockInterlink{},
		Body:      &primitives.BlockBody{},
	}
	genesis.Header.InterlinkHash = genesis.Interlink.Hash(crypto.Hash)
	genesis.Header.BodyHash = genesis.Body.Hash(crypto.Hash)
	genesis.Header.AccountsHash = acc.Hash()

	policy := chain.Policy{
		RetargetWindow:       4096,
		TargetSpacingSeconds: 60,
		RetargetClampFactor:  4,
		MaxFutureDrift:       chain.MaxFutureDrift,
		PowLimit:             pow.CompactToBig(easyBits),
		Genesis:              genesis,
		BlockReward:          func(uint32) uint64 { return testReward },
	}

	c, err := chain.New(cdStore, acc, crypto.Hash, policy)
	require.NoError(t, err)
	return c
}

func TestMinerMinesBlockOntoChain(t *testing.T) {
	signer := newSigner(t, 0x01)
	sender := signer.Address()
	var recipient, minerAddr primitives.Address
	recipient[19] = 0x02
	minerAddr[19] = 0x03

	acc := newFundedAccounts(t, map[primitives.Address]primitives.Account{
		sender: {Balance: 1000, Nonce: 0},
	})
	c := newTestChain(t, acc, easyBits)
	genesisHead := c.Head()

	pool := mempool.New(acc, mempool.Policy{MinFee: 1})
	tx := signedTx(t, signer, recipient, 100, 10, 0)
	result, err := pool.PushTransaction(tx)
	require.NoError(t, err)
	require.Equal(t, mempool.Added, result)

	m := miner.New(c, pool, acc, crypto.Hash, minerAddr, miner.Policy{
		PowLimit:             pow.CompactToBig(easyBits),
		MaxBlockTransactions: miner.DefaultMaxBlockTransactions,
		AttemptsPerYield:     8,
	})

	minedSub := m.SubscribeBlockMined(1)
	m.StartWork()
	defer m.StopWork()

	select {
	case ev := <-minedSub.C():
		require.Equal(t, uint32(1), ev.Block.Header.Height)
		require.Len(t, ev.Block.Body.Transactions, 1)
		require.Equal(t, tx.Nonce, ev.Block.Body.Transactions[0].Nonce)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a mined block")
	}

	require.Eventually(t, func() bool {
		return c.Head() != genesisHead
	}, time.Second, 10*time.Millisecond, "chain head must advance once the mined block is pushed")

	recipientAccount, err := acc.Get(recipient)
	require.NoError(t, err)
	require.Equal(t, uint64(100), recipientAccount.Balance, "the mined transaction's transfer must be applied to the shared ledger")
}

func TestStartWorkIsIdempotentAndStopWorkBlocksUntilExit(t *testing.T) {
	acc := newFundedAccounts(t, nil)
	c := newTestChain(t, acc, easyBits)
	pool := mempool.New(acc, mempool.Policy{MinFee: 1})

	var minerAddr primitives.Address
	minerAddr[19] = 0x09

	m := miner.New(c, pool, acc, crypto.Hash, minerAddr, miner.Policy{
		PowLimit:         pow.CompactToBig(easyBits),
		AttemptsPerYield: 8,
	})

	m.StartWork()
	require.True(t, m.Working())
	m.StartWork() // no-op while already working
	require.True(t, m.Working())

	m.StopWork()
	require.False(t, m.Working())
}
