package accountstree_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/floxnode/floxnode/accountstree"
	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/crypto"
	"github.com/floxnode/floxnode/primitives"
)

func addr(b byte) primitives.Address {
	var a primitives.Address
	a[0] = b
	a[19] = b
	return a
}

func TestTreeEmptyHashIsStable(t *testing.T) {
	a := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	b := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	require.Equal(t, a.Hash(), b.Hash())
	require.NotEqual(t, a.Hash(), chainhash.Hash{})
}

func TestTreePutGetRoundTrip(t *testing.T) {
	tree := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	a1 := addr(0x11)
	acct := primitives.Account{Balance: 500, Nonce: 2}

	require.NoError(t, tree.Put(a1, acct))

	got, err := tree.Get(a1)
	require.NoError(t, err)
	require.Equal(t, acct, got)

	missing, err := tree.Get(addr(0x99))
	require.NoError(t, err)
	require.True(t, missing.IsZero())
}

func TestTreeHashIsInsertionOrderIndependent(t *testing.T) {
	accts := map[primitives.Address]primitives.Account{
		addr(0x01): {Balance: 100, Nonce: 0},
		addr(0x02): {Balance: 200, Nonce: 1},
		addr(0xAB): {Balance: 300, Nonce: 2},
		addr(0xFF): {Balance: 400, Nonce: 3},
	}

	order1 := []primitives.Address{addr(0x01), addr(0x02), addr(0xAB), addr(0xFF)}
	order2 := []primitives.Address{addr(0xFF), addr(0xAB), addr(0x02), addr(0x01)}
	rand.New(rand.NewSource(1)).Shuffle(len(order2), func(i, j int) {
		order2[i], order2[j] = order2[j], order2[i]
	})

	t1 := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	for _, a := range order1 {
		require.NoError(t, t1.Put(a, accts[a]))
	}

	t2 := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	for _, a := range order2 {
		require.NoError(t, t2.Put(a, accts[a]))
	}

	require.Equal(t, t1.Hash(), t2.Hash())
}

func TestTreeDeleteRestoresEmptyHash(t *testing.T) {
	store := accountstree.NewMemNodeStore()
	tree := accountstree.New(store, crypto.Hash)
	empty := tree.Hash()

	a1, a2 := addr(0x01), addr(0x02)
	require.NoError(t, tree.Put(a1, primitives.Account{Balance: 10}))
	require.NoError(t, tree.Put(a2, primitives.Account{Balance: 20}))
	require.NotEqual(t, empty, tree.Hash())

	require.NoError(t, tree.Put(a1, primitives.Account{}))
	require.NoError(t, tree.Put(a2, primitives.Account{}))
	require.Equal(t, empty, tree.Hash())
}

func TestTreeDeleteMergesBranchBackToTerminal(t *testing.T) {
	tree := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	a1, a2 := addr(0x10), addr(0x20)

	require.NoError(t, tree.Put(a1, primitives.Account{Balance: 1}))
	require.NoError(t, tree.Put(a2, primitives.Account{Balance: 2}))

	require.NoError(t, tree.Put(a1, primitives.Account{}))

	got, err := tree.Get(a2)
	require.NoError(t, err)
	require.Equal(t, primitives.Account{Balance: 2}, got)

	solo := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	require.NoError(t, solo.Put(a2, primitives.Account{Balance: 2}))
	require.Equal(t, solo.Hash(), tree.Hash())
}

func TestTransactionIsolatesWritesUntilCommit(t *testing.T) {
	tree := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	a1 := addr(0x42)
	require.NoError(t, tree.Put(a1, primitives.Account{Balance: 7}))

	beforeHash := tree.Hash()

	overlay, err := tree.Transaction()
	require.NoError(t, err)

	require.NoError(t, overlay.Put(a1, primitives.Account{Balance: 70}))

	got, err := tree.Get(a1)
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.Balance)
	require.Equal(t, beforeHash, tree.Hash())

	require.NoError(t, overlay.Commit())

	got, err = tree.Get(a1)
	require.NoError(t, err)
	require.Equal(t, uint64(70), got.Balance)
}

func TestTransactionAbortDiscardsWrites(t *testing.T) {
	tree := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	a1 := addr(0x55)
	require.NoError(t, tree.Put(a1, primitives.Account{Balance: 9}))
	beforeHash := tree.Hash()

	overlay, err := tree.Transaction()
	require.NoError(t, err)
	require.NoError(t, overlay.Put(a1, primitives.Account{Balance: 999}))
	require.NoError(t, overlay.Abort())

	got, err := tree.Get(a1)
	require.NoError(t, err)
	require.Equal(t, uint64(9), got.Balance)
	require.Equal(t, beforeHash, tree.Hash())
}

func TestTransactionBusyRejectsConcurrentOpen(t *testing.T) {
	tree := accountstree.New(accountstree.NewMemNodeStore(), crypto.Hash)
	overlay, err := tree.Transaction()
	require.NoError(t, err)
	defer overlay.Abort()

	_, err = tree.Transaction()
	require.ErrorIs(t, err, accountstree.ErrTxBusy)

	require.ErrorIs(t, tree.Put(addr(0x01), primitives.Account{Balance: 1}), accountstree.ErrTxBusy)
}
