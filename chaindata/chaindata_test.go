package chaindata_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/floxnode/floxnode/chaindata"
	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/primitives"
	"github.com/floxnode/floxnode/storage"
)

func newMemKV(t *testing.T) *storage.LevelDB {
	t.Helper()
	db, err := storage.NewLevelDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleChainData() *chaindata.ChainData {
	return &chaindata.ChainData{
		Block: &primitives.Block{
			Header:    &primitives.BlockHeader{Height: 1, NBits: 0x1d00ffff},
			Interlink: &primitives.BlockInterlink{},
		},
		TotalWork:   big.NewInt(100),
		OnMainChain: true,
	}
}

func TestStorePutGetRoundTrip(t *testing.T) {
	kv := newMemKV(t)
	store, err := chaindata.New(kv)
	require.NoError(t, err)

	var hash chainhash.Hash
	hash[0] = 0x01
	cd := sampleChainData()

	batch := store.NewBatch()
	batch.Put(hash, cd)
	batch.SetHead(hash)
	require.NoError(t, batch.Commit())

	got, err := store.Get(hash)
	require.NoError(t, err)
	require.Equal(t, cd.TotalWork, got.TotalWork)
	require.Equal(t, cd.OnMainChain, got.OnMainChain)
	require.Equal(t, hash, store.Head())
}

func TestStoreGetMissingReturnsNotFound(t *testing.T) {
	kv := newMemKV(t)
	store, err := chaindata.New(kv)
	require.NoError(t, err)

	var hash chainhash.Hash
	hash[0] = 0xFF
	_, err = store.Get(hash)
	require.ErrorIs(t, err, chaindata.ErrNotFound)

	has, err := store.Has(hash)
	require.NoError(t, err)
	require.False(t, has)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	kv, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	store, err := chaindata.New(kv)
	require.NoError(t, err)

	var hash chainhash.Hash
	hash[0] = 0x02
	cd := sampleChainData()
	batch := store.NewBatch()
	batch.Put(hash, cd)
	batch.SetHead(hash)
	require.NoError(t, batch.Commit())
	require.NoError(t, kv.Close())

	kv2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer kv2.Close()

	store2, err := chaindata.New(kv2)
	require.NoError(t, err)
	require.Equal(t, hash, store2.Head())

	got, err := store2.Get(hash)
	require.NoError(t, err)
	require.Equal(t, cd.TotalWork, got.TotalWork)
}
