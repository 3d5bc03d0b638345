package config

import (
	"math/big"

	"github.com/floxnode/floxnode/accounts"
	"github.com/floxnode/floxnode/chain"
	"github.com/floxnode/floxnode/chainhash"
	"github.com/floxnode/floxnode/crypto"
	"github.com/floxnode/floxnode/pow"
	"github.com/floxnode/floxnode/primitives"
)

// mainnetGenesisTimestamp and mainnetGenesisBits keep the network's
// original launch constants rather than picking fresh ones: the same
// Unix timestamp and compact difficulty the first block ever mined on
// this network carried.
const (
	mainnetGenesisTimestamp = 1631485359
	mainnetGenesisBits      = 0x1f00ffff
)

// MainnetPowLimit is the easiest target mainnet will ever accept,
// decoded from the same compact encoding genesis itself carries.
func MainnetPowLimit() *big.Int {
	return pow.CompactToBig(mainnetGenesisBits)
}

// MainnetGenesis builds the mainnet genesis block: an empty body (no
// miner reward on a block with no predecessor to have funded it) over
// accountsHash, the hash of whatever initial account balances the
// caller's genesis ledger seeds.
func MainnetGenesis(accountsHash func() chainhash.Hash) *primitives.Block {
	body := &primitives.BlockBody{}
	interlink := &primitives.BlockInterlink{}

	header := &primitives.BlockHeader{
		NBits:     mainnetGenesisBits,
		Height:    0,
		Timestamp: mainnetGenesisTimestamp,
	}
	header.InterlinkHash = interlink.Hash(crypto.Hash)
	header.BodyHash = body.Hash(crypto.Hash)
	header.AccountsHash = accountsHash()

	return &primitives.Block{Header: header, Interlink: interlink, Body: body}
}

// MainnetPolicy returns the chain.Policy for an empty-ledger mainnet
// node: callers seeding pre-funded accounts should build their own
// accounts.Accounts first and pass its Hash method as accountsHash to
// MainnetGenesis directly instead.
func MainnetPolicy(acc *accounts.Accounts) chain.Policy {
	genesis := MainnetGenesis(acc.Hash)
	return chain.DefaultPolicy(genesis, MainnetPowLimit())
}
