// Command floxnoded is the thin bootstrap tying the core packages
// together: it loads configuration, opens the on-disk account tree
// and chain-data store, wires the chain, mempool and (optionally)
// miner to each other over their event buses, and runs until
// interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/floxnode/floxnode/accounts"
	"github.com/floxnode/floxnode/accountstree"
	"github.com/floxnode/floxnode/amount"
	"github.com/floxnode/floxnode/chain"
	"github.com/floxnode/floxnode/chaindata"
	"github.com/floxnode/floxnode/config"
	"github.com/floxnode/floxnode/crypto"
	"github.com/floxnode/floxnode/mempool"
	"github.com/floxnode/floxnode/miner"
	"github.com/floxnode/floxnode/storage"
)

const subscriptionBufSize = 32

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "floxnoded:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		if isHelpRequest(err) {
			return nil
		}
		return err
	}
	if cfg.ShowVersion {
		fmt.Println("floxnoded", version)
		return nil
	}

	closer, err := initLogging(cfg.LogDir, mustLevel(cfg))
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	kv, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open data dir %s: %w", cfg.DataDir, err)
	}
	defer kv.Close()

	blockReward := func(uint32) uint64 { return chain.DefaultBlockReward }

	tree := accountstree.New(accountstree.NewKVNodeStore(kv), crypto.Hash)
	acc := accounts.New(tree, blockReward)

	chainStore, err := chaindata.New(kv)
	if err != nil {
		return fmt.Errorf("open chain store: %w", err)
	}

	powLimit := config.MainnetPowLimit()
	genesis := config.MainnetGenesis(acc.Hash)
	policy := cfg.ChainPolicy(genesis, powLimit, blockReward)

	chn, err := chain.New(chainStore, acc, crypto.Hash, policy)
	if err != nil {
		return fmt.Errorf("open chain: %w", err)
	}

	pool := mempool.New(acc, cfg.MempoolPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pool.Run(ctx, chn.SubscribeHeadChanged(subscriptionBufSize))

	minerAddr, mine, err := cfg.MinerAddressBytes()
	if err != nil {
		return fmt.Errorf("mineraddress: %w", err)
	}

	var m *miner.Miner
	if mine {
		m = miner.New(chn, pool, acc, crypto.Hash, minerAddr, cfg.MinerPolicy(powLimit))
		go logBlocksMined(ctx, m, blockReward)
		go logHashrate(ctx, m)
		m.StartWork()
		defer m.StopWork()
	}

	waitForInterrupt()
	return nil
}

func logBlocksMined(ctx context.Context, m *miner.Miner, blockReward func(height uint32) uint64) {
	sub := m.SubscribeBlockMined(subscriptionBufSize)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C():
			reward := amount.Amount(blockReward(ev.Block.Header.Height))
			fmt.Printf("mined block at height %d, reward %s\n", ev.Block.Header.Height, reward)
		}
	}
}

func logHashrate(ctx context.Context, m *miner.Miner) {
	sub := m.SubscribeHashrateChanged(subscriptionBufSize)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C():
			fmt.Printf("hashrate %s H/s\n", ev.HashesPerSecond.Text('f', 2))
		}
	}
}

func waitForInterrupt() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	<-ch
}
