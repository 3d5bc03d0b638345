// Package config parses the floxnoded bootstrap's command-line flags
// and config file into the policy constants and paths the core
// packages (accountstree, chain, mempool, miner) are parameterized
// over, in the familiar ini-file-plus-flags idiom: a single
// struct tagged for github.com/jessevdk/go-flags, read once from an
// ini-style file and then overridden by the command line.
package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"github.com/floxnode/floxnode/chain"
	"github.com/floxnode/floxnode/log"
	"github.com/floxnode/floxnode/mempool"
	"github.com/floxnode/floxnode/miner"
	"github.com/floxnode/floxnode/primitives"
)

const (
	defaultConfigFilename = "floxnoded.conf"
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "floxnoded.log"
	defaultLogLevel       = "info"
	defaultMinRelayFee    = 1
	defaultOrphanCapacity = 512
)

// appDataDir returns the default application directory for name: a
// dotted directory under the user's home. It covers the single case
// this project actually needs rather than a full per-OS table.
func appDataDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+name)
	}
	return filepath.Join(home, "."+name)
}

var defaultHomeDir = appDataDir("floxnoded")

// Config is the full set of flags and file options floxnoded accepts.
// Every field the core packages need a value for has a default so a
// bare `floxnoded` with no flags and no config file still runs.
type Config struct {
	ShowVersion bool `short:"V" long:"version" description:"Display version information and exit"`

	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"Directory to store the account tree and chain data"`
	LogDir     string `long:"logdir" description:"Directory to log output"`
	LogLevel   string `short:"d" long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical, off"`

	MinerAddress string `long:"mineraddress" description:"Hex-encoded 20-byte address credited for blocks this node mines; mining is disabled if empty"`

	RetargetWindow       uint32 `long:"retargetwindow" description:"Number of blocks between difficulty retargets"`
	TargetSpacingSeconds int64  `long:"targetspacing" description:"Intended number of seconds between blocks"`
	RetargetClampFactor  int64  `long:"retargetclamp" description:"Maximum retarget adjustment factor in either direction"`

	MinRelayFee          uint64 `long:"minrelayfee" description:"Minimum per-transaction fee the mempool will admit"`
	MaxPerSender         int    `long:"maxpersender" description:"Maximum pending transactions the mempool keeps per sender"`
	MaxBlockTransactions int    `long:"maxblocktxs" description:"Maximum transactions a mined candidate block pulls from the mempool"`
	OrphanCapacity       int    `long:"orphancapacity" description:"Orphan pool size setting; not read by the chain, whose orphan pool is fixed at 256 parent hashes"`

	AttemptsPerYield uint32 `long:"attemptsperyield" description:"Nonce attempts the miner's search loop makes between preemption checks"`
}

// defaultConfig returns a Config with every production default filled
// in, before any file or flag has been applied.
func defaultConfig() Config {
	return Config{
		ConfigFile:           filepath.Join(defaultHomeDir, defaultConfigFilename),
		DataDir:              filepath.Join(defaultHomeDir, defaultDataDirname),
		LogDir:               filepath.Join(defaultHomeDir, defaultLogDirname),
		LogLevel:             defaultLogLevel,
		RetargetWindow:       chain.RetargetWindow,
		TargetSpacingSeconds: chain.TargetSpacingSeconds,
		RetargetClampFactor:  chain.RetargetClampFactor,
		MinRelayFee:          defaultMinRelayFee,
		MaxPerSender:         mempool.DefaultMaxPerSender,
		MaxBlockTransactions: miner.DefaultMaxBlockTransactions,
		OrphanCapacity:       defaultOrphanCapacity,
		AttemptsPerYield:     miner.DefaultAttemptsPerYield,
	}
}

// LoadConfig parses args (typically os.Args[1:]) against an ini-style
// config file: a first pass over args alone locates -C/--configfile
// and -b/--datadir, an ini parse of that file then supplies
// file-level overrides, and a final pass over args again lets the
// command line win over the file.
// Directories named in the result are created if they do not already
// exist. It returns the resolved Config and any non-flag arguments.
func LoadConfig(args []string) (*Config, []string, error) {
	preCfg := defaultConfig()
	preParser := flags.NewParser(&preCfg, flags.Default&^flags.PrintErrors)
	if _, err := preParser.ParseArgs(args); err != nil {
		if isHelpError(err) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("config: pre-parse: %w", err)
	}

	cfg := defaultConfig()
	cfg.DataDir = preCfg.DataDir
	cfg.LogDir = preCfg.LogDir

	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		iniParser := flags.NewIniParser(flags.NewParser(&cfg, flags.Default))
		if err := iniParser.ParseFile(preCfg.ConfigFile); err != nil {
			return nil, nil, fmt.Errorf("config: parse %s: %w", preCfg.ConfigFile, err)
		}
	}
	cfg.ConfigFile = preCfg.ConfigFile

	parser := flags.NewParser(&cfg, flags.Default)
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		if isHelpError(err) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("config: parse: %w", err)
	}

	if cfg.ShowVersion {
		return &cfg, remaining, nil
	}

	if _, ok := log.LevelFromString(cfg.LogLevel); !ok {
		return nil, nil, fmt.Errorf("config: unrecognized log level %q", cfg.LogLevel)
	}

	for _, dir := range []string{cfg.DataDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("config: create %s: %w", dir, err)
		}
	}

	return &cfg, remaining, nil
}

func isHelpError(err error) bool {
	flagsErr, ok := err.(*flags.Error)
	return ok && flagsErr.Type == flags.ErrHelp
}

// MinerAddressBytes decodes MinerAddress, reporting ok=false if the
// field is empty (mining disabled) and an error if it is set but
// malformed.
func (c *Config) MinerAddressBytes() (addr primitives.Address, ok bool, err error) {
	if c.MinerAddress == "" {
		return addr, false, nil
	}
	raw, err := hex.DecodeString(c.MinerAddress)
	if err != nil {
		return addr, false, fmt.Errorf("config: mineraddress: %w", err)
	}
	addr, err = primitives.AddressFromBytes(raw)
	if err != nil {
		return addr, false, fmt.Errorf("config: mineraddress: %w", err)
	}
	return addr, true, nil
}

// ChainPolicy folds the retarget constants into a chain.Policy
// layered on top of genesis and powLimit, leaving BlockReward for the
// caller to supply since it is a ledger-economics decision this
// package has no opinion on.
func (c *Config) ChainPolicy(genesis *primitives.Block, powLimit *big.Int, blockReward func(height uint32) uint64) chain.Policy {
	return chain.Policy{
		RetargetWindow:       c.RetargetWindow,
		TargetSpacingSeconds: c.TargetSpacingSeconds,
		RetargetClampFactor:  c.RetargetClampFactor,
		MaxFutureDrift:       chain.MaxFutureDrift,
		PowLimit:             powLimit,
		Genesis:              genesis,
		BlockReward:          blockReward,
	}
}

// MempoolPolicy folds the fee/capacity constants into a mempool.Policy.
func (c *Config) MempoolPolicy() mempool.Policy {
	return mempool.Policy{
		MinFee:       c.MinRelayFee,
		MaxPerSender: c.MaxPerSender,
	}
}

// MinerPolicy folds the assembly/search constants into a miner.Policy.
func (c *Config) MinerPolicy(powLimit *big.Int) miner.Policy {
	return miner.Policy{
		PowLimit:             powLimit,
		MaxBlockTransactions: c.MaxBlockTransactions,
		AttemptsPerYield:     c.AttemptsPerYield,
	}
}
