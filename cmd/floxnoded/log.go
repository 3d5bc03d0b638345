package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate"

	"github.com/floxnode/floxnode/accounts"
	"github.com/floxnode/floxnode/chain"
	"github.com/floxnode/floxnode/chaindata"
	"github.com/floxnode/floxnode/config"
	"github.com/floxnode/floxnode/eventbus"
	"github.com/floxnode/floxnode/log"
	"github.com/floxnode/floxnode/mempool"
	"github.com/floxnode/floxnode/miner"
)

const logRotateThreshold = 10 * 1024 * 1024 // bytes before a new log file starts

// initLogging opens a rotating log file under logDir and installs a
// backend writing to both that file and stdout as the Logger for
// every package that declares a package-level UseLogger hook, each at
// level.
func initLogging(logDir string, level log.Level) (io.Closer, error) {
	rotator, err := logrotate.NewRotator(logRotateThreshold, filepath.Join(logDir, "floxnoded.log"))
	if err != nil {
		return nil, err
	}

	backend := log.NewBackend(io.MultiWriter(os.Stdout, rotator))

	install := func(l log.Logger) log.Logger { l.SetLevel(level); return l }

	chaindata.UseLogger(install(backend.Logger("CHDT")))
	accounts.UseLogger(install(backend.Logger("ACCT")))
	chain.UseLogger(install(backend.Logger("CHAN")))
	mempool.UseLogger(install(backend.Logger("MEMP")))
	miner.UseLogger(install(backend.Logger("MINR")))
	eventbus.UseLogger(install(backend.Logger("EVTB")))

	return rotator, nil
}

// mustLevel panics if cfg's log level string does not parse; LoadConfig
// already validated it, so a failure here means the two have drifted.
func mustLevel(cfg *config.Config) log.Level {
	lvl, ok := log.LevelFromString(cfg.LogLevel)
	if !ok {
		panic("floxnoded: unreachable: config validated an unrecognized log level " + cfg.LogLevel)
	}
	return lvl
}
