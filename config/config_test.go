package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/floxnode/floxnode/config"
)

func tempDirs(t *testing.T) (dataDir, logDir, configFile string) {
	t.Helper()
	root := t.TempDir()
	return filepath.Join(root, "data"), filepath.Join(root, "logs"), filepath.Join(root, "floxnoded.conf")
}

func TestLoadConfigAppliesDefaultsWithOnlyDirsOverridden(t *testing.T) {
	dataDir, logDir, configFile := tempDirs(t)

	cfg, remaining, err := config.LoadConfig([]string{
		"--datadir", dataDir,
		"--logdir", logDir,
		"--configfile", configFile,
	})
	require.NoError(t, err)
	require.Empty(t, remaining)

	require.Equal(t, dataDir, cfg.DataDir)
	require.Equal(t, logDir, cfg.LogDir)
	require.DirExists(t, dataDir)
	require.DirExists(t, logDir)

	require.Equal(t, "info", cfg.LogLevel)
	require.EqualValues(t, 1, cfg.MinRelayFee)
}

func TestLoadConfigFileIsOverriddenByCommandLine(t *testing.T) {
	dataDir, logDir, configFile := tempDirs(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(configFile), 0o700))
	require.NoError(t, os.WriteFile(configFile, []byte("minrelayfee = 42\ndebuglevel = warn\n"), 0o600))

	cfg, _, err := config.LoadConfig([]string{
		"--datadir", dataDir,
		"--logdir", logDir,
		"--configfile", configFile,
		"--minrelayfee", "99",
	})
	require.NoError(t, err)

	require.EqualValues(t, 99, cfg.MinRelayFee, "a flag on the command line must win over the config file")
	require.Equal(t, "warn", cfg.LogLevel, "a setting only present in the config file must still apply")
}

func TestLoadConfigRejectsUnknownLogLevel(t *testing.T) {
	dataDir, logDir, configFile := tempDirs(t)

	_, _, err := config.LoadConfig([]string{
		"--datadir", dataDir,
		"--logdir", logDir,
		"--configfile", configFile,
		"--debuglevel", "not-a-level",
	})
	require.Error(t, err)
}

func TestMinerAddressBytesRoundTrip(t *testing.T) {
	dataDir, logDir, configFile := tempDirs(t)

	cfg, _, err := config.LoadConfig([]string{
		"--datadir", dataDir,
		"--logdir", logDir,
		"--configfile", configFile,
		"--mineraddress", "0102030405060708090001020304050607080900",
	})
	require.NoError(t, err)

	addr, ok, err := cfg.MinerAddressBytes()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, byte(0x01), addr[0])
}

func TestMinerAddressBytesEmptyMeansDisabled(t *testing.T) {
	dataDir, logDir, configFile := tempDirs(t)

	cfg, _, err := config.LoadConfig([]string{
		"--datadir", dataDir,
		"--logdir", logDir,
		"--configfile", configFile,
	})
	require.NoError(t, err)

	_, ok, err := cfg.MinerAddressBytes()
	require.NoError(t, err)
	require.False(t, ok)
}
