package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
database:
  engine: sqlite
  dsn: "file::memory:"
ibet:
  chain_id: 2017
  endpoints:
    - uri: http://ibet-main:8545
    - uri: http://ibet-standby:8545
  failover: true
ethereum:
  chain_id: 11155111
  has_finality: true
  monitor_interval: 30s
  endpoints:
    - uri: http://eth:8545
bridge:
  interval: 5s
  block_lot_size: 500
monitor:
  period: 5
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Engine)
	assert.Equal(t, []string{"http://ibet-main:8545", "http://ibet-standby:8545"}, cfg.Ibet.URIs())
	assert.True(t, cfg.Ibet.Failover)
	assert.Equal(t, int64(11155111), cfg.Ethereum.ChainID)
	assert.Equal(t, 5*time.Second, cfg.Bridge.Interval)
	assert.Equal(t, uint64(500), cfg.Bridge.BlockLotSize)
	assert.Equal(t, 5, cfg.Monitor.Period)

	// untouched values keep their defaults
	assert.Equal(t, uint64(10000), cfg.Indexer.BlockLotSize)
	assert.Equal(t, uint64(2), cfg.Monitor.RemainingThreshold)
	assert.Equal(t, float64(20), cfg.Monitor.SpeedThreshold)
	assert.Equal(t, 3*time.Second, cfg.Ibet.MonitorInterval)
	assert.Equal(t, 30*time.Second, cfg.Ethereum.MonitorInterval)
}

func TestDefaultMonitorIntervals(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 3*time.Second, cfg.Ibet.MonitorInterval)
	assert.Equal(t, 60*time.Second, cfg.Ethereum.MonitorInterval)

	t.Setenv("ETHEREUM_MONITOR_INTERVAL", "2m")
	loaded, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, loaded.Ethereum.MonitorInterval)

	t.Setenv("IBET_MONITOR_INTERVAL", "0s")
	_, err = Load(writeConfig(t, testConfig))
	assert.ErrorContains(t, err, "monitor interval")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("ETHEREUM_ENDPOINTS", "http://a:8545,http://b:8545")
	t.Setenv("RELAYER_ADDRESS", "0x0000000000000000000000000000000000000001")
	t.Setenv("BRIDGE_BLOCK_LOT_SIZE", "42")

	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"http://a:8545", "http://b:8545"}, cfg.Ethereum.URIs())
	assert.Equal(t, "0x0000000000000000000000000000000000000001", cfg.Relayer.Address)
	assert.Equal(t, uint64(42), cfg.Bridge.BlockLotSize)
}

func TestLoadValidation(t *testing.T) {
	_, err := Load(writeConfig(t, "database:\n  engine: sqlite\n"))
	assert.ErrorContains(t, err, "no endpoints")

	body := testConfig + "\nindexer:\n  block_lot_size: 0\n"
	_, err = Load(writeConfig(t, body))
	assert.ErrorContains(t, err, "lot size")
}
