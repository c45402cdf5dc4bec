package eth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nando-os/evmscope/eth"
)

func TestNewNetworkConfig_Defaults(t *testing.T) {
	t.Setenv("ETH_CHAIN_ID", "11155111")
	t.Setenv("ETH_RPC_URL", "http://localhost:8545")

	cfg, err := eth.NewNetworkConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(11155111), cfg.ChainID)
	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
	assert.Equal(t, 12*time.Second, cfg.BlockTime)
	assert.Equal(t, 2, cfg.RequiredConfirmations)
	assert.Equal(t, eth.GasAuto, cfg.GasLimit)
	assert.Equal(t, uint64(100), cfg.BlockPageSize)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 120*time.Second, cfg.TransactionAcceptanceTimeout)
}

func TestNewNetworkConfig_Overrides(t *testing.T) {
	t.Setenv("ETH_CHAIN_ID", "1")
	t.Setenv("ETH_BLOCK_TIME_SECONDS", "2")
	t.Setenv("ETH_REQUIRED_CONFIRMATIONS", "6")
	t.Setenv("ETH_GAS_LIMIT", "max")
	t.Setenv("ETH_BLOCK_PAGE_SIZE", "500")
	t.Setenv("ETH_CONCURRENCY", "16")
	t.Setenv("ETH_TRANSACTION_TIMEOUT_SECONDS", "30")

	cfg, err := eth.NewNetworkConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.BlockTime)
	assert.Equal(t, 6, cfg.RequiredConfirmations)
	assert.Equal(t, eth.GasMax, cfg.GasLimit)
	assert.Equal(t, uint64(500), cfg.BlockPageSize)
	assert.Equal(t, 16, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.TransactionAcceptanceTimeout)
}

func TestNewNetworkConfig_MissingChainID(t *testing.T) {
	t.Setenv("ETH_CHAIN_ID", "")
	_, err := eth.NewNetworkConfig()
	assert.Error(t, err)
}

func TestNewNetworkConfig_InvalidChainID(t *testing.T) {
	t.Setenv("ETH_CHAIN_ID", "mainnet")
	_, err := eth.NewNetworkConfig()
	assert.Error(t, err)
}

func TestNewNetworkConfig_BadNumbersFallBack(t *testing.T) {
	t.Setenv("ETH_CHAIN_ID", "1")
	t.Setenv("ETH_BLOCK_TIME_SECONDS", "soon")
	t.Setenv("ETH_CONCURRENCY", "-3")

	cfg, err := eth.NewNetworkConfig()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, cfg.BlockTime)
	assert.Equal(t, 4, cfg.Concurrency)
}
