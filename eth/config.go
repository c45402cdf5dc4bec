package eth

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	envRpcURL                = "ETH_RPC_URL"
	envChainID               = "ETH_CHAIN_ID"
	envBlockTimeSeconds      = "ETH_BLOCK_TIME_SECONDS"
	envRequiredConfirmations = "ETH_REQUIRED_CONFIRMATIONS"
	envGasLimit              = "ETH_GAS_LIMIT"
	envBlockPageSize         = "ETH_BLOCK_PAGE_SIZE"
	envConcurrency           = "ETH_CONCURRENCY"
	envAcceptTimeoutSeconds  = "ETH_TRANSACTION_TIMEOUT_SECONDS"

	// --- Network policy defaults ---
	DEFAULT_BLOCK_TIME_SECONDS          = 12
	DEFAULT_REQUIRED_CONFIRMATIONS      = 2
	DEFAULT_BLOCK_PAGE_SIZE             = 100
	DEFAULT_CONCURRENCY                 = 4
	DEFAULT_TRANSACTION_TIMEOUT_SECONDS = 120
)

// NetworkConfig carries the network policy the preparer and confirmation
// tracker consult: expected chain id, nominal block time, default
// confirmation count and gas-limit behavior.
type NetworkConfig struct {
	RPCURL                string
	ChainID               int64
	BlockTime             time.Duration
	RequiredConfirmations int
	// GasLimit is the network default gas policy applied when a
	// transaction leaves its gas request empty: "auto", "max", or a
	// concrete decimal/hex string.
	GasLimit                     string
	BlockPageSize                uint64
	Concurrency                  int
	TransactionAcceptanceTimeout time.Duration
}

// NewNetworkConfig builds network policy from the environment, falling
// back to defaults for anything unset.
func NewNetworkConfig() (*NetworkConfig, error) {
	chainIDStr := os.Getenv(envChainID)
	if chainIDStr == "" {
		return nil, fmt.Errorf(envChainID + " environment variable is not set")
	}
	chainID, err := strconv.ParseInt(chainIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", envChainID, err)
	}

	gasLimit := os.Getenv(envGasLimit)
	if gasLimit == "" {
		gasLimit = GasAuto
	}

	return &NetworkConfig{
		RPCURL:                       os.Getenv(envRpcURL),
		ChainID:                      chainID,
		BlockTime:                    time.Duration(envInt(envBlockTimeSeconds, DEFAULT_BLOCK_TIME_SECONDS)) * time.Second,
		RequiredConfirmations:        envInt(envRequiredConfirmations, DEFAULT_REQUIRED_CONFIRMATIONS),
		GasLimit:                     gasLimit,
		BlockPageSize:                uint64(envInt(envBlockPageSize, DEFAULT_BLOCK_PAGE_SIZE)),
		Concurrency:                  envInt(envConcurrency, DEFAULT_CONCURRENCY),
		TransactionAcceptanceTimeout: time.Duration(envInt(envAcceptTimeoutSeconds, DEFAULT_TRANSACTION_TIMEOUT_SECONDS)) * time.Second,
	}, nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
