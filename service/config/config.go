package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultContractAddress is the deployed wave portal contract.
const DefaultContractAddress = "0x0729f8e19f708fb4d1a3abc000b72fa8535599c8"

// DefaultGasLimit is the fixed upper bound on gas for a wave transaction.
const DefaultGasLimit = 300000

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr     string
	LogLevel       string
	MetricsEnabled bool

	// NATS configuration (optional; empty disables the relay and SSE)
	NATSURL string

	// Ethereum configuration
	EthRPCURL       string
	ContractAddress string
	ContractABIPath string // empty uses the embedded artifact
	GasLimit        uint64

	// Wallet configuration. At most one of KeystoreDir or WalletPrivateKey
	// may be set; with neither, no wallet provider is available.
	KeystoreDir      string
	WalletPassphrase string
	WalletPrivateKey string

	// Feed behavior
	FetchOnConnect bool
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	metricsEnabled, err := parseBool("METRICS_ENABLED", true)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MetricsEnabled = metricsEnabled

	// NATS configuration
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Ethereum configuration
	cfg.EthRPCURL = os.Getenv("ETH_RPC_URL")
	if cfg.EthRPCURL == "" {
		errs = append(errs, fmt.Errorf("ETH_RPC_URL is required"))
	}

	cfg.ContractAddress = getEnvOrDefault("CONTRACT_ADDRESS", DefaultContractAddress)
	if !common.IsHexAddress(cfg.ContractAddress) {
		errs = append(errs, fmt.Errorf("CONTRACT_ADDRESS: invalid address %q", cfg.ContractAddress))
	}

	cfg.ContractABIPath = os.Getenv("CONTRACT_ABI_PATH")

	gasLimit, err := parseUint("WAVE_GAS_LIMIT", DefaultGasLimit)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.GasLimit = gasLimit
	}

	// Wallet configuration
	cfg.KeystoreDir = os.Getenv("KEYSTORE_DIR")
	cfg.WalletPassphrase = os.Getenv("WALLET_PASSPHRASE")
	cfg.WalletPrivateKey = strings.TrimPrefix(os.Getenv("WALLET_PRIVATE_KEY"), "0x")

	if cfg.KeystoreDir != "" && cfg.WalletPrivateKey != "" {
		errs = append(errs, fmt.Errorf("KEYSTORE_DIR and WALLET_PRIVATE_KEY are mutually exclusive"))
	}

	fetchOnConnect, err := parseBool("FETCH_ON_CONNECT", false)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.FetchOnConnect = fetchOnConnect

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.EthRPCURL == "" {
		errs = append(errs, fmt.Errorf("EthRPCURL is required"))
	}

	if !common.IsHexAddress(c.ContractAddress) {
		errs = append(errs, fmt.Errorf("ContractAddress must be a hex address"))
	}

	if c.GasLimit == 0 {
		errs = append(errs, fmt.Errorf("GasLimit must be positive"))
	}

	if c.KeystoreDir != "" && c.WalletPrivateKey != "" {
		errs = append(errs, fmt.Errorf("KeystoreDir and WalletPrivateKey are mutually exclusive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// HasWallet reports whether any wallet provider is configured.
func (c *Config) HasWallet() bool {
	return c.KeystoreDir != "" || c.WalletPrivateKey != ""
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseUint parses an unsigned integer from an environment variable or uses a default.
func parseUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	if result == 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return result, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
