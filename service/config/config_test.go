package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	// Setup environment variables
	os.Setenv("ETH_RPC_URL", "wss://sepolia.example.com")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "wss://sepolia.example.com", cfg.EthRPCURL)
	assert.Equal(t, ":8080", cfg.ServerAddr) // Default
	assert.Equal(t, "info", cfg.LogLevel)    // Default
	assert.Equal(t, DefaultContractAddress, cfg.ContractAddress)
	assert.Equal(t, uint64(DefaultGasLimit), cfg.GasLimit)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.FetchOnConnect)
	assert.False(t, cfg.HasWallet())
	assert.Empty(t, cfg.NATSURL)
}

func TestLoad_MissingRPCURL(t *testing.T) {
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "ETH_RPC_URL is required")
}

func TestLoad_InvalidContractAddress(t *testing.T) {
	os.Setenv("ETH_RPC_URL", "wss://sepolia.example.com")
	os.Setenv("CONTRACT_ADDRESS", "not-an-address")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "CONTRACT_ADDRESS")
}

func TestLoad_InvalidGasLimit(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "not a number", value: "lots", want: "invalid integer"},
		{name: "negative", value: "-1", want: "invalid integer"},
		{name: "zero", value: "0", want: "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("ETH_RPC_URL", "wss://sepolia.example.com")
			os.Setenv("WAVE_GAS_LIMIT", tt.value)
			defer cleanupEnv()

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_WalletSourcesMutuallyExclusive(t *testing.T) {
	os.Setenv("ETH_RPC_URL", "wss://sepolia.example.com")
	os.Setenv("KEYSTORE_DIR", "/tmp/keystore")
	os.Setenv("WALLET_PRIVATE_KEY", "0xabc")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestLoad_InvalidBool(t *testing.T) {
	os.Setenv("ETH_RPC_URL", "wss://sepolia.example.com")
	os.Setenv("FETCH_ON_CONNECT", "sometimes")
	defer cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_ON_CONNECT")
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("ETH_RPC_URL", "wss://sepolia.example.com")
	os.Setenv("CONTRACT_ADDRESS", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	os.Setenv("CONTRACT_ABI_PATH", "/etc/waveportal/WavePortal.json")
	os.Setenv("WAVE_GAS_LIMIT", "500000")
	os.Setenv("WALLET_PRIVATE_KEY", "0xdeadbeef")
	os.Setenv("SERVER_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("NATS_URL", "nats://nats.example.com:4222")
	os.Setenv("METRICS_ENABLED", "false")
	os.Setenv("FETCH_ON_CONNECT", "true")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", cfg.ContractAddress)
	assert.Equal(t, "/etc/waveportal/WavePortal.json", cfg.ContractABIPath)
	assert.Equal(t, uint64(500000), cfg.GasLimit)
	assert.Equal(t, "deadbeef", cfg.WalletPrivateKey) // 0x prefix stripped
	assert.False(t, cfg.MetricsEnabled)
	assert.True(t, cfg.FetchOnConnect)
	assert.True(t, cfg.HasWallet())
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		EthRPCURL:       "wss://sepolia.example.com",
		ContractAddress: DefaultContractAddress,
		GasLimit:        DefaultGasLimit,
	}

	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_MissingRPCURL(t *testing.T) {
	cfg := &Config{
		ContractAddress: DefaultContractAddress,
		GasLimit:        DefaultGasLimit,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EthRPCURL is required")
}

func TestValidate_ZeroGasLimit(t *testing.T) {
	cfg := &Config{
		EthRPCURL:       "wss://sepolia.example.com",
		ContractAddress: DefaultContractAddress,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GasLimit must be positive")
}

func TestMustLoad_Panics(t *testing.T) {
	// Don't set required env vars
	defer cleanupEnv()

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	os.Setenv("ETH_RPC_URL", "wss://sepolia.example.com")
	defer cleanupEnv()

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}

// cleanupEnv clears all environment variables used in tests
func cleanupEnv() {
	os.Unsetenv("ETH_RPC_URL")
	os.Unsetenv("CONTRACT_ADDRESS")
	os.Unsetenv("CONTRACT_ABI_PATH")
	os.Unsetenv("WAVE_GAS_LIMIT")
	os.Unsetenv("KEYSTORE_DIR")
	os.Unsetenv("WALLET_PASSPHRASE")
	os.Unsetenv("WALLET_PRIVATE_KEY")
	os.Unsetenv("SERVER_ADDR")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("NATS_URL")
	os.Unsetenv("METRICS_ENABLED")
	os.Unsetenv("FETCH_ON_CONNECT")
}
