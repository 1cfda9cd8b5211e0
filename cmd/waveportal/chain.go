package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/brojonat/waveportal/service/config"
	"github.com/brojonat/waveportal/service/ethereum"
	"github.com/brojonat/waveportal/service/wallet"
)

// portal bundles the connections a contract command needs.
type portal struct {
	cfg      *config.Config
	rpc      *ethclient.Client
	chainID  *big.Int
	contract *ethereum.Contract
	logger   *slog.Logger
}

func (p *portal) Close() {
	p.rpc.Close()
}

// configFromFlags builds the configuration from global flags, which fall
// back to the same environment variables the server reads.
func configFromFlags(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{
		LogLevel:         c.String("log-level"),
		EthRPCURL:        c.String("rpc-url"),
		ContractAddress:  c.String("contract"),
		ContractABIPath:  c.String("abi"),
		GasLimit:         c.Uint64("gas-limit"),
		KeystoreDir:      c.String("keystore"),
		WalletPassphrase: c.String("passphrase"),
		WalletPrivateKey: strings.TrimPrefix(c.String("private-key"), "0x"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openPortal connects to the node and binds the contract.
func openPortal(c *cli.Context, logger *slog.Logger) (*portal, error) {
	cfg, err := configFromFlags(c)
	if err != nil {
		return nil, err
	}

	rpc, err := ethereum.Dial(c.Context, cfg.EthRPCURL)
	if err != nil {
		return nil, err
	}

	chainID, err := rpc.ChainID(c.Context)
	if err != nil {
		rpc.Close()
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}

	parsed, err := ethereum.LoadABI(cfg.ContractABIPath)
	if err != nil {
		rpc.Close()
		return nil, err
	}

	return &portal{
		cfg:      cfg,
		rpc:      rpc,
		chainID:  chainID,
		contract: ethereum.NewContract(common.HexToAddress(cfg.ContractAddress), parsed, rpc, nil, logger),
		logger:   logger,
	}, nil
}

// walletProvider builds the configured wallet. prompt is used when a
// keystore is configured without a passphrase.
func (p *portal) walletProvider(prompt wallet.PassphraseFunc) (wallet.Provider, error) {
	return wallet.FromConfig(p.cfg, p.chainID, prompt, p.logger)
}

// terminalPrompt reads a passphrase from the terminal with echo disabled.
func terminalPrompt(ctx context.Context, account string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal available for passphrase prompt (set WALLET_PASSPHRASE)")
	}

	fmt.Fprintf(os.Stderr, "Passphrase for %s: ", account)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(passphrase), nil
}

// cliLogger writes JSON logs to w at the level named by the log-level flag.
func cliLogger(c *cli.Context, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(c.String("log-level"))}))
}

func parseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
