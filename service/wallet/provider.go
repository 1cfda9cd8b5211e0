package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/brojonat/waveportal/service/config"
)

// Provider is the wallet capability: it reports authorized accounts and
// signs transactions for the first one.
type Provider interface {
	ReadAccounts(ctx context.Context) ([]string, error)
	RequestAccounts(ctx context.Context) ([]string, error)
	SigningHandle(ctx context.Context) (*bind.TransactOpts, error)
}

var (
	_ Provider = (*KeystoreProvider)(nil)
	_ Provider = (*KeyProvider)(nil)
)

// FromConfig builds the provider selected by cfg. It returns a nil Provider
// and no error when no wallet is configured. A keystore with a configured
// passphrase is authorized immediately; otherwise prompt is used on the
// first connect.
func FromConfig(cfg *config.Config, chainID *big.Int, prompt PassphraseFunc, logger *slog.Logger) (Provider, error) {
	switch {
	case cfg.WalletPrivateKey != "":
		p, err := NewKeyProvider(cfg.WalletPrivateKey, chainID)
		if err != nil {
			return nil, err
		}
		logger.Info("using private key wallet", "account", p.address.Hex())
		return p, nil

	case cfg.KeystoreDir != "":
		p := NewKeystoreProvider(cfg.KeystoreDir, chainID, prompt, logger)
		if cfg.WalletPassphrase != "" {
			account, err := p.Authorize(cfg.WalletPassphrase)
			if err != nil {
				return nil, fmt.Errorf("failed to authorize keystore account: %w", err)
			}
			logger.Info("keystore account authorized", "account", account)
		}
		return p, nil

	default:
		logger.Info("no wallet configured")
		return nil, nil
	}
}
