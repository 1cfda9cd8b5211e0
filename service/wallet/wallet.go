package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotAuthorized is returned when no account has been authorized for
// signing and none could be obtained.
var ErrNotAuthorized = errors.New("no authorized account")

// ErrNoAccounts is returned when the keystore directory holds no keys.
var ErrNoAccounts = errors.New("keystore has no accounts")

// PassphraseFunc asks the user for the passphrase of account.
type PassphraseFunc func(ctx context.Context, account string) (string, error)

// KeystoreProvider exposes accounts from a go-ethereum keystore directory.
// Only accounts unlocked during this process are reported as authorized.
type KeystoreProvider struct {
	ks      *keystore.KeyStore
	chainID *big.Int
	prompt  PassphraseFunc
	logger  *slog.Logger

	mu         sync.Mutex
	authorized []accounts.Account
}

// NewKeystoreProvider opens the keystore at dir. prompt may be nil, in
// which case RequestAccounts can only succeed after Authorize.
func NewKeystoreProvider(dir string, chainID *big.Int, prompt PassphraseFunc, logger *slog.Logger) *KeystoreProvider {
	return &KeystoreProvider{
		ks:      keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		chainID: chainID,
		prompt:  prompt,
		logger:  logger,
	}
}

// Authorize unlocks the first keystore account with passphrase.
func (p *KeystoreProvider) Authorize(passphrase string) (string, error) {
	acct, err := p.firstAccount()
	if err != nil {
		return "", err
	}
	return p.unlock(acct, passphrase)
}

// ReadAccounts returns the accounts already authorized, without prompting.
func (p *KeystoreProvider) ReadAccounts(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return addresses(p.authorized), nil
}

// RequestAccounts returns the authorized accounts, prompting for the
// passphrase of the first keystore account if none is authorized yet.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	if accts, _ := p.ReadAccounts(ctx); len(accts) > 0 {
		return accts, nil
	}
	if p.prompt == nil {
		return nil, ErrNotAuthorized
	}

	acct, err := p.firstAccount()
	if err != nil {
		return nil, err
	}
	passphrase, err := p.prompt(ctx, acct.Address.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	if _, err := p.unlock(acct, passphrase); err != nil {
		return nil, err
	}
	return p.ReadAccounts(ctx)
}

// SigningHandle returns transaction options signing with the first
// authorized account.
func (p *KeystoreProvider) SigningHandle(ctx context.Context) (*bind.TransactOpts, error) {
	p.mu.Lock()
	if len(p.authorized) == 0 {
		p.mu.Unlock()
		return nil, ErrNotAuthorized
	}
	acct := p.authorized[0]
	p.mu.Unlock()

	opts, err := bind.NewKeyStoreTransactorWithChainID(p.ks, acct, p.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

func (p *KeystoreProvider) firstAccount() (accounts.Account, error) {
	accts := p.ks.Accounts()
	if len(accts) == 0 {
		return accounts.Account{}, ErrNoAccounts
	}
	return accts[0], nil
}

func (p *KeystoreProvider) unlock(acct accounts.Account, passphrase string) (string, error) {
	if err := p.ks.Unlock(acct, passphrase); err != nil {
		return "", fmt.Errorf("failed to unlock %s: %w", acct.Address.Hex(), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.authorized {
		if a.Address == acct.Address {
			return acct.Address.Hex(), nil
		}
	}
	p.authorized = append(p.authorized, acct)
	p.logger.Info("account authorized", "address", acct.Address.Hex())
	return acct.Address.Hex(), nil
}

func addresses(accts []accounts.Account) []string {
	out := make([]string, len(accts))
	for i, a := range accts {
		out[i] = a.Address.Hex()
	}
	return out
}

// KeyProvider signs with a single raw private key. Its account is always
// authorized.
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewKeyProvider parses a hex-encoded secp256k1 private key, with or
// without a 0x prefix.
func NewKeyProvider(hexKey string, chainID *big.Int) (*KeyProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &KeyProvider{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

func (p *KeyProvider) ReadAccounts(ctx context.Context) ([]string, error) {
	return []string{p.address.Hex()}, nil
}

func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return []string{p.address.Hex()}, nil
}

func (p *KeyProvider) SigningHandle(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(p.key, p.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
