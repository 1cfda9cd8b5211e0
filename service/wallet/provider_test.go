package wallet

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/waveportal/service/config"
)

func TestFromConfig_NoWallet(t *testing.T) {
	p, err := FromConfig(&config.Config{}, testChainID, nil, testLogger())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFromConfig_PrivateKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := hex.EncodeToString(crypto.FromECDSA(key))

	p, err := FromConfig(&config.Config{WalletPrivateKey: hexKey}, testChainID, nil, testLogger())
	require.NoError(t, err)
	require.NotNil(t, p)

	accts, err := p.ReadAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{crypto.PubkeyToAddress(key.PublicKey).Hex()}, accts)
}

func TestFromConfig_InvalidPrivateKey(t *testing.T) {
	p, err := FromConfig(&config.Config{WalletPrivateKey: "zz"}, testChainID, nil, testLogger())
	require.Error(t, err)
	assert.Nil(t, p)
}

func TestFromConfig_KeystoreWithPassphrase(t *testing.T) {
	dir, addr := newTestKeystore(t, "secret")

	p, err := FromConfig(&config.Config{KeystoreDir: dir, WalletPassphrase: "secret"}, testChainID, nil, testLogger())
	require.NoError(t, err)

	accts, err := p.ReadAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{addr.Hex()}, accts)
}

func TestFromConfig_KeystoreWrongPassphrase(t *testing.T) {
	dir, _ := newTestKeystore(t, "secret")

	p, err := FromConfig(&config.Config{KeystoreDir: dir, WalletPassphrase: "wrong"}, testChainID, nil, testLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, keystore.ErrDecrypt)
	assert.Nil(t, p)
}

func TestFromConfig_KeystoreWithoutPassphrase(t *testing.T) {
	dir, addr := newTestKeystore(t, "secret")
	prompt := func(ctx context.Context, account string) (string, error) {
		return "secret", nil
	}

	p, err := FromConfig(&config.Config{KeystoreDir: dir}, testChainID, prompt, testLogger())
	require.NoError(t, err)

	accts, err := p.ReadAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accts, "nothing is authorized until the user connects")

	accts, err = p.RequestAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{addr.Hex()}, accts)
}
