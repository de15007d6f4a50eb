package wallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var (
	l1ChainID = big.NewInt(11155111)
	l2ChainID = big.NewInt(1891)
)

func TestKeyProviderSwitchAndSign(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	p, err := NewKeyProvider(KeyProviderOpts{
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
		Chains:     []*big.Int{l2ChainID, l1ChainID},
	})
	require.NoError(t, err)

	accounts, err := p.RequestAccounts(ctx)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), accounts[0])
	require.Equal(t, 0, p.ActiveChainID().Cmp(l2ChainID))

	_, err = p.Transactor(ctx, l1ChainID)
	require.ErrorIs(t, err, ErrChainMismatch)

	require.NoError(t, p.SwitchActiveChain(ctx, l1ChainID))
	opts, err := p.Transactor(ctx, l1ChainID)
	require.NoError(t, err)
	require.Equal(t, accounts[0], opts.From)

	require.ErrorIs(t, p.SwitchActiveChain(ctx, big.NewInt(1)), ErrUnknownChain)
	require.Equal(t, 0, p.ActiveChainID().Cmp(l1ChainID))
}

func TestKeyProviderRejectsBadInput(t *testing.T) {
	_, err := NewKeyProvider(KeyProviderOpts{PrivateKey: "nope", Chains: []*big.Int{l1ChainID}})
	require.Error(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	_, err = NewKeyProvider(KeyProviderOpts{PrivateKey: hexutil.Encode(crypto.FromECDSA(key))})
	require.Error(t, err)
}

func TestKeystoreProvider(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	ks := keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)
	account, err := ks.ImportECDSA(key, "secret")
	require.NoError(t, err)

	p, err := NewKeystoreProvider(account.URL.Path, "secret", []*big.Int{l1ChainID}, nil)
	require.NoError(t, err)
	accounts, err := p.RequestAccounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, account.Address, accounts[0])

	_, err = NewKeystoreProvider(account.URL.Path, "wrong", []*big.Int{l1ChainID}, nil)
	require.Error(t, err)
}
