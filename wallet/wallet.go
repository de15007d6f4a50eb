package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrChainMismatch = errors.New("active chain does not match target chain")
	ErrUnknownChain  = errors.New("chain is not configured in wallet")
)

// Provider is the wallet capability the bridge clients are built from. It
// owns the signing key and the notion of an active chain, writes are only
// signed for the active chain.
type Provider interface {
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	ActiveChainID() *big.Int
	SwitchActiveChain(ctx context.Context, chainID *big.Int) error
	Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}

// KeyProvider signs with a single in-memory private key.
type KeyProvider struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chains  []*big.Int
	logger  *slog.Logger

	mu     sync.Mutex
	active *big.Int
}

type KeyProviderOpts struct {
	// PrivateKey is hex encoded, with or without 0x.
	PrivateKey string
	// Chains the wallet may switch between. The first one starts active.
	Chains []*big.Int
	Logger *slog.Logger
}

var _ Provider = &KeyProvider{}

func NewKeyProvider(opts KeyProviderOpts) (*KeyProvider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return newKeyProvider(key, opts.Chains, opts.Logger)
}

// NewKeystoreProvider decrypts a geth keystore file.
func NewKeystoreProvider(path, password string, chains []*big.Int, logger *slog.Logger) (*KeyProvider, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}
	key, err := keystore.DecryptKey(raw, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore: %w", err)
	}
	return newKeyProvider(key.PrivateKey, chains, logger)
}

func newKeyProvider(key *ecdsa.PrivateKey, chains []*big.Int, logger *slog.Logger) (*KeyProvider, error) {
	if len(chains) == 0 {
		return nil, errors.New("wallet needs at least one chain")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyProvider{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chains:  chains,
		logger:  logger,
		active:  chains[0],
	}, nil
}

func (p *KeyProvider) RequestAccounts(context.Context) ([]common.Address, error) {
	return []common.Address{p.address}, nil
}

func (p *KeyProvider) ActiveChainID() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.active)
}

func (p *KeyProvider) SwitchActiveChain(_ context.Context, chainID *big.Int) error {
	known := false
	for _, c := range p.chains {
		if c.Cmp(chainID) == 0 {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownChain, chainID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active.Cmp(chainID) != 0 {
		p.logger.Info("switching active chain", "from", p.active, "to", chainID)
		p.active = new(big.Int).Set(chainID)
	}
	return nil
}

func (p *KeyProvider) Transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if active := p.ActiveChainID(); active.Cmp(chainID) != 0 {
		return nil, fmt.Errorf("%w: active %s, target %s", ErrChainMismatch, active, chainID)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(p.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
