package clients

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/ll-withdrawer/ethereum"
	"github.com/lightlink-network/ll-withdrawer/lightlink"
	"github.com/lightlink-network/ll-withdrawer/types"
	"github.com/lightlink-network/ll-withdrawer/wallet"
)

// PublicClientL1 reads L1 and the OP-stack contracts deployed there.
type PublicClientL1 interface {
	WaitForTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error)
	Balance(ctx context.Context, address common.Address) (*big.Int, error)
	BuildInitiateWithdrawal(ctx context.Context, params ethereum.InitiateWithdrawalParams) (*types.WithdrawArgs, error)
	WaitToProve(ctx context.Context, receipt *types.Receipt) (*types.Output, *types.WithdrawalDescriptor, error)
	WaitToFinalize(ctx context.Context, withdrawalHash string) error
	IsWithdrawalProven(ctx context.Context, withdrawalHash string) (bool, error)
	IsWithdrawalFinalized(ctx context.Context, withdrawalHash string) (bool, error)
}

// PublicClientL2 reads LightLink.
type PublicClientL2 interface {
	WaitForTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error)
	Balance(ctx context.Context, address common.Address) (*big.Int, error)
	BuildDepositTransaction(ctx context.Context, params lightlink.DepositParams) (*types.DepositArgs, error)
	BuildProveWithdrawal(ctx context.Context, output *types.Output, withdrawal *types.WithdrawalDescriptor) (*types.ProveArgs, error)
}

type WalletClientL1 interface {
	DepositTransaction(ctx context.Context, args *types.DepositArgs) (string, error)
	ProveWithdrawal(ctx context.Context, args *types.ProveArgs) (string, error)
	FinalizeWithdrawal(ctx context.Context, withdrawal *types.WithdrawalDescriptor) (string, error)
}

type WalletClientL2 interface {
	InitiateWithdrawal(ctx context.Context, args *types.WithdrawArgs) (string, error)
}

// Clients are the four chain handles built from one wallet provider.
type Clients struct {
	PublicL1 PublicClientL1
	PublicL2 PublicClientL2
	WalletL1 WalletClientL1
	WalletL2 WalletClientL2
	Wallet   wallet.Provider
	L1       ChainConfig
	L2       ChainConfig
}

// ChainConfig describes one of the two chains.
type ChainConfig struct {
	ID          *big.Int
	Name        string
	RPCURL      string
	ExplorerURL string
	Contracts   Contracts
}

// Contracts are the OP-stack addresses the clients use. L1 holds the portal
// and oracle, L2 the message passer.
type Contracts struct {
	OptimismPortal      common.Address
	L2OutputOracle      common.Address
	L1StandardBridge    common.Address
	L2StandardBridge    common.Address
	L2ToL1MessagePasser common.Address
}

// DefaultL2ToL1MessagePasser is the predeploy address on every OP-stack L2.
var DefaultL2ToL1MessagePasser = common.HexToAddress("0x4200000000000000000000000000000000000016")

// Provider owns the current set of Clients. It builds them when a wallet
// provider is set and rebuilds them when that provider is replaced.
type Provider struct {
	l1, l2       ChainConfig
	pollInterval time.Duration
	logger       *slog.Logger

	mu      sync.RWMutex
	wallet  wallet.Provider
	clients *Clients
}

type ProviderOpts struct {
	L1           ChainConfig
	L2           ChainConfig
	PollInterval time.Duration
	Logger       *slog.Logger
}

func NewProvider(opts ProviderOpts) *Provider {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.L2.Contracts.L2ToL1MessagePasser == (common.Address{}) {
		opts.L2.Contracts.L2ToL1MessagePasser = DefaultL2ToL1MessagePasser
	}
	return &Provider{
		l1:           opts.L1,
		l2:           opts.L2,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
}

func (p *Provider) L1() ChainConfig { return p.l1 }
func (p *Provider) L2() ChainConfig { return p.l2 }

// ChainIDs lists both chains, L2 first since withdrawals start there.
func (p *Provider) ChainIDs() []*big.Int {
	return []*big.Int{p.l2.ID, p.l1.ID}
}

// SetWalletProvider replaces the wallet provider. Clients are rebuilt only
// when the reference changes, and cleared when it is nil.
func (p *Provider) SetWalletProvider(w wallet.Provider) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w == p.wallet {
		return nil
	}
	if w == nil {
		p.logger.Info("wallet provider removed, clearing clients")
		p.wallet, p.clients = nil, nil
		return nil
	}

	clients, err := p.build(w)
	if err != nil {
		return err
	}

	p.logger.Info("clients created", "l1", p.l1.Name, "l2", p.l2.Name)
	p.wallet, p.clients = w, clients
	return nil
}

// Clients returns the current handles. ok is false while no wallet provider
// is set, which is not an error.
func (p *Provider) Clients() (*Clients, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.clients, p.clients != nil
}

func (p *Provider) build(w wallet.Provider) (*Clients, error) {
	l1, err := ethereum.NewClient(ethereum.ClientOpts{
		Endpoint:                   p.l1.RPCURL,
		ChainID:                    p.l1.ID,
		OptimismPortalAddress:      p.l1.Contracts.OptimismPortal,
		L2OutputOracleAddress:      p.l1.Contracts.L2OutputOracle,
		L2ToL1MessagePasserAddress: p.l2.Contracts.L2ToL1MessagePasser,
		Logger:                     p.logger.With("chain", p.l1.Name),
		PollInterval:               p.pollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", p.l1.Name, err)
	}

	l2, err := lightlink.NewClient(lightlink.ClientOpts{
		Endpoint:                   p.l2.RPCURL,
		ChainID:                    p.l2.ID,
		L2ToL1MessagePasserAddress: p.l2.Contracts.L2ToL1MessagePasser,
		Logger:                     p.logger.With("chain", p.l2.Name),
		PollInterval:               p.pollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", p.l2.Name, err)
	}

	return &Clients{
		PublicL1: l1,
		PublicL2: l2,
		WalletL1: ethereum.NewWalletClient(l1, w),
		WalletL2: lightlink.NewWalletClient(l2, w),
		Wallet:   w,
		L1:       p.l1,
		L2:       p.l2,
	}, nil
}
