package lightlink

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/lightlink-network/ll-withdrawer/types"
	"github.com/lightlink-network/ll-withdrawer/utils"
)

// Backend is the part of an L2 RPC client used here. *ethclient.Client implements it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Prover serves eth_getProof. *gethclient.Client implements it.
type Prover interface {
	GetProof(ctx context.Context, account common.Address, keys []string, blockNumber *big.Int) (*gethclient.AccountResult, error)
}

// Client is the read-only LightLink (L2) client.
type Client struct {
	backend Backend
	prover  Prover
	logger  *slog.Logger
	Opts    *ClientOpts
}

type ClientOpts struct {
	Endpoint                   string
	ChainID                    *big.Int
	L2ToL1MessagePasserAddress common.Address
	Logger                     *slog.Logger
	PollInterval               time.Duration
}

const defaultPollInterval = 2 * time.Second

// NewClient returns a new LightLink client over HTTP. No request is made
// until the client is used.
func NewClient(opts ClientOpts) (*Client, error) {
	rpcClient, err := rpc.DialContext(context.Background(), opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LightLink: %w", err)
	}
	return NewClientWithBackend(ethclient.NewClient(rpcClient), gethclient.New(rpcClient), opts), nil
}

func NewClientWithBackend(backend Backend, prover Prover, opts ClientOpts) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = defaultPollInterval
	}

	return &Client{
		backend: backend,
		prover:  prover,
		logger:  opts.Logger,
		Opts:    &opts,
	}
}

func (c *Client) Backend() Backend {
	return c.backend
}

// CheckContracts warns if the message passer has no code.
func (c *Client) CheckContracts(ctx context.Context) {
	if ok, _ := utils.IsContract(ctx, c.backend, c.Opts.L2ToL1MessagePasserAddress); !ok {
		c.logger.Warn("contract not found for L2ToL1MessagePasser at given Address", "address", c.Opts.L2ToL1MessagePasserAddress.Hex(), "endpoint", c.Opts.Endpoint)
	}
}

func (c *Client) WaitForTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	receipt, err := utils.WaitForReceipt(ctx, c.backend, common.HexToHash(txHash), c.Opts.PollInterval)
	if err != nil {
		return nil, err
	}
	return types.ReceiptFromGeth(receipt), nil
}

func (c *Client) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	return utils.Retry(ctx, utils.DefaultRetries, utils.DefaultRetryDelay, func(ctx context.Context) (*big.Int, error) {
		return c.backend.BalanceAt(ctx, address, nil)
	})
}
