package ethereum

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

	"github.com/lightlink-network/ll-withdrawer/contracts"
	"github.com/lightlink-network/ll-withdrawer/types"
	"github.com/lightlink-network/ll-withdrawer/utils"
)

// Backend is the part of an L1 RPC client used here. *ethclient.Client implements it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Client is the read-only L1 client.
type Client struct {
	backend        Backend
	optimismPortal *contracts.OptimismPortal
	l2OutputOracle *contracts.L2OutputOracle
	logger         *slog.Logger
	Opts           *ClientOpts
}

type ClientOpts struct {
	Endpoint                   string
	ChainID                    *big.Int
	OptimismPortalAddress      common.Address
	L2OutputOracleAddress      common.Address
	L2ToL1MessagePasserAddress common.Address
	Logger                     *slog.Logger
	PollInterval               time.Duration
}

const defaultPollInterval = 12 * time.Second

// NewClient returns a new L1 client over HTTP. Dialing an HTTP endpoint makes
// no requests, the first chain call happens on use.
func NewClient(opts ClientOpts) (*Client, error) {
	client, err := ethclient.Dial(opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum: %w", err)
	}
	return NewClientWithBackend(client, opts), nil
}

func NewClientWithBackend(backend Backend, opts ClientOpts) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = defaultPollInterval
	}

	return &Client{
		backend:        backend,
		optimismPortal: contracts.NewOptimismPortal(opts.OptimismPortalAddress, backend),
		l2OutputOracle: contracts.NewL2OutputOracle(opts.L2OutputOracleAddress, backend),
		logger:         opts.Logger,
		Opts:           &opts,
	}
}

func (c *Client) Backend() Backend {
	return c.backend
}

// CheckContracts warns if the configured contracts have no code.
func (c *Client) CheckContracts(ctx context.Context) {
	for name, address := range map[string]common.Address{
		"OptimismPortal": c.Opts.OptimismPortalAddress,
		"L2OutputOracle": c.Opts.L2OutputOracleAddress,
	} {
		if ok, _ := utils.IsContract(ctx, c.backend, address); !ok {
			c.logger.Warn("contract not found for "+name+" at given Address", "address", address.Hex(), "endpoint", c.Opts.Endpoint)
		}
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

// InitiateWithdrawalParams describes an ETH withdrawal to be initiated on L2.
type InitiateWithdrawalParams struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// BuildInitiateWithdrawal estimates the L1 gas the withdrawal needs once it is
// relayed, which becomes the gas limit of the L2 initiateWithdrawal call.
func (c *Client) BuildInitiateWithdrawal(ctx context.Context, params InitiateWithdrawalParams) (*types.WithdrawArgs, error) {
	gas, err := utils.Retry(ctx, utils.DefaultRetries, utils.DefaultRetryDelay, func(ctx context.Context) (uint64, error) {
		return c.backend.EstimateGas(ctx, ethereumCallMsg(params.From, params.To, params.Value, params.Data))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate withdrawal gas: %w", err)
	}

	return &types.WithdrawArgs{
		To:       params.To.Hex(),
		Value:    params.Value.String(),
		GasLimit: gas,
		Data:     encodeData(params.Data),
	}, nil
}
