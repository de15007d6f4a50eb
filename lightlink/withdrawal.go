package lightlink

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"

	"github.com/lightlink-network/ll-withdrawer/contracts"
	"github.com/lightlink-network/ll-withdrawer/types"
	"github.com/lightlink-network/ll-withdrawer/utils"
)

var ErrOutputRootMismatch = errors.New("computed output root does not match the published output")

// DepositParams describes an ETH deposit that arrives on L2.
type DepositParams struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// BuildDepositTransaction estimates the L2 gas of the deposit, which becomes
// the gas limit passed to OptimismPortal.depositTransaction on L1.
func (c *Client) BuildDepositTransaction(ctx context.Context, params DepositParams) (*types.DepositArgs, error) {
	gas, err := utils.Retry(ctx, utils.DefaultRetries, utils.DefaultRetryDelay, func(ctx context.Context) (uint64, error) {
		return c.backend.EstimateGas(ctx, geth.CallMsg{
			From:  params.From,
			To:    &params.To,
			Value: params.Value,
			Data:  params.Data,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate deposit gas: %w", err)
	}

	data := "0x"
	if len(params.Data) > 0 {
		data = hexutil.Encode(params.Data)
	}

	return &types.DepositArgs{
		To:       params.To.Hex(),
		Value:    params.Value.String(),
		GasLimit: gas,
		Data:     data,
	}, nil
}

// BuildProveWithdrawal collects the storage proof of the withdrawal in the
// message passer at the output's L2 block, and the output root preimage.
func (c *Client) BuildProveWithdrawal(ctx context.Context, output *types.Output, withdrawal *types.WithdrawalDescriptor) (*types.ProveArgs, error) {
	if output == nil || withdrawal == nil {
		return nil, errors.New("output and withdrawal are required")
	}

	blockNumber := new(big.Int).SetUint64(output.L2BlockNumber)
	slot := contracts.StorageSlot(common.HexToHash(withdrawal.WithdrawalHash))

	proof, err := utils.Retry(ctx, utils.DefaultRetries, utils.DefaultRetryDelay, func(ctx context.Context) (*gethclient.AccountResult, error) {
		return c.prover.GetProof(ctx, c.Opts.L2ToL1MessagePasserAddress, []string{slot.Hex()}, blockNumber)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal proof: %w", err)
	}
	if len(proof.StorageProof) != 1 {
		return nil, fmt.Errorf("expected 1 storage proof, got %d", len(proof.StorageProof))
	}

	header, err := utils.Retry(ctx, utils.DefaultRetries, utils.DefaultRetryDelay, func(ctx context.Context) (*gethtypes.Header, error) {
		return c.backend.HeaderByNumber(ctx, blockNumber)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get l2 block %d: %w", output.L2BlockNumber, err)
	}

	rootProof := types.OutputRootProof{
		Version:                  common.Hash{}.Hex(),
		StateRoot:                header.Root.Hex(),
		MessagePasserStorageRoot: proof.StorageHash.Hex(),
		LatestBlockhash:          header.Hash().Hex(),
	}

	computed := contracts.ComputeOutputRoot(contracts.OutputRootProofFromArgs(rootProof))
	if computed != common.HexToHash(output.OutputRoot) {
		return nil, fmt.Errorf("%w: computed %s, output %s", ErrOutputRootMismatch, computed.Hex(), output.OutputRoot)
	}

	c.logger.Debug("built withdrawal proof", "withdrawal_hash", withdrawal.WithdrawalHash, "l2_block", output.L2BlockNumber, "nodes", len(proof.StorageProof[0].Proof))

	return &types.ProveArgs{
		Withdrawal:      *withdrawal,
		L2OutputIndex:   output.OutputIndex,
		OutputRootProof: rootProof,
		WithdrawalProof: proof.StorageProof[0].Proof,
	}, nil
}
