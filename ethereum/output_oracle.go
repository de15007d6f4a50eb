package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/ll-withdrawer/contracts"
	"github.com/lightlink-network/ll-withdrawer/types"
	"github.com/lightlink-network/ll-withdrawer/utils"
)

// WaitToProve blocks until the L2OutputOracle has published an output at or
// after the block the withdrawal was mined in, then returns that output and
// the withdrawal decoded from the receipt.
func (c *Client) WaitToProve(ctx context.Context, receipt *types.Receipt) (*types.Output, *types.WithdrawalDescriptor, error) {
	withdrawal, err := contracts.ParseMessagePassed(receipt, c.Opts.L2ToL1MessagePasserAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode withdrawal: %w", err)
	}

	l2BlockNumber := new(big.Int).SetUint64(receipt.BlockNumber)
	c.logger.Info("waiting for output root", "l2_block", receipt.BlockNumber, "withdrawal_hash", withdrawal.WithdrawalHash)

	err = utils.Poll(ctx, c.Opts.PollInterval, func(ctx context.Context) (bool, error) {
		latest, err := utils.Retry(ctx, utils.DefaultRetries, utils.DefaultRetryDelay, func(ctx context.Context) (*big.Int, error) {
			return c.l2OutputOracle.LatestBlockNumber(&bind.CallOpts{Context: ctx})
		})
		if err != nil {
			return false, fmt.Errorf("failed to get latest output block: %w", err)
		}

		c.logger.Debug("latest output", "l2_block", latest, "needed", l2BlockNumber)
		return latest.Cmp(l2BlockNumber) >= 0, nil
	})
	if err != nil {
		return nil, nil, err
	}

	output, err := c.outputAfter(ctx, l2BlockNumber)
	if err != nil {
		return nil, nil, err
	}

	return output, withdrawal, nil
}

func (c *Client) outputAfter(ctx context.Context, l2BlockNumber *big.Int) (*types.Output, error) {
	opts := &bind.CallOpts{Context: ctx}

	index, err := c.l2OutputOracle.GetL2OutputIndexAfter(opts, l2BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get l2OutputIndex: %w", err)
	}

	proposal, err := c.l2OutputOracle.GetL2Output(opts, index)
	if err != nil {
		return nil, fmt.Errorf("failed to get l2Output %s: %w", index, err)
	}

	return &types.Output{
		OutputIndex:   index.String(),
		OutputRoot:    common.Hash(proposal.OutputRoot).Hex(),
		Timestamp:     proposal.Timestamp.Uint64(),
		L2BlockNumber: proposal.L2BlockNumber.Uint64(),
	}, nil
}
