package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/ll-withdrawer/utils"
)

// WaitToFinalize blocks until the proven withdrawal has passed the
// finalization period of the L2OutputOracle. A withdrawal that is already
// finalized returns immediately.
func (c *Client) WaitToFinalize(ctx context.Context, withdrawalHash string) error {
	hash := common.HexToHash(withdrawalHash)

	period, err := utils.Retry(ctx, utils.DefaultRetries, utils.DefaultRetryDelay, func(ctx context.Context) (*big.Int, error) {
		return c.l2OutputOracle.FinalizationPeriodSeconds(&bind.CallOpts{Context: ctx})
	})
	if err != nil {
		return fmt.Errorf("failed to get finalization period: %w", err)
	}

	c.logger.Info("waiting for finalization period", "withdrawal_hash", withdrawalHash, "period_seconds", period)

	return utils.Poll(ctx, c.Opts.PollInterval, func(ctx context.Context) (bool, error) {
		return c.finalizable(ctx, hash, period.Uint64())
	})
}

func (c *Client) finalizable(ctx context.Context, hash common.Hash, period uint64) (bool, error) {
	opts := &bind.CallOpts{Context: ctx}

	finalized, err := c.optimismPortal.FinalizedWithdrawals(opts, hash)
	if err != nil {
		return false, fmt.Errorf("failed to get finalized withdrawal: %w", err)
	}
	if finalized {
		return true, nil
	}

	proven, err := c.optimismPortal.ProvenWithdrawals(opts, hash)
	if err != nil {
		return false, fmt.Errorf("failed to get proven withdrawal: %w", err)
	}
	if proven.Timestamp == nil || proven.Timestamp.Sign() == 0 {
		c.logger.Debug("withdrawal not proven yet", "withdrawal_hash", hash.Hex())
		return false, nil
	}

	header, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get latest header: %w", err)
	}

	readyAt := proven.Timestamp.Uint64() + period
	c.logger.Debug("checking finalization period", "withdrawal_hash", hash.Hex(), "now", header.Time, "ready_at", readyAt)
	return header.Time > readyAt, nil
}

// IsWithdrawalProven reports whether the portal holds a proof for the
// withdrawal.
func (c *Client) IsWithdrawalProven(ctx context.Context, withdrawalHash string) (bool, error) {
	hash := common.HexToHash(withdrawalHash)
	return utils.Retry(ctx, utils.DefaultRetries, utils.DefaultRetryDelay, func(ctx context.Context) (bool, error) {
		proven, err := c.optimismPortal.ProvenWithdrawals(&bind.CallOpts{Context: ctx}, hash)
		if err != nil {
			return false, fmt.Errorf("failed to get proven withdrawal: %w", err)
		}
		return proven.Timestamp != nil && proven.Timestamp.Sign() > 0, nil
	})
}

// IsWithdrawalFinalized reports whether the portal has already paid out the
// withdrawal.
func (c *Client) IsWithdrawalFinalized(ctx context.Context, withdrawalHash string) (bool, error) {
	hash := common.HexToHash(withdrawalHash)
	return utils.Retry(ctx, utils.DefaultRetries, utils.DefaultRetryDelay, func(ctx context.Context) (bool, error) {
		finalized, err := c.optimismPortal.FinalizedWithdrawals(&bind.CallOpts{Context: ctx}, hash)
		if err != nil {
			return false, fmt.Errorf("failed to get finalized withdrawal: %w", err)
		}
		return finalized, nil
	})
}
