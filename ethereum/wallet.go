package ethereum

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/lightlink-network/ll-withdrawer/contracts"
	"github.com/lightlink-network/ll-withdrawer/types"
	"github.com/lightlink-network/ll-withdrawer/wallet"
)

// WalletClient submits OptimismPortal transactions on L1, signed by the
// wallet provider. Every write fails with wallet.ErrChainMismatch unless L1
// is the provider's active chain.
type WalletClient struct {
	client   *Client
	provider wallet.Provider
	portal   *contracts.OptimismPortal
	logger   *slog.Logger
}

func NewWalletClient(client *Client, provider wallet.Provider) *WalletClient {
	return &WalletClient{
		client:   client,
		provider: provider,
		portal:   contracts.NewOptimismPortal(client.Opts.OptimismPortalAddress, client.backend),
		logger:   client.logger.With("wallet", "l1"),
	}
}

func (w *WalletClient) DepositTransaction(ctx context.Context, args *types.DepositArgs) (string, error) {
	value, err := types.ParseBig("value", args.Value)
	if err != nil {
		return "", err
	}
	data, err := hexutil.Decode(args.Data)
	if err != nil {
		return "", fmt.Errorf("invalid deposit data: %w", err)
	}

	opts, err := w.provider.Transactor(ctx, w.client.Opts.ChainID)
	if err != nil {
		return "", err
	}
	opts.Value = value

	tx, err := w.portal.DepositTransaction(opts, common.HexToAddress(args.To), value, args.GasLimit, args.IsCreation, data)
	if err != nil {
		return "", fmt.Errorf("failed to submit deposit: %w", err)
	}

	w.logger.Info("deposit submitted", "tx_hash", tx.Hash().Hex(), "to", args.To, "value", args.Value)
	return tx.Hash().Hex(), nil
}

func (w *WalletClient) ProveWithdrawal(ctx context.Context, args *types.ProveArgs) (string, error) {
	withdrawal, err := contracts.WithdrawalFromDescriptor(&args.Withdrawal)
	if err != nil {
		return "", err
	}
	index, err := types.ParseBig("l2 output index", args.L2OutputIndex)
	if err != nil {
		return "", err
	}
	proof := make([][]byte, len(args.WithdrawalProof))
	for i, node := range args.WithdrawalProof {
		if proof[i], err = hexutil.Decode(node); err != nil {
			return "", fmt.Errorf("invalid withdrawal proof node %d: %w", i, err)
		}
	}

	opts, err := w.provider.Transactor(ctx, w.client.Opts.ChainID)
	if err != nil {
		return "", err
	}

	tx, err := w.portal.ProveWithdrawalTransaction(opts, withdrawal, index, contracts.OutputRootProofFromArgs(args.OutputRootProof), proof)
	if err != nil {
		return "", fmt.Errorf("failed to submit prove withdrawal: %w", err)
	}

	w.logger.Info("prove withdrawal submitted", "tx_hash", tx.Hash().Hex(), "withdrawal_hash", args.Withdrawal.WithdrawalHash)
	return tx.Hash().Hex(), nil
}

func (w *WalletClient) FinalizeWithdrawal(ctx context.Context, descriptor *types.WithdrawalDescriptor) (string, error) {
	withdrawal, err := contracts.WithdrawalFromDescriptor(descriptor)
	if err != nil {
		return "", err
	}

	opts, err := w.provider.Transactor(ctx, w.client.Opts.ChainID)
	if err != nil {
		return "", err
	}

	tx, err := w.portal.FinalizeWithdrawalTransaction(opts, withdrawal)
	if err != nil {
		return "", fmt.Errorf("failed to submit finalize withdrawal: %w", err)
	}

	w.logger.Info("finalize withdrawal submitted", "tx_hash", tx.Hash().Hex(), "withdrawal_hash", descriptor.WithdrawalHash)
	return tx.Hash().Hex(), nil
}
