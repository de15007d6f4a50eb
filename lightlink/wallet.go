package lightlink

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/lightlink-network/ll-withdrawer/contracts"
	"github.com/lightlink-network/ll-withdrawer/types"
	"github.com/lightlink-network/ll-withdrawer/wallet"
)

// WalletClient submits L2ToL1MessagePasser transactions on LightLink.
type WalletClient struct {
	client        *Client
	provider      wallet.Provider
	messagePasser *contracts.L2ToL1MessagePasser
	logger        *slog.Logger
}

func NewWalletClient(client *Client, provider wallet.Provider) *WalletClient {
	return &WalletClient{
		client:        client,
		provider:      provider,
		messagePasser: contracts.NewL2ToL1MessagePasser(client.Opts.L2ToL1MessagePasserAddress, client.backend),
		logger:        client.logger.With("wallet", "l2"),
	}
}

func (w *WalletClient) InitiateWithdrawal(ctx context.Context, args *types.WithdrawArgs) (string, error) {
	value, err := types.ParseBig("value", args.Value)
	if err != nil {
		return "", err
	}
	data, err := hexutil.Decode(args.Data)
	if err != nil {
		return "", fmt.Errorf("invalid withdrawal data: %w", err)
	}

	opts, err := w.provider.Transactor(ctx, w.client.Opts.ChainID)
	if err != nil {
		return "", err
	}
	opts.Value = value

	tx, err := w.messagePasser.InitiateWithdrawal(opts, common.HexToAddress(args.To), new(big.Int).SetUint64(args.GasLimit), data)
	if err != nil {
		return "", fmt.Errorf("failed to submit initiate withdrawal: %w", err)
	}

	w.logger.Info("initiate withdrawal submitted", "tx_hash", tx.Hash().Hex(), "to", args.To, "value", args.Value)
	return tx.Hash().Hex(), nil
}
