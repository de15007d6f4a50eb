package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ReceiptFromGeth keeps the fields of a geth receipt that are persisted.
func ReceiptFromGeth(r *gethtypes.Receipt) *Receipt {
	if r == nil {
		return nil
	}

	receipt := &Receipt{
		TxHash:    r.TxHash.Hex(),
		BlockHash: r.BlockHash.Hex(),
		Status:    r.Status,
		GasUsed:   r.GasUsed,
	}
	if r.BlockNumber != nil {
		receipt.BlockNumber = r.BlockNumber.Uint64()
	}

	for _, log := range r.Logs {
		topics := make([]string, len(log.Topics))
		for i, topic := range log.Topics {
			topics[i] = topic.Hex()
		}
		receipt.Logs = append(receipt.Logs, Log{
			Address: log.Address.Hex(),
			Topics:  topics,
			Data:    hexutil.Encode(log.Data),
		})
	}

	return receipt
}
