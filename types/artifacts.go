package types

import (
	"fmt"
	"math/big"
)

// Artifacts are stored with the same conventions as the rest of the
// database: hashes, addresses and byte strings as 0x-prefixed hex,
// integers that may exceed 64 bits as base 10 strings.

// Log is the subset of an event log needed to decode withdrawal events.
type Log struct {
	Address string   `json:"address" bson:"address"`
	Topics  []string `json:"topics" bson:"topics"`
	Data    string   `json:"data" bson:"data"`
}

// Receipt is a mined transaction receipt.
type Receipt struct {
	TxHash      string `json:"tx_hash" bson:"tx_hash"`
	BlockNumber uint64 `json:"block_number" bson:"block_number"`
	BlockHash   string `json:"block_hash" bson:"block_hash"`
	Status      uint64 `json:"status" bson:"status"`
	GasUsed     uint64 `json:"gas_used" bson:"gas_used"`
	Logs        []Log  `json:"logs,omitempty" bson:"logs,omitempty"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == 1
}

// Output is an L2 output root published on L1 that covers a withdrawal.
type Output struct {
	OutputIndex   string `json:"output_index" bson:"output_index"`
	OutputRoot    string `json:"output_root" bson:"output_root"`
	Timestamp     uint64 `json:"timestamp" bson:"timestamp"`
	L2BlockNumber uint64 `json:"l2_block_number" bson:"l2_block_number"`
}

// WithdrawalDescriptor is the withdrawal transaction recorded by the
// L2ToL1MessagePasser, as needed to prove and finalize it on L1.
type WithdrawalDescriptor struct {
	Nonce          string `json:"nonce" bson:"nonce"`
	Sender         string `json:"sender" bson:"sender"`
	Target         string `json:"target" bson:"target"`
	Value          string `json:"value" bson:"value"`
	GasLimit       string `json:"gas_limit" bson:"gas_limit"`
	Data           string `json:"data" bson:"data"`
	WithdrawalHash string `json:"withdrawal_hash" bson:"withdrawal_hash"`
}

// WithdrawArgs are the parameters of an initiateWithdrawal call on L2.
type WithdrawArgs struct {
	To       string `json:"to" bson:"to"`
	Value    string `json:"value" bson:"value"`
	GasLimit uint64 `json:"gas_limit" bson:"gas_limit"`
	Data     string `json:"data" bson:"data"`
}

// DepositArgs are the parameters of a depositTransaction call on L1.
type DepositArgs struct {
	To         string `json:"to" bson:"to"`
	Value      string `json:"value" bson:"value"`
	GasLimit   uint64 `json:"gas_limit" bson:"gas_limit"`
	IsCreation bool   `json:"is_creation" bson:"is_creation"`
	Data       string `json:"data" bson:"data"`
}

type OutputRootProof struct {
	Version                  string `json:"version" bson:"version"`
	StateRoot                string `json:"state_root" bson:"state_root"`
	MessagePasserStorageRoot string `json:"message_passer_storage_root" bson:"message_passer_storage_root"`
	LatestBlockhash          string `json:"latest_blockhash" bson:"latest_blockhash"`
}

// ProveArgs are the parameters of a proveWithdrawalTransaction call on L1.
type ProveArgs struct {
	Withdrawal      WithdrawalDescriptor `json:"withdrawal" bson:"withdrawal"`
	L2OutputIndex   string               `json:"l2_output_index" bson:"l2_output_index"`
	OutputRootProof OutputRootProof      `json:"output_root_proof" bson:"output_root_proof"`
	WithdrawalProof []string             `json:"withdrawal_proof" bson:"withdrawal_proof"`
}

// ParseBig parses a base 10 integer field.
func ParseBig(field, s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q", field, s)
	}
	return n, nil
}
