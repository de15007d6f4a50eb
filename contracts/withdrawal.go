package contracts

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lightlink-network/ll-withdrawer/types"
)

var (
	MessagePassedEventABI     = "MessagePassed(uint256,address,address,uint256,uint256,bytes,bytes32)"
	MessagePassedEventABIHash = crypto.Keccak256Hash([]byte(MessagePassedEventABI))

	ErrNoMessagePassed = errors.New("no MessagePassed event in receipt")
)

var (
	uint256Type = mustType("uint256")
	addressType = mustType("address")
	bytesType   = mustType("bytes")
	bytes32Type = mustType("bytes32")

	withdrawalArguments = abi.Arguments{
		{Type: uint256Type}, // nonce
		{Type: addressType}, // sender
		{Type: addressType}, // target
		{Type: uint256Type}, // value
		{Type: uint256Type}, // gasLimit
		{Type: bytesType},   // data
	}
	storageSlotArguments = abi.Arguments{{Type: bytes32Type}, {Type: uint256Type}}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// WithdrawalTransaction mirrors Types.WithdrawalTransaction. Field names
// match the ABI tuple components so it can be packed directly.
type WithdrawalTransaction struct {
	Nonce    *big.Int
	Sender   common.Address
	Target   common.Address
	Value    *big.Int
	GasLimit *big.Int
	Data     []byte
}

// Hash computes the withdrawal hash, keccak256(abi.encode(tx)).
func (w WithdrawalTransaction) Hash() (common.Hash, error) {
	encoded, err := withdrawalArguments.Pack(w.Nonce, w.Sender, w.Target, w.Value, w.GasLimit, w.Data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode withdrawal: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}

// StorageSlot is the slot of sentMessages[withdrawalHash] in the L2ToL1MessagePasser.
func StorageSlot(withdrawalHash common.Hash) common.Hash {
	encoded, err := storageSlotArguments.Pack(withdrawalHash, common.Big0)
	if err != nil {
		// both arguments are fixed size, packing cannot fail
		panic(err)
	}
	return crypto.Keccak256Hash(encoded)
}

func (w WithdrawalTransaction) Descriptor(withdrawalHash common.Hash) *types.WithdrawalDescriptor {
	return &types.WithdrawalDescriptor{
		Nonce:          w.Nonce.String(),
		Sender:         w.Sender.Hex(),
		Target:         w.Target.Hex(),
		Value:          w.Value.String(),
		GasLimit:       w.GasLimit.String(),
		Data:           hexutil.Encode(w.Data),
		WithdrawalHash: withdrawalHash.Hex(),
	}
}

func WithdrawalFromDescriptor(d *types.WithdrawalDescriptor) (WithdrawalTransaction, error) {
	if d == nil {
		return WithdrawalTransaction{}, errors.New("withdrawal descriptor is missing")
	}
	nonce, err := types.ParseBig("nonce", d.Nonce)
	if err != nil {
		return WithdrawalTransaction{}, err
	}
	value, err := types.ParseBig("value", d.Value)
	if err != nil {
		return WithdrawalTransaction{}, err
	}
	gasLimit, err := types.ParseBig("gas limit", d.GasLimit)
	if err != nil {
		return WithdrawalTransaction{}, err
	}
	data, err := hexutil.Decode(d.Data)
	if err != nil {
		return WithdrawalTransaction{}, fmt.Errorf("invalid withdrawal data: %w", err)
	}
	return WithdrawalTransaction{
		Nonce:    nonce,
		Sender:   common.HexToAddress(d.Sender),
		Target:   common.HexToAddress(d.Target),
		Value:    value,
		GasLimit: gasLimit,
		Data:     data,
	}, nil
}

// ParseMessagePassed finds the MessagePassed event emitted by messagePasser in
// the receipt and returns the withdrawal it describes.
func ParseMessagePassed(receipt *types.Receipt, messagePasser common.Address) (*types.WithdrawalDescriptor, error) {
	if receipt == nil {
		return nil, errors.New("receipt is missing")
	}

	for _, log := range receipt.Logs {
		if common.HexToAddress(log.Address) != messagePasser {
			continue
		}
		if len(log.Topics) != 4 || common.HexToHash(log.Topics[0]) != MessagePassedEventABIHash {
			continue
		}

		data, err := hexutil.Decode(log.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid MessagePassed data: %w", err)
		}
		values, err := l2ToL1MessagePasserABI.Unpack("MessagePassed", data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack MessagePassed: %w", err)
		}
		if len(values) != 4 {
			return nil, fmt.Errorf("unexpected MessagePassed fields: %d", len(values))
		}

		w := WithdrawalTransaction{
			Nonce:    common.HexToHash(log.Topics[1]).Big(),
			Sender:   common.BytesToAddress(common.HexToHash(log.Topics[2]).Bytes()),
			Target:   common.BytesToAddress(common.HexToHash(log.Topics[3]).Bytes()),
			Value:    values[0].(*big.Int),
			GasLimit: values[1].(*big.Int),
			Data:     values[2].([]byte),
		}
		emitted := common.Hash(values[3].([32]byte))

		computed, err := w.Hash()
		if err != nil {
			return nil, err
		}
		if computed != emitted {
			return nil, fmt.Errorf("withdrawal hash mismatch: event %s, computed %s", emitted.Hex(), computed.Hex())
		}

		return w.Descriptor(computed), nil
	}

	return nil, ErrNoMessagePassed
}

// ComputeOutputRoot hashes an output root proof the way the L2OutputOracle
// commits to it: keccak256(version ++ stateRoot ++ messagePasserStorageRoot ++ latestBlockhash).
func ComputeOutputRoot(proof OutputRootProof) common.Hash {
	return crypto.Keccak256Hash(proof.Version[:], proof.StateRoot[:], proof.MessagePasserStorageRoot[:], proof.LatestBlockhash[:])
}

func OutputRootProofFromArgs(p types.OutputRootProof) OutputRootProof {
	return OutputRootProof{
		Version:                  common.HexToHash(p.Version),
		StateRoot:                common.HexToHash(p.StateRoot),
		MessagePasserStorageRoot: common.HexToHash(p.MessagePasserStorageRoot),
		LatestBlockhash:          common.HexToHash(p.LatestBlockhash),
	}
}
