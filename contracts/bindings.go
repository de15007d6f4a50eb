package contracts

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// L2ToL1MessagePasser is bound to the L2 message passer predeploy.
type L2ToL1MessagePasser struct {
	contract *bind.BoundContract
	Address  common.Address
}

func NewL2ToL1MessagePasser(address common.Address, backend bind.ContractBackend) *L2ToL1MessagePasser {
	return &L2ToL1MessagePasser{
		contract: bind.NewBoundContract(address, l2ToL1MessagePasserABI, backend, backend, backend),
		Address:  address,
	}
}

func (m *L2ToL1MessagePasser) InitiateWithdrawal(opts *bind.TransactOpts, target common.Address, gasLimit *big.Int, data []byte) (*gethtypes.Transaction, error) {
	return m.contract.Transact(opts, "initiateWithdrawal", target, gasLimit, data)
}

// PackInitiateWithdrawal returns the calldata of initiateWithdrawal, used for gas estimation.
func PackInitiateWithdrawal(target common.Address, gasLimit *big.Int, data []byte) ([]byte, error) {
	return l2ToL1MessagePasserABI.Pack("initiateWithdrawal", target, gasLimit, data)
}

type OutputRootProof struct {
	Version                  [32]byte
	StateRoot                [32]byte
	MessagePasserStorageRoot [32]byte
	LatestBlockhash          [32]byte
}

type ProvenWithdrawal struct {
	OutputRoot    [32]byte
	Timestamp     *big.Int
	L2OutputIndex *big.Int
}

// OptimismPortal is bound to the L1 portal proxy.
type OptimismPortal struct {
	contract *bind.BoundContract
	Address  common.Address
}

func NewOptimismPortal(address common.Address, backend bind.ContractBackend) *OptimismPortal {
	return &OptimismPortal{
		contract: bind.NewBoundContract(address, optimismPortalABI, backend, backend, backend),
		Address:  address,
	}
}

func (p *OptimismPortal) DepositTransaction(opts *bind.TransactOpts, to common.Address, value *big.Int, gasLimit uint64, isCreation bool, data []byte) (*gethtypes.Transaction, error) {
	return p.contract.Transact(opts, "depositTransaction", to, value, gasLimit, isCreation, data)
}

func (p *OptimismPortal) ProveWithdrawalTransaction(opts *bind.TransactOpts, tx WithdrawalTransaction, l2OutputIndex *big.Int, proof OutputRootProof, withdrawalProof [][]byte) (*gethtypes.Transaction, error) {
	return p.contract.Transact(opts, "proveWithdrawalTransaction", tx, l2OutputIndex, proof, withdrawalProof)
}

func (p *OptimismPortal) FinalizeWithdrawalTransaction(opts *bind.TransactOpts, tx WithdrawalTransaction) (*gethtypes.Transaction, error) {
	return p.contract.Transact(opts, "finalizeWithdrawalTransaction", tx)
}

func (p *OptimismPortal) ProvenWithdrawals(opts *bind.CallOpts, withdrawalHash common.Hash) (ProvenWithdrawal, error) {
	var out []interface{}
	if err := p.contract.Call(opts, &out, "provenWithdrawals", withdrawalHash); err != nil {
		return ProvenWithdrawal{}, err
	}
	if len(out) != 3 {
		return ProvenWithdrawal{}, fmt.Errorf("unexpected provenWithdrawals result length %d", len(out))
	}
	return ProvenWithdrawal{
		OutputRoot:    *abi.ConvertType(out[0], new([32]byte)).(*[32]byte),
		Timestamp:     *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		L2OutputIndex: *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
	}, nil
}

func (p *OptimismPortal) FinalizedWithdrawals(opts *bind.CallOpts, withdrawalHash common.Hash) (bool, error) {
	var out []interface{}
	if err := p.contract.Call(opts, &out, "finalizedWithdrawals", withdrawalHash); err != nil {
		return false, err
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

type OutputProposal struct {
	OutputRoot    [32]byte
	Timestamp     *big.Int
	L2BlockNumber *big.Int
}

// L2OutputOracle is bound to the L1 output oracle proxy.
type L2OutputOracle struct {
	contract *bind.BoundContract
	Address  common.Address
}

func NewL2OutputOracle(address common.Address, backend bind.ContractBackend) *L2OutputOracle {
	return &L2OutputOracle{
		contract: bind.NewBoundContract(address, l2OutputOracleABI, backend, backend, backend),
		Address:  address,
	}
}

func (o *L2OutputOracle) LatestBlockNumber(opts *bind.CallOpts) (*big.Int, error) {
	return o.callBig(opts, "latestBlockNumber")
}

func (o *L2OutputOracle) GetL2OutputIndexAfter(opts *bind.CallOpts, l2BlockNumber *big.Int) (*big.Int, error) {
	return o.callBig(opts, "getL2OutputIndexAfter", l2BlockNumber)
}

func (o *L2OutputOracle) FinalizationPeriodSeconds(opts *bind.CallOpts) (*big.Int, error) {
	return o.callBig(opts, "FINALIZATION_PERIOD_SECONDS")
}

func (o *L2OutputOracle) GetL2Output(opts *bind.CallOpts, l2OutputIndex *big.Int) (OutputProposal, error) {
	var out []interface{}
	if err := o.contract.Call(opts, &out, "getL2Output", l2OutputIndex); err != nil {
		return OutputProposal{}, err
	}
	return *abi.ConvertType(out[0], new(OutputProposal)).(*OutputProposal), nil
}

func (o *L2OutputOracle) callBig(opts *bind.CallOpts, method string, params ...interface{}) (*big.Int, error) {
	var out []interface{}
	if err := o.contract.Call(opts, &out, method, params...); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
