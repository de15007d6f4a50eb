package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Only the parts of the OP-stack bridge contracts this module calls.

const withdrawalTransactionTuple = `{"components":[{"name":"nonce","type":"uint256"},{"name":"sender","type":"address"},{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"gasLimit","type":"uint256"},{"name":"data","type":"bytes"}],"name":"_tx","type":"tuple","internalType":"struct Types.WithdrawalTransaction"}`

const L2ToL1MessagePasserABI = `[
	{"type":"function","name":"initiateWithdrawal","stateMutability":"payable","inputs":[{"name":"_target","type":"address"},{"name":"_gasLimit","type":"uint256"},{"name":"_data","type":"bytes"}],"outputs":[]},
	{"type":"event","name":"MessagePassed","anonymous":false,"inputs":[{"name":"nonce","type":"uint256","indexed":true},{"name":"sender","type":"address","indexed":true},{"name":"target","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false},{"name":"gasLimit","type":"uint256","indexed":false},{"name":"data","type":"bytes","indexed":false},{"name":"withdrawalHash","type":"bytes32","indexed":false}]}
]`

const OptimismPortalABI = `[
	{"type":"function","name":"depositTransaction","stateMutability":"payable","inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"},{"name":"_gasLimit","type":"uint64"},{"name":"_isCreation","type":"bool"},{"name":"_data","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"proveWithdrawalTransaction","stateMutability":"nonpayable","inputs":[` + withdrawalTransactionTuple + `,{"name":"_l2OutputIndex","type":"uint256"},{"components":[{"name":"version","type":"bytes32"},{"name":"stateRoot","type":"bytes32"},{"name":"messagePasserStorageRoot","type":"bytes32"},{"name":"latestBlockhash","type":"bytes32"}],"name":"_outputRootProof","type":"tuple","internalType":"struct Types.OutputRootProof"},{"name":"_withdrawalProof","type":"bytes[]"}],"outputs":[]},
	{"type":"function","name":"finalizeWithdrawalTransaction","stateMutability":"nonpayable","inputs":[` + withdrawalTransactionTuple + `],"outputs":[]},
	{"type":"function","name":"provenWithdrawals","stateMutability":"view","inputs":[{"name":"","type":"bytes32"}],"outputs":[{"name":"outputRoot","type":"bytes32"},{"name":"timestamp","type":"uint128"},{"name":"l2OutputIndex","type":"uint128"}]},
	{"type":"function","name":"finalizedWithdrawals","stateMutability":"view","inputs":[{"name":"","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]}
]`

const L2OutputOracleABI = `[
	{"type":"function","name":"latestBlockNumber","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getL2OutputIndexAfter","stateMutability":"view","inputs":[{"name":"_l2BlockNumber","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getL2Output","stateMutability":"view","inputs":[{"name":"_l2OutputIndex","type":"uint256"}],"outputs":[{"components":[{"name":"outputRoot","type":"bytes32"},{"name":"timestamp","type":"uint128"},{"name":"l2BlockNumber","type":"uint128"}],"name":"","type":"tuple","internalType":"struct Types.OutputProposal"}]},
	{"type":"function","name":"FINALIZATION_PERIOD_SECONDS","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

var (
	l2ToL1MessagePasserABI = mustParseABI(L2ToL1MessagePasserABI)
	optimismPortalABI      = mustParseABI(OptimismPortalABI)
	l2OutputOracleABI      = mustParseABI(L2OutputOracleABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
