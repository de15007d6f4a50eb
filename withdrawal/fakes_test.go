package withdrawal

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/lightlink-network/ll-withdrawer/clients"
	"github.com/lightlink-network/ll-withdrawer/database"
	"github.com/lightlink-network/ll-withdrawer/database/models"
	"github.com/lightlink-network/ll-withdrawer/ethereum"
	"github.com/lightlink-network/ll-withdrawer/lightlink"
	"github.com/lightlink-network/ll-withdrawer/types"
	"github.com/lightlink-network/ll-withdrawer/wallet"
)

var (
	l1ChainID = big.NewInt(11155111)
	l2ChainID = big.NewInt(1891)

	testAddress = common.HexToAddress("0xAbCdEf0123456789aBcDeF0123456789AbCdEf01")

	testOutput = &types.Output{
		OutputIndex:   "3",
		OutputRoot:    common.HexToHash("0xfeed").Hex(),
		Timestamp:     1700000000,
		L2BlockNumber: 120,
	}
	testDescriptor = &types.WithdrawalDescriptor{
		Nonce:          "7",
		Sender:         testAddress.Hex(),
		Target:         testAddress.Hex(),
		Value:          "50000000000000000",
		GasLimit:       "100000",
		Data:           "0x",
		WithdrawalHash: common.HexToHash("0x77").Hex(),
	}
)

// recorder keeps the order of chain calls made by the fakes.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// receipts answers receipt waits. Unknown hashes block until ctx is done.
type receipts struct {
	mu   sync.Mutex
	byTx map[string]*types.Receipt
	errs map[string]error
}

func (r *receipts) set(hash string, status uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTx[hash] = &types.Receipt{TxHash: hash, Status: status, BlockNumber: 115}
	delete(r.errs, hash)
}

func (r *receipts) fail(hash string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[hash] = err
}

func (r *receipts) wait(ctx context.Context, hash string) (*types.Receipt, error) {
	r.mu.Lock()
	receipt, err := r.byTx[hash], r.errs[hash]
	r.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if receipt == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return receipt, nil
}

type fakeL1 struct {
	*recorder
	receipts receipts

	mu          sync.Mutex
	output      *types.Output
	withdrawal  *types.WithdrawalDescriptor
	finalizable bool
	proven      bool
	finalized   bool
}

func (f *fakeL1) WaitForTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	f.record("l1.receipt:" + txHash)
	return f.receipts.wait(ctx, txHash)
}

func (f *fakeL1) Balance(context.Context, common.Address) (*big.Int, error) {
	f.record("l1.balance")
	return big.NewInt(0), nil
}

func (f *fakeL1) BuildInitiateWithdrawal(_ context.Context, params ethereum.InitiateWithdrawalParams) (*types.WithdrawArgs, error) {
	f.record("l1.buildInitiateWithdrawal")
	return &types.WithdrawArgs{To: params.To.Hex(), Value: params.Value.String(), GasLimit: 100_000, Data: "0x"}, nil
}

func (f *fakeL1) WaitToProve(ctx context.Context, receipt *types.Receipt) (*types.Output, *types.WithdrawalDescriptor, error) {
	f.record("l1.waitToProve")
	f.mu.Lock()
	output, withdrawal := f.output, f.withdrawal
	f.mu.Unlock()
	if output == nil {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	return output, withdrawal, nil
}

func (f *fakeL1) WaitToFinalize(ctx context.Context, withdrawalHash string) error {
	f.record("l1.waitToFinalize:" + withdrawalHash)
	f.mu.Lock()
	ready := f.finalizable
	f.mu.Unlock()
	if !ready {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeL1) IsWithdrawalProven(context.Context, string) (bool, error) {
	f.record("l1.isWithdrawalProven")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.proven, nil
}

func (f *fakeL1) IsWithdrawalFinalized(context.Context, string) (bool, error) {
	f.record("l1.isWithdrawalFinalized")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finalized, nil
}

type fakeL2 struct {
	*recorder
	receipts receipts
}

func (f *fakeL2) WaitForTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	f.record("l2.receipt:" + txHash)
	return f.receipts.wait(ctx, txHash)
}

func (f *fakeL2) Balance(context.Context, common.Address) (*big.Int, error) {
	f.record("l2.balance")
	return big.NewInt(0), nil
}

func (f *fakeL2) BuildDepositTransaction(_ context.Context, params lightlink.DepositParams) (*types.DepositArgs, error) {
	f.record("l2.buildDepositTransaction")
	return &types.DepositArgs{To: params.To.Hex(), Value: params.Value.String(), GasLimit: 21_000, Data: "0x"}, nil
}

func (f *fakeL2) BuildProveWithdrawal(_ context.Context, output *types.Output, withdrawal *types.WithdrawalDescriptor) (*types.ProveArgs, error) {
	f.record("l2.buildProveWithdrawal")
	return &types.ProveArgs{
		Withdrawal:      *withdrawal,
		L2OutputIndex:   output.OutputIndex,
		WithdrawalProof: []string{"0x01"},
	}, nil
}

// fakeWallet tracks the active chain. Writes through the wallet clients
// check it like a real provider does.
type fakeWallet struct {
	*recorder
	mu       sync.Mutex
	active   *big.Int
	accounts []common.Address
}

func (w *fakeWallet) RequestAccounts(context.Context) ([]common.Address, error) {
	w.record("wallet.requestAccounts")
	return w.accounts, nil
}

func (w *fakeWallet) ActiveChainID() *big.Int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return new(big.Int).Set(w.active)
}

func (w *fakeWallet) SwitchActiveChain(_ context.Context, chainID *big.Int) error {
	w.record("wallet.switch:" + chainID.String())
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active = new(big.Int).Set(chainID)
	return nil
}

func (w *fakeWallet) Transactor(context.Context, *big.Int) (*bind.TransactOpts, error) {
	return nil, errors.New("not used")
}

func (w *fakeWallet) require(chainID *big.Int) error {
	if w.ActiveChainID().Cmp(chainID) != 0 {
		return wallet.ErrChainMismatch
	}
	return nil
}

type fakeWalletL1 struct {
	*recorder
	wallet *fakeWallet

	mu         sync.Mutex
	proveErr   error
	depositTx  string
	proveTx    string
	finalizeTx string

	// afterFinalize runs once the finalize hash has been produced.
	afterFinalize func()
}

func (f *fakeWalletL1) DepositTransaction(context.Context, *types.DepositArgs) (string, error) {
	f.record("l1.depositTransaction")
	if err := f.wallet.require(l1ChainID); err != nil {
		return "", err
	}
	return f.depositTx, nil
}

func (f *fakeWalletL1) ProveWithdrawal(context.Context, *types.ProveArgs) (string, error) {
	f.record("l1.proveWithdrawal")
	if err := f.wallet.require(l1ChainID); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.proveErr != nil {
		return "", f.proveErr
	}
	return f.proveTx, nil
}

func (f *fakeWalletL1) FinalizeWithdrawal(context.Context, *types.WithdrawalDescriptor) (string, error) {
	f.record("l1.finalizeWithdrawal")
	if err := f.wallet.require(l1ChainID); err != nil {
		return "", err
	}
	if f.afterFinalize != nil {
		defer f.afterFinalize()
	}
	return f.finalizeTx, nil
}

type fakeWalletL2 struct {
	*recorder
	wallet        *fakeWallet
	initiateTx    string
	initiateErr   error
	afterInitiate func()
}

func (f *fakeWalletL2) InitiateWithdrawal(context.Context, *types.WithdrawArgs) (string, error) {
	f.record("l2.initiateWithdrawal")
	if err := f.wallet.require(l2ChainID); err != nil {
		return "", err
	}
	if f.initiateErr != nil {
		return "", f.initiateErr
	}
	if f.afterInitiate != nil {
		defer f.afterInitiate()
	}
	return f.initiateTx, nil
}

type fakeSource struct {
	c *clients.Clients
}

func (s *fakeSource) Clients() (*clients.Clients, bool) {
	return s.c, s.c != nil
}

type testEnv struct {
	calls   *recorder
	store   *database.LocalStore
	l1      *fakeL1
	l2      *fakeL2
	wallet  *fakeWallet
	w1      *fakeWalletL1
	w2      *fakeWalletL2
	clients *clients.Clients
	source  *fakeSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := database.NewLocalStoreWithStorage(storage.NewMemStorage(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	calls := &recorder{}
	w := &fakeWallet{recorder: calls, active: l1ChainID, accounts: []common.Address{testAddress}}
	env := &testEnv{
		calls:  calls,
		store:  store,
		l1:     &fakeL1{recorder: calls, receipts: receipts{byTx: map[string]*types.Receipt{}, errs: map[string]error{}}},
		l2:     &fakeL2{recorder: calls, receipts: receipts{byTx: map[string]*types.Receipt{}, errs: map[string]error{}}},
		wallet: w,
		w1:     &fakeWalletL1{recorder: calls, wallet: w, depositTx: "0xd1", proveTx: "0xp1", finalizeTx: "0xf1"},
		w2:     &fakeWalletL2{recorder: calls, wallet: w, initiateTx: "0xabc"},
	}
	env.clients = &clients.Clients{
		PublicL1: env.l1,
		PublicL2: env.l2,
		WalletL1: env.w1,
		WalletL2: env.w2,
		Wallet:   w,
		L1:       clients.ChainConfig{ID: l1ChainID, Name: "sepolia", ExplorerURL: "https://sepolia.etherscan.io"},
		L2:       clients.ChainConfig{ID: l2ChainID, Name: "pegasus", ExplorerURL: "https://pegasus.lightlink.io/"},
	}
	env.source = &fakeSource{c: env.clients}
	return env
}

func (e *testEnv) machine() *Machine {
	return NewMachine(MachineOpts{Store: e.store, Clients: e.clients})
}

func (e *testEnv) session() *Session {
	return NewSession(SessionOpts{Clients: e.source, Store: e.store})
}

// everythingReady makes every gate pass immediately.
func (e *testEnv) everythingReady() {
	e.l2.receipts.set("0xabc", 1)
	e.l1.receipts.set("0xp1", 1)
	e.l1.receipts.set("0xf1", 1)
	e.l1.mu.Lock()
	e.l1.output, e.l1.withdrawal, e.l1.finalizable = testOutput, testDescriptor, true
	e.l1.mu.Unlock()
}

// seed stores a record at status with the artifacts earlier transitions
// would have written.
func (e *testEnv) seed(t *testing.T, hash, address string, status types.WithdrawStatus, createdAt time.Time) *models.Withdrawal {
	t.Helper()
	w := &models.Withdrawal{
		WithdrawalHash: hash,
		Address:        address,
		Status:         status,
		Amount:         "0.05",
		CreatedAt:      createdAt,
	}
	if status.Index() >= types.Initiated.Index() {
		w.WithdrawalReceipt = &types.Receipt{TxHash: hash, Status: 1, BlockNumber: 115}
	}
	if status.Index() >= types.ReadyToProve.Index() {
		w.Output, w.Withdrawal = testOutput, testDescriptor
	}
	if status.Index() >= types.Proving.Index() {
		w.ProveHash = "0xp1"
	}
	if status.Index() >= types.Proved.Index() {
		w.ProveReceipt = &types.Receipt{TxHash: "0xp1", Status: 1}
	}
	if status.Index() >= types.Finalizing.Index() {
		w.FinalizeHash = "0xf1"
	}
	if status.Index() >= types.Finalized.Index() {
		w.FinalizeReceipt = &types.Receipt{TxHash: "0xf1", Status: 1}
	}
	require.NoError(t, e.store.Add(context.Background(), w))
	return w
}

// ctxStore fails writes on a done context like a network-backed store.
type ctxStore struct {
	Store
}

func (s ctxStore) Add(ctx context.Context, w *models.Withdrawal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Add(ctx, w)
}

func (s ctxStore) Modify(ctx context.Context, withdrawalHash string, p models.Patch) (*models.Withdrawal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.Modify(ctx, withdrawalHash, p)
}

// writes keeps the transaction submissions out of calls.
func writes(calls []string) []string {
	var out []string
	for _, c := range calls {
		switch c {
		case "l2.initiateWithdrawal", "l1.proveWithdrawal", "l1.finalizeWithdrawal", "l1.depositTransaction":
			out = append(out, c)
		}
	}
	return out
}
