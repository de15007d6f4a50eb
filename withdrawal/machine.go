package withdrawal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/lightlink-network/ll-withdrawer/clients"
	"github.com/lightlink-network/ll-withdrawer/database/models"
	"github.com/lightlink-network/ll-withdrawer/ethereum"
	"github.com/lightlink-network/ll-withdrawer/lightlink"
	"github.com/lightlink-network/ll-withdrawer/metrics"
	"github.com/lightlink-network/ll-withdrawer/types"
)

// DefaultFinalizeSettleDelay is waited after the finalization period has
// passed and before the finalize transaction is submitted.
const DefaultFinalizeSettleDelay = 12 * time.Second

// persistTimeout bounds a store write that outlives its caller's context.
const persistTimeout = 30 * time.Second

// Store persists withdrawal records. database.Database and
// database.LocalStore implement it.
type Store interface {
	Add(ctx context.Context, w *models.Withdrawal) error
	Get(ctx context.Context, withdrawalHash string) (*models.Withdrawal, error)
	Query(ctx context.Context, f models.Filter) ([]*models.Withdrawal, error)
	Modify(ctx context.Context, withdrawalHash string, p models.Patch) (*models.Withdrawal, error)
	ListAll(ctx context.Context) ([]*models.Withdrawal, error)
}

// Machine advances withdrawal records one transition at a time. Every
// transition waits for its chain gate, then persists a single patch. A
// transaction whose hash is stored is never submitted again.
type Machine struct {
	store       Store
	clients     *clients.Clients
	settleDelay time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

type MachineOpts struct {
	Store   Store
	Clients *clients.Clients
	// FinalizeSettleDelay of zero submits as soon as the withdrawal is finalizable.
	FinalizeSettleDelay time.Duration
	Metrics             *metrics.Metrics
	Logger              *slog.Logger
}

func NewMachine(opts MachineOpts) *Machine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Machine{
		store:       opts.Store,
		clients:     opts.Clients,
		settleDelay: opts.FinalizeSettleDelay,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
}

// Initiate validates amount, submits initiateWithdrawal on L2 to the
// address itself and stores the new record as initiating.
func (m *Machine) Initiate(ctx context.Context, address common.Address, amount string) (*models.Withdrawal, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	args, hash, err := m.submitInitiate(ctx, address, value)
	if err != nil {
		m.metrics.RecordStepFailure("none")
		m.logger.Error("failed to initiate withdrawal", "address", address.Hex(), "amount", amount, "error", err)
		return nil, &StepError{Err: err}
	}
	m.metrics.RecordSubmission("initiate")

	w := &models.Withdrawal{
		WithdrawalHash: hash,
		Address:        address.Hex(),
		Status:         types.Initiating,
		Amount:         FormatAmount(value),
		Args:           args,
	}
	// The transaction is on chain, so the record is written even if ctx is
	// canceled meanwhile.
	storeCtx, cancel := persistContext(ctx)
	defer cancel()
	if err := m.store.Add(storeCtx, w); err != nil {
		m.logger.Error("withdrawal submitted but not stored", "withdrawal_hash", hash, "address", w.Address, "error", err)
		return nil, fmt.Errorf("failed to store withdrawal %s: %w", hash, err)
	}

	m.metrics.RecordTransition(types.Initiating.String())
	m.logger.Info("withdrawal initiated", "withdrawal_hash", hash, "address", w.Address, "amount", w.Amount)
	return w, nil
}

func (m *Machine) submitInitiate(ctx context.Context, address common.Address, value *big.Int) (*types.WithdrawArgs, string, error) {
	if err := m.ensureChain(ctx, m.clients.L2.ID); err != nil {
		return nil, "", err
	}

	args, err := m.clients.PublicL1.BuildInitiateWithdrawal(ctx, ethereum.InitiateWithdrawalParams{
		From:  address,
		To:    address,
		Value: value,
	})
	if err != nil {
		return nil, "", err
	}

	hash, err := m.clients.WalletL2.InitiateWithdrawal(ctx, args)
	if err != nil {
		return nil, "", err
	}
	return args, hash, nil
}

// Advance performs the single transition out of w.Status and returns the
// stored record. A finalized record returns ErrNoTransition. On any other
// error the record is left as it was.
func (m *Machine) Advance(ctx context.Context, w *models.Withdrawal) (*models.Withdrawal, error) {
	if w == nil {
		return nil, ErrNoActiveWithdrawal
	}

	patch, err := m.step(ctx, w)
	if err != nil {
		if errors.Is(err, ErrNoTransition) {
			return w, err
		}
		m.metrics.RecordStepFailure(w.Status.String())
		m.logger.Error("withdrawal step failed", "withdrawal_hash", w.WithdrawalHash, "status", w.Status, "error", err)
		if errors.Is(err, ErrMissingPrerequisite) {
			return w, err
		}
		return w, &StepError{Status: w.Status, Err: err}
	}

	storeCtx, cancel := persistContext(ctx)
	defer cancel()
	updated, err := m.store.Modify(storeCtx, w.WithdrawalHash, *patch)
	if err != nil {
		return w, fmt.Errorf("failed to persist %s: %w", patch.Status, err)
	}

	m.metrics.RecordTransition(updated.Status.String())
	m.logger.Info("withdrawal advanced", "withdrawal_hash", updated.WithdrawalHash, "from", w.Status, "to", updated.Status)
	return updated, nil
}

// persistContext keeps the values of ctx but not its cancellation. A patch
// may carry the hash of a transaction that was already submitted.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

// Run advances w until it is finalized or a step fails. onAdvance, when set,
// is called with every stored record.
func (m *Machine) Run(ctx context.Context, w *models.Withdrawal, onAdvance func(*models.Withdrawal)) (*models.Withdrawal, error) {
	for {
		next, err := m.Advance(ctx, w)
		if errors.Is(err, ErrNoTransition) {
			return next, nil
		}
		if err != nil {
			return next, err
		}
		if onAdvance != nil {
			onAdvance(next)
		}
		w = next
	}
}

func (m *Machine) step(ctx context.Context, w *models.Withdrawal) (*models.Patch, error) {
	switch w.Status {
	case types.Initiating:
		return m.awaitInitiate(ctx, w)
	case types.Initiated:
		return m.awaitProvable(ctx, w)
	case types.ReadyToProve:
		return m.prove(ctx, w)
	case types.Proving:
		return m.awaitProve(ctx, w)
	case types.Proved:
		return m.finalize(ctx, w)
	case types.Finalizing:
		return m.awaitFinalize(ctx, w)
	case types.Finalized:
		return nil, fmt.Errorf("%w %s", ErrNoTransition, w.Status)
	default:
		return nil, fmt.Errorf("%w %q", ErrNoTransition, w.Status)
	}
}

func (m *Machine) awaitInitiate(ctx context.Context, w *models.Withdrawal) (*models.Patch, error) {
	if w.WithdrawalHash == "" {
		return nil, missing(w.Status, "withdrawal hash")
	}

	receipt, err := m.waitForReceipt(ctx, m.clients.PublicL2.WaitForTransactionReceipt, w.WithdrawalHash)
	if err != nil {
		return nil, err
	}

	return &models.Patch{Status: types.Initiated, WithdrawalReceipt: receipt}, nil
}

func (m *Machine) awaitProvable(ctx context.Context, w *models.Withdrawal) (*models.Patch, error) {
	if w.WithdrawalReceipt == nil {
		return nil, missing(w.Status, "withdrawal receipt")
	}

	output, withdrawal, err := m.clients.PublicL1.WaitToProve(ctx, w.WithdrawalReceipt)
	if err != nil {
		return nil, err
	}

	return &models.Patch{Status: types.ReadyToProve, Output: output, Withdrawal: withdrawal}, nil
}

func (m *Machine) prove(ctx context.Context, w *models.Withdrawal) (*models.Patch, error) {
	if w.Output == nil {
		return nil, missing(w.Status, "output")
	}
	if w.Withdrawal == nil {
		return nil, missing(w.Status, "withdrawal")
	}

	proven, err := m.clients.PublicL1.IsWithdrawalProven(ctx, w.Withdrawal.WithdrawalHash)
	if err != nil {
		return nil, err
	}
	if proven {
		m.logger.Warn("withdrawal already proven on L1, not proving again", "withdrawal_hash", w.WithdrawalHash)
		return &models.Patch{Status: types.Proving}, nil
	}

	args, err := m.clients.PublicL2.BuildProveWithdrawal(ctx, w.Output, w.Withdrawal)
	if err != nil {
		return nil, err
	}

	if err := m.ensureChain(ctx, m.clients.L1.ID); err != nil {
		return nil, err
	}

	hash, err := m.clients.WalletL1.ProveWithdrawal(ctx, args)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordSubmission("prove")

	return &models.Patch{Status: types.Proving, ProveArgs: args, ProveHash: hash}, nil
}

func (m *Machine) awaitProve(ctx context.Context, w *models.Withdrawal) (*models.Patch, error) {
	if w.ProveHash == "" {
		return m.confirmOnChain(ctx, w, "prove hash", m.clients.PublicL1.IsWithdrawalProven, types.Proved)
	}

	receipt, err := m.waitForReceipt(ctx, m.clients.PublicL1.WaitForTransactionReceipt, w.ProveHash)
	if err != nil {
		return nil, err
	}

	return &models.Patch{Status: types.Proved, ProveReceipt: receipt}, nil
}

func (m *Machine) finalize(ctx context.Context, w *models.Withdrawal) (*models.Patch, error) {
	if w.Withdrawal == nil {
		return nil, missing(w.Status, "withdrawal")
	}

	if err := m.clients.PublicL1.WaitToFinalize(ctx, w.Withdrawal.WithdrawalHash); err != nil {
		return nil, err
	}

	finalized, err := m.clients.PublicL1.IsWithdrawalFinalized(ctx, w.Withdrawal.WithdrawalHash)
	if err != nil {
		return nil, err
	}
	if finalized {
		m.logger.Warn("withdrawal already finalized on L1, not finalizing again", "withdrawal_hash", w.WithdrawalHash)
		return &models.Patch{Status: types.Finalizing}, nil
	}

	if m.settleDelay > 0 {
		m.logger.Debug("waiting before finalizing", "withdrawal_hash", w.WithdrawalHash, "delay", m.settleDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.settleDelay):
		}
	}

	if err := m.ensureChain(ctx, m.clients.L1.ID); err != nil {
		return nil, err
	}

	hash, err := m.clients.WalletL1.FinalizeWithdrawal(ctx, w.Withdrawal)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordSubmission("finalize")

	return &models.Patch{Status: types.Finalizing, FinalizeHash: hash}, nil
}

func (m *Machine) awaitFinalize(ctx context.Context, w *models.Withdrawal) (*models.Patch, error) {
	if w.FinalizeHash == "" {
		return m.confirmOnChain(ctx, w, "finalize hash", m.clients.PublicL1.IsWithdrawalFinalized, types.Finalized)
	}

	receipt, err := m.waitForReceipt(ctx, m.clients.PublicL1.WaitForTransactionReceipt, w.FinalizeHash)
	if err != nil {
		return nil, err
	}

	return &models.Patch{Status: types.Finalized, FinalizeReceipt: receipt}, nil
}

// confirmOnChain advances a record that has no transaction hash for its
// current step, which happens when the step was already done on L1 by
// another submitter. Without the portal's confirmation the hash is missing.
func (m *Machine) confirmOnChain(ctx context.Context, w *models.Withdrawal, field string, done func(context.Context, string) (bool, error), next types.WithdrawStatus) (*models.Patch, error) {
	if w.Withdrawal == nil {
		return nil, missing(w.Status, field)
	}
	ok, err := done(ctx, w.Withdrawal.WithdrawalHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, missing(w.Status, field)
	}
	return &models.Patch{Status: next}, nil
}

func (m *Machine) waitForReceipt(ctx context.Context, wait func(context.Context, string) (*types.Receipt, error), txHash string) (*types.Receipt, error) {
	receipt, err := wait(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if !receipt.Succeeded() {
		return nil, fmt.Errorf("%w: %s", ErrReverted, txHash)
	}
	return receipt, nil
}

// ensureChain switches the wallet to chainID unless it is already active.
func (m *Machine) ensureChain(ctx context.Context, chainID *big.Int) error {
	if m.clients.Wallet.ActiveChainID().Cmp(chainID) == 0 {
		return nil
	}
	if err := m.clients.Wallet.SwitchActiveChain(ctx, chainID); err != nil {
		return fmt.Errorf("failed to switch chain to %s: %w", chainID, err)
	}
	return nil
}

// Deposit sends amount from address to itself on L2 through the portal and
// waits for the L1 receipt. Deposits are not stored.
func (m *Machine) Deposit(ctx context.Context, address common.Address, amount string) (*types.Receipt, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return nil, err
	}

	args, err := m.clients.PublicL2.BuildDepositTransaction(ctx, lightlink.DepositParams{
		From:  address,
		To:    address,
		Value: value,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build deposit: %w", err)
	}

	if err := m.ensureChain(ctx, m.clients.L1.ID); err != nil {
		return nil, err
	}

	hash, err := m.clients.WalletL1.DepositTransaction(ctx, args)
	if err != nil {
		return nil, err
	}
	m.metrics.RecordSubmission("deposit")

	receipt, err := m.waitForReceipt(ctx, m.clients.PublicL1.WaitForTransactionReceipt, hash)
	if err != nil {
		return nil, err
	}

	m.logger.Info("deposit confirmed", "tx_hash", hash, "address", address.Hex(), "amount", FormatAmount(value))
	return receipt, nil
}
