package withdrawal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/ll-withdrawer/database"
	"github.com/lightlink-network/ll-withdrawer/database/models"
	"github.com/lightlink-network/ll-withdrawer/types"
)

func TestInitiateThenReadyToProve(t *testing.T) {
	env := newTestEnv(t)
	m := env.machine()
	ctx := context.Background()

	w, err := m.Initiate(ctx, testAddress, "0.05")
	require.NoError(t, err)
	require.Equal(t, "0xabc", w.WithdrawalHash)
	require.Equal(t, types.Initiating, w.Status)
	require.Equal(t, "0.05", w.Amount)
	require.Equal(t, "50000000000000000", w.Args.Value)

	stored, err := env.store.Get(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, types.Initiating, stored.Status)
	require.Equal(t, models.NormalizeAddress(testAddress.Hex()), stored.Address)

	env.l2.receipts.set("0xabc", 1)
	w, err = m.Advance(ctx, w)
	require.NoError(t, err)
	require.Equal(t, types.Initiated, w.Status)
	require.Equal(t, "0xabc", w.WithdrawalReceipt.TxHash)

	env.l1.output, env.l1.withdrawal = testOutput, testDescriptor
	w, err = m.Advance(ctx, w)
	require.NoError(t, err)
	require.Equal(t, types.ReadyToProve, w.Status)
	require.Equal(t, testOutput, w.Output)
	require.Equal(t, testDescriptor, w.Withdrawal)

	stored, err = env.store.Get(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, types.ReadyToProve, stored.Status)
	require.Equal(t, testOutput, stored.Output)
	require.Equal(t, testDescriptor, stored.Withdrawal)

	require.Equal(t, []string{"l2.initiateWithdrawal"}, writes(env.calls.all()))
	require.Equal(t, 1, env.calls.count("wallet.switch:1891"))
}

func TestInitiateRejectsInvalidAmount(t *testing.T) {
	env := newTestEnv(t)

	for _, amount := range []string{"-1", "abc", "0"} {
		_, err := env.machine().Initiate(context.Background(), testAddress, amount)
		require.ErrorIs(t, err, ErrInvalidAmount)
	}

	require.Empty(t, env.calls.all())
	all, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestInitiateSubmissionFailureStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	env.w2.initiateErr = errors.New("user rejected")

	_, err := env.machine().Initiate(context.Background(), testAddress, "0.05")
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, types.WithdrawStatus(""), stepErr.Status)
	require.ErrorContains(t, err, "user rejected")

	all, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestRunToFinalized(t *testing.T) {
	env := newTestEnv(t)
	env.everythingReady()
	m := env.machine()
	ctx := context.Background()

	w, err := m.Initiate(ctx, testAddress, "0.05")
	require.NoError(t, err)

	var seen []types.WithdrawStatus
	w, err = m.Run(ctx, w, func(next *models.Withdrawal) {
		seen = append(seen, next.Status)
	})
	require.NoError(t, err)
	require.Equal(t, types.Finalized, w.Status)
	require.Equal(t, types.WithdrawStatuses[1:], seen)

	require.Equal(t, "0xp1", w.ProveHash)
	require.Equal(t, "0xf1", w.FinalizeHash)
	require.NotNil(t, w.ProveArgs)
	require.NotNil(t, w.ProveReceipt)
	require.NotNil(t, w.FinalizeReceipt)

	require.Equal(t, []string{"l2.initiateWithdrawal", "l1.proveWithdrawal", "l1.finalizeWithdrawal"}, writes(env.calls.all()))
	require.Equal(t, 1, env.calls.count("l1.waitToFinalize:"+testDescriptor.WithdrawalHash))
	// L2 for initiating, then L1 once for proving
	require.Equal(t, 1, env.calls.count("wallet.switch:1891"))
	require.Equal(t, 1, env.calls.count("wallet.switch:11155111"))
}

func TestResumedStepsNeverResubmit(t *testing.T) {
	for _, status := range []types.WithdrawStatus{types.Initiating, types.Proving, types.Finalizing} {
		t.Run(status.String(), func(t *testing.T) {
			env := newTestEnv(t)
			env.everythingReady()
			w := env.seed(t, "0xabc", testAddress.Hex(), status, time.Now())

			next, err := env.machine().Advance(context.Background(), w)
			require.NoError(t, err)
			expected, _ := status.Next()
			require.Equal(t, expected, next.Status)
			require.Empty(t, writes(env.calls.all()))
		})
	}
}

func TestTerminalIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	w := env.seed(t, "0xabc", testAddress.Hex(), types.Finalized, time.Now())
	before, err := env.store.Get(context.Background(), "0xabc")
	require.NoError(t, err)

	next, err := env.machine().Advance(context.Background(), w)
	require.ErrorIs(t, err, ErrNoTransition)
	require.Same(t, w, next)

	ran, err := env.machine().Run(context.Background(), w, nil)
	require.NoError(t, err)
	require.Equal(t, types.Finalized, ran.Status)

	require.Empty(t, env.calls.all())
	stored, err := env.store.Get(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Equal(t, before, stored)
}

func TestGatedWaitDoesNotMutate(t *testing.T) {
	for _, status := range []types.WithdrawStatus{types.Initiating, types.Initiated, types.Proving, types.Proved, types.Finalizing} {
		t.Run(status.String(), func(t *testing.T) {
			env := newTestEnv(t)
			w := env.seed(t, "0xabc", testAddress.Hex(), status, time.Now())
			before, err := env.store.Get(context.Background(), "0xabc")
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			_, err = env.machine().Advance(ctx, w)
			require.ErrorIs(t, err, context.DeadlineExceeded)

			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			require.Equal(t, status, stepErr.Status)

			stored, err := env.store.Get(context.Background(), "0xabc")
			require.NoError(t, err)
			require.Equal(t, before, stored)
			require.Empty(t, writes(env.calls.all()))
		})
	}
}

func TestMissingPrerequisite(t *testing.T) {
	env := newTestEnv(t)
	env.everythingReady()
	ctx := context.Background()

	w := &models.Withdrawal{WithdrawalHash: "0xabc", Address: testAddress.Hex(), Status: types.ReadyToProve, Amount: "0.05"}
	require.NoError(t, env.store.Add(ctx, w))

	_, err := env.machine().Advance(ctx, w)
	require.ErrorIs(t, err, ErrMissingPrerequisite)
	require.Zero(t, env.calls.count("l2.buildProveWithdrawal"))
	require.Empty(t, writes(env.calls.all()))

	stored, err := env.store.Get(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, types.ReadyToProve, stored.Status)
	require.Empty(t, stored.ProveHash)
}

func TestMissingPrerequisitePerStatus(t *testing.T) {
	for status, field := range map[types.WithdrawStatus]string{
		types.Initiated:  "withdrawal receipt",
		types.Proving:    "prove hash",
		types.Proved:     "withdrawal",
		types.Finalizing: "finalize hash",
	} {
		env := newTestEnv(t)
		w := &models.Withdrawal{WithdrawalHash: "0xabc", Address: testAddress.Hex(), Status: status}
		_, err := env.machine().Advance(context.Background(), w)
		require.ErrorIs(t, err, ErrMissingPrerequisite, status)
		require.ErrorContains(t, err, field)
	}
}

func TestRevertedReceiptDoesNotAdvance(t *testing.T) {
	env := newTestEnv(t)
	env.l2.receipts.set("0xabc", 0)
	w := env.seed(t, "0xabc", testAddress.Hex(), types.Initiating, time.Now())

	_, err := env.machine().Advance(context.Background(), w)
	require.ErrorIs(t, err, ErrReverted)

	stored, err := env.store.Get(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Equal(t, types.Initiating, stored.Status)
}

func TestProveSubmissionFailureKeepsReadyToProve(t *testing.T) {
	env := newTestEnv(t)
	env.everythingReady()
	env.w1.proveErr = errors.New("insufficient funds")
	w := env.seed(t, "0xabc", testAddress.Hex(), types.ReadyToProve, time.Now())

	_, err := env.machine().Advance(context.Background(), w)
	require.ErrorContains(t, err, "insufficient funds")

	stored, err := env.store.Get(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Equal(t, types.ReadyToProve, stored.Status)
	require.Empty(t, stored.ProveHash)
}

func TestAdvanceRejectsStaleRecord(t *testing.T) {
	env := newTestEnv(t)
	env.everythingReady()
	w := env.seed(t, "0xabc", testAddress.Hex(), types.Initiating, time.Now())

	_, err := env.machine().Advance(context.Background(), w)
	require.NoError(t, err)

	// the in-memory copy is one step behind the store
	_, err = env.machine().Advance(context.Background(), w)
	require.ErrorIs(t, err, database.ErrInvalidTransition)
}

func TestFinalizeSettleDelayIsCancellable(t *testing.T) {
	env := newTestEnv(t)
	env.everythingReady()
	w := env.seed(t, "0xabc", testAddress.Hex(), types.Proved, time.Now())

	m := NewMachine(MachineOpts{Store: env.store, Clients: env.clients, FinalizeSettleDelay: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Advance(ctx, w)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, env.calls.count("l1.finalizeWithdrawal"))
}

func TestDeposit(t *testing.T) {
	env := newTestEnv(t)
	env.wallet.active = l2ChainID
	env.l1.receipts.set("0xd1", 1)

	receipt, err := env.machine().Deposit(context.Background(), testAddress, "0.1")
	require.NoError(t, err)
	require.Equal(t, "0xd1", receipt.TxHash)
	require.Equal(t, []string{"l1.depositTransaction"}, writes(env.calls.all()))
	require.Equal(t, 1, env.calls.count("wallet.switch:11155111"))

	all, err := env.store.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCanceledAfterInitiateSubmissionStoresRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	env.w2.afterInitiate = cancel
	m := NewMachine(MachineOpts{Store: ctxStore{env.store}, Clients: env.clients})

	w, err := m.Initiate(ctx, testAddress, "0.05")
	require.NoError(t, err)
	require.Equal(t, "0xabc", w.WithdrawalHash)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	stored, err := env.store.Get(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Equal(t, types.Initiating, stored.Status)
}

func TestCanceledAfterFinalizeSubmissionKeepsHash(t *testing.T) {
	env := newTestEnv(t)
	env.everythingReady()
	w := env.seed(t, "0xabc", testAddress.Hex(), types.Proved, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	env.w1.afterFinalize = cancel
	m := NewMachine(MachineOpts{Store: ctxStore{env.store}, Clients: env.clients})

	next, err := m.Advance(ctx, w)
	require.NoError(t, err)
	require.Equal(t, types.Finalizing, next.Status)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	stored, err := env.store.Get(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Equal(t, types.Finalizing, stored.Status)
	require.Equal(t, "0xf1", stored.FinalizeHash)

	// a restart waits for the stored hash instead of finalizing again
	env.w1.afterFinalize = nil
	done, err := m.Run(context.Background(), stored, nil)
	require.NoError(t, err)
	require.Equal(t, types.Finalized, done.Status)
	require.Equal(t, 1, env.calls.count("l1.finalizeWithdrawal"))
}

func TestAlreadyFinalizedOnChainIsNotSubmitted(t *testing.T) {
	env := newTestEnv(t)
	env.everythingReady()
	env.l1.finalized = true
	w := env.seed(t, "0xabc", testAddress.Hex(), types.Proved, time.Now())

	done, err := env.machine().Run(context.Background(), w, nil)
	require.NoError(t, err)
	require.Equal(t, types.Finalized, done.Status)
	require.Empty(t, done.FinalizeHash)
	require.Empty(t, writes(env.calls.all()))
}

func TestAlreadyProvenOnChainIsNotSubmitted(t *testing.T) {
	env := newTestEnv(t)
	env.everythingReady()
	env.l1.proven = true
	w := env.seed(t, "0xabc", testAddress.Hex(), types.ReadyToProve, time.Now())

	done, err := env.machine().Run(context.Background(), w, nil)
	require.NoError(t, err)
	require.Equal(t, types.Finalized, done.Status)
	require.Empty(t, done.ProveHash)
	require.Zero(t, env.calls.count("l2.buildProveWithdrawal"))
	require.Equal(t, []string{"l1.finalizeWithdrawal"}, writes(env.calls.all()))
}
