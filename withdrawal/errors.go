package withdrawal

import (
	"errors"
	"fmt"

	"github.com/lightlink-network/ll-withdrawer/types"
)

var (
	ErrInvalidAmount       = errors.New("Invalid amount")
	ErrNotConnected        = errors.New("wallet is not connected")
	ErrMissingPrerequisite = errors.New("missing prerequisite")
	ErrBusy                = errors.New("a withdrawal step is already in progress")
	ErrNoTransition        = errors.New("no transition from status")
	ErrNoActiveWithdrawal  = errors.New("no active withdrawal")
	ErrReverted            = errors.New("transaction reverted")
)

// StepError is a failure of the chain interaction that advances a record out
// of Status. The record keeps Status.
type StepError struct {
	Status types.WithdrawStatus
	Err    error
}

func (e *StepError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("failed to initiate withdrawal: %v", e.Err)
	}
	return fmt.Sprintf("failed to advance withdrawal from %s: %v", e.Status, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func missing(status types.WithdrawStatus, field string) error {
	return fmt.Errorf("%w: %s withdrawal has no %s", ErrMissingPrerequisite, status, field)
}
