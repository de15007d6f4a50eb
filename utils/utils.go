package utils

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

const (
	DefaultRetries    = 5
	DefaultRetryDelay = 2 * time.Second
)

// Retry calls fn until it succeeds or attempts run out, sleeping delay
// between attempts. It gives up early when ctx is done.
func Retry[T any](ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return zero, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Poll calls check every interval until it reports done, returns an error,
// or ctx is done. check runs once immediately.
func Poll(ctx context.Context, interval time.Duration, check func(context.Context) (bool, error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// WaitForReceipt polls until txHash is mined. A transaction the node does not
// know about yet is not an error, it keeps waiting.
func WaitForReceipt(ctx context.Context, backend ReceiptBackend, txHash common.Hash, interval time.Duration) (*gethtypes.Receipt, error) {
	var receipt *gethtypes.Receipt
	err := Poll(ctx, interval, func(ctx context.Context) (bool, error) {
		r, err := backend.TransactionReceipt(ctx, txHash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return false, nil
			}
			return false, fmt.Errorf("failed to get transaction receipt: %w", err)
		}
		receipt = r
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

type CodeBackend interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// IsContract reports whether code is deployed at address.
func IsContract(ctx context.Context, backend CodeBackend, address common.Address) (bool, error) {
	code, err := backend.CodeAt(ctx, address, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}
