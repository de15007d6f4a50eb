package utils

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func TestRetry(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("flaky")
		}
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, v)
	require.Equal(t, 3, calls)

	calls = 0
	_, err = Retry(context.Background(), 2, time.Millisecond, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("down")
	})
	require.ErrorContains(t, err, "failed after 2 attempts: down")
	require.Equal(t, 2, calls)
}

func TestPollStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Poll(ctx, time.Millisecond, func(context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, calls)
}

type receiptBackend struct {
	misses  int
	receipt *gethtypes.Receipt
	err     error
}

func (b *receiptBackend) TransactionReceipt(context.Context, common.Hash) (*gethtypes.Receipt, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.misses > 0 {
		b.misses--
		return nil, ethereum.NotFound
	}
	return b.receipt, nil
}

func TestWaitForReceipt(t *testing.T) {
	want := &gethtypes.Receipt{Status: 1, BlockNumber: big.NewInt(5)}
	backend := &receiptBackend{misses: 2, receipt: want}

	got, err := WaitForReceipt(context.Background(), backend, common.HexToHash("0x01"), time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, want, got)

	backend = &receiptBackend{err: errors.New("rpc down")}
	_, err = WaitForReceipt(context.Background(), backend, common.HexToHash("0x01"), time.Millisecond)
	require.ErrorContains(t, err, "rpc down")
}

type codeBackend map[common.Address][]byte

func (b codeBackend) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	return b[account], nil
}

func TestIsContract(t *testing.T) {
	portal := common.HexToAddress("0x01")
	backend := codeBackend{portal: {0x60, 0x80}}

	ok, err := IsContract(context.Background(), backend, portal)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = IsContract(context.Background(), backend, common.HexToAddress("0x02"))
	require.NoError(t, err)
	require.False(t, ok)
}
