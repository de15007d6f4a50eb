package withdrawal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lightlink-network/ll-withdrawer/database/models"
	"github.com/lightlink-network/ll-withdrawer/types"
)

// Resumer finds the withdrawal an account left unfinished.
type Resumer struct {
	store  Store
	logger *slog.Logger
}

func NewResumer(store Store, logger *slog.Logger) *Resumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resumer{store: store, logger: logger}
}

// Resume returns the oldest withdrawal of address that is not finalized, or
// nil when there is none. Addresses compare case-insensitively.
func (r *Resumer) Resume(ctx context.Context, address string) (*models.Withdrawal, error) {
	filter := models.Filter{Address: address, NotStatus: types.Finalized}

	withdrawals, err := r.store.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals of %s: %w", address, err)
	}

	var oldest *models.Withdrawal
	matched := 0
	for _, w := range withdrawals {
		if !filter.Matches(w) {
			continue
		}
		matched++
		if oldest == nil || w.CreatedAt.Before(oldest.CreatedAt) {
			oldest = w
		}
	}

	if oldest == nil {
		r.logger.Debug("no withdrawal to resume", "address", address)
		return nil, nil
	}
	if matched > 1 {
		r.logger.Warn("multiple incomplete withdrawals, resuming the oldest", "address", address, "count", matched, "withdrawal_hash", oldest.WithdrawalHash)
	}

	r.logger.Info("resuming withdrawal", "address", address, "withdrawal_hash", oldest.WithdrawalHash, "status", oldest.Status)
	return oldest, nil
}
