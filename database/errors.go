package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/lightlink-network/ll-withdrawer/database/models"
)

var (
	ErrNotFound          = errors.New("withdrawal not found")
	ErrDuplicate         = errors.New("withdrawal already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// prepareNew validates a record before insertion and returns the copy that is stored.
func prepareNew(w *models.Withdrawal, now time.Time) (*models.Withdrawal, error) {
	if w.WithdrawalHash == "" {
		return nil, errors.New("withdrawal hash is required")
	}
	if w.Address == "" {
		return nil, errors.New("withdrawal address is required")
	}
	if !w.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, w.Status)
	}

	doc := *w
	doc.WithdrawalHash = models.NormalizeHash(w.WithdrawalHash)
	doc.Address = models.NormalizeAddress(w.Address)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	return &doc, nil
}
