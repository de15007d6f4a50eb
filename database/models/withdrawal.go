package models

import (
	"strings"
	"time"

	"github.com/lightlink-network/ll-withdrawer/types"
)

// Withdrawal is the persisted state of one L2 to L1 withdrawal. It is keyed
// by the L2 hash of the initiating transaction, which never changes.
type Withdrawal struct {
	WithdrawalHash    string                      `json:"withdrawal_hash" bson:"withdrawal_hash"`
	Address           string                      `json:"address" bson:"address"`
	Status            types.WithdrawStatus        `json:"status" bson:"status"`
	Amount            string                      `json:"amount" bson:"amount"`
	Args              *types.WithdrawArgs         `json:"args,omitempty" bson:"args,omitempty"`
	WithdrawalReceipt *types.Receipt              `json:"withdrawal_receipt,omitempty" bson:"withdrawal_receipt,omitempty"`
	Output            *types.Output               `json:"output,omitempty" bson:"output,omitempty"`
	Withdrawal        *types.WithdrawalDescriptor `json:"withdrawal,omitempty" bson:"withdrawal,omitempty"`
	ProveArgs         *types.ProveArgs            `json:"prove_args,omitempty" bson:"prove_args,omitempty"`
	ProveHash         string                      `json:"prove_hash,omitempty" bson:"prove_hash,omitempty"`
	ProveReceipt      *types.Receipt              `json:"prove_receipt,omitempty" bson:"prove_receipt,omitempty"`
	FinalizeHash      string                      `json:"finalize_hash,omitempty" bson:"finalize_hash,omitempty"`
	FinalizeReceipt   *types.Receipt              `json:"finalize_receipt,omitempty" bson:"finalize_receipt,omitempty"`
	CreatedAt         time.Time                   `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time                   `json:"updated_at" bson:"updated_at"`
}

// Patch is the set of fields written by a single forward transition. Only
// non-empty fields are applied.
type Patch struct {
	Status            types.WithdrawStatus
	WithdrawalReceipt *types.Receipt
	Output            *types.Output
	Withdrawal        *types.WithdrawalDescriptor
	ProveArgs         *types.ProveArgs
	ProveHash         string
	ProveReceipt      *types.Receipt
	FinalizeHash      string
	FinalizeReceipt   *types.Receipt
}

// Apply writes the patch onto w and stamps UpdatedAt.
func (p Patch) Apply(w *Withdrawal, now time.Time) {
	w.Status = p.Status
	if p.WithdrawalReceipt != nil {
		w.WithdrawalReceipt = p.WithdrawalReceipt
	}
	if p.Output != nil {
		w.Output = p.Output
	}
	if p.Withdrawal != nil {
		w.Withdrawal = p.Withdrawal
	}
	if p.ProveArgs != nil {
		w.ProveArgs = p.ProveArgs
	}
	if p.ProveHash != "" {
		w.ProveHash = p.ProveHash
	}
	if p.ProveReceipt != nil {
		w.ProveReceipt = p.ProveReceipt
	}
	if p.FinalizeHash != "" {
		w.FinalizeHash = p.FinalizeHash
	}
	if p.FinalizeReceipt != nil {
		w.FinalizeReceipt = p.FinalizeReceipt
	}
	w.UpdatedAt = now
}

// Filter selects withdrawals. Empty fields match everything.
type Filter struct {
	Address   string
	Status    types.WithdrawStatus
	NotStatus types.WithdrawStatus
}

// Matches reports whether w is selected by f. Addresses compare case-insensitively.
func (f Filter) Matches(w *Withdrawal) bool {
	if f.Address != "" && !strings.EqualFold(f.Address, w.Address) {
		return false
	}
	if f.Status != "" && f.Status != w.Status {
		return false
	}
	if f.NotStatus != "" && f.NotStatus == w.Status {
		return false
	}
	return true
}

// NormalizeHash is the form withdrawal hashes are stored and queried in.
func NormalizeHash(hash string) string {
	return strings.ToLower(hash)
}

// NormalizeAddress is the form addresses are stored and queried in.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}
