package withdrawal

import (
	"strings"

	"github.com/lightlink-network/ll-withdrawer/database/models"
	"github.com/lightlink-network/ll-withdrawer/types"
)

type StepState string

const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepUpcoming  StepState = "upcoming"
)

// Step is one row of the withdrawal progress list.
type Step struct {
	Name  types.WithdrawStatus `json:"name"`
	Label string               `json:"label"`
	State StepState            `json:"state"`
	Link  string               `json:"link,omitempty"`
}

var stepLabels = []struct {
	name  types.WithdrawStatus
	label string
}{
	{types.Initiating, "Requesting withdraw (L2)"},
	{types.Initiated, "Withdraw initiated"},
	{types.ReadyToProve, "Waiting until ready to prove (~1 hour)"},
	{types.Proving, "Proving (L1)"},
	{types.Proved, "Waiting for proof"},
	{types.Finalizing, "Finalizing (L1)"},
}

// Explorers are block explorer base URLs.
type Explorers struct {
	L1 string
	L2 string
}

// Hashes are the transaction hashes a withdrawal links to.
type Hashes struct {
	Withdrawal string
	Prove      string
	Finalize   string
}

func HashesOf(w *models.Withdrawal) Hashes {
	if w == nil {
		return Hashes{}
	}
	return Hashes{Withdrawal: w.WithdrawalHash, Prove: w.ProveHash, Finalize: w.FinalizeHash}
}

// Steps projects status onto the step list. Steps up to and including status
// are completed. The step after it is current only while loading. An empty
// status means no withdrawal has started.
func Steps(status types.WithdrawStatus, hashes Hashes, loading bool, explorers Explorers) []Step {
	current := status.Index()

	steps := make([]Step, len(stepLabels))
	for i, s := range stepLabels {
		state := StepUpcoming
		switch {
		case i <= current:
			state = StepCompleted
		case i == current+1 && loading:
			state = StepCurrent
		}

		steps[i] = Step{
			Name:  s.name,
			Label: s.label,
			State: state,
			Link:  stepLink(s.name, hashes, explorers),
		}
	}
	return steps
}

// StepsOf projects a stored record. A nil record has no progress.
func StepsOf(w *models.Withdrawal, loading bool, explorers Explorers) []Step {
	var status types.WithdrawStatus
	if w != nil {
		status = w.Status
	}
	return Steps(status, HashesOf(w), loading, explorers)
}

func stepLink(name types.WithdrawStatus, hashes Hashes, explorers Explorers) string {
	switch name {
	case types.Initiating:
		return txLink(explorers.L2, hashes.Withdrawal)
	case types.Proving:
		return txLink(explorers.L1, hashes.Prove)
	case types.Finalizing:
		return txLink(explorers.L1, hashes.Finalize)
	}
	return ""
}

func txLink(explorer, hash string) string {
	if explorer == "" || hash == "" {
		return ""
	}
	return strings.TrimSuffix(explorer, "/") + "/tx/" + hash
}
