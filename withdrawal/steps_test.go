package withdrawal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lightlink-network/ll-withdrawer/database/models"
	"github.com/lightlink-network/ll-withdrawer/types"
)

var explorers = Explorers{L1: "https://sepolia.etherscan.io", L2: "https://pegasus.lightlink.io"}

func states(steps []Step) []StepState {
	out := make([]StepState, len(steps))
	for i, s := range steps {
		out[i] = s.State
	}
	return out
}

func TestStepsClassification(t *testing.T) {
	const (
		c = StepCompleted
		n = StepCurrent
		u = StepUpcoming
	)

	for _, tc := range []struct {
		status  types.WithdrawStatus
		loading bool
		want    []StepState
	}{
		{"", false, []StepState{u, u, u, u, u, u}},
		{"", true, []StepState{n, u, u, u, u, u}},
		{types.Initiating, false, []StepState{c, u, u, u, u, u}},
		{types.Initiating, true, []StepState{c, n, u, u, u, u}},
		{types.ReadyToProve, true, []StepState{c, c, c, n, u, u}},
		{types.Proved, false, []StepState{c, c, c, c, c, u}},
		{types.Finalizing, true, []StepState{c, c, c, c, c, c}},
		{types.Finalized, false, []StepState{c, c, c, c, c, c}},
		{types.Finalized, true, []StepState{c, c, c, c, c, c}},
	} {
		require.Equal(t, tc.want, states(Steps(tc.status, Hashes{}, tc.loading, explorers)), "%s loading=%v", tc.status, tc.loading)
	}
}

func TestStepsLabels(t *testing.T) {
	steps := Steps(types.Initiating, Hashes{}, false, explorers)
	require.Equal(t, Step{Name: types.Initiating, Label: "Requesting withdraw (L2)", State: StepCompleted}, steps[0])
	require.Equal(t, "Waiting until ready to prove (~1 hour)", steps[2].Label)
	require.Equal(t, "Finalizing (L1)", steps[5].Label)
}

func TestStepsLinks(t *testing.T) {
	steps := StepsOf(&models.Withdrawal{
		WithdrawalHash: "0xabc",
		Status:         types.Finalizing,
		ProveHash:      "0xp1",
		FinalizeHash:   "0xf1",
	}, false, explorers)

	require.Equal(t, "https://pegasus.lightlink.io/tx/0xabc", steps[0].Link)
	require.Empty(t, steps[1].Link)
	require.Equal(t, "https://sepolia.etherscan.io/tx/0xp1", steps[3].Link)
	require.Equal(t, "https://sepolia.etherscan.io/tx/0xf1", steps[5].Link)

	// no hash, no link
	steps = StepsOf(&models.Withdrawal{WithdrawalHash: "0xabc", Status: types.Initiated}, false, explorers)
	require.Empty(t, steps[3].Link)
	require.Empty(t, Steps(types.Initiating, Hashes{Withdrawal: "0xabc"}, false, Explorers{})[0].Link)
}

func TestStepsOfNil(t *testing.T) {
	steps := StepsOf(nil, false, explorers)
	require.Len(t, steps, 6)
	for _, s := range steps {
		require.Equal(t, StepUpcoming, s.State)
		require.Empty(t, s.Link)
	}
}
