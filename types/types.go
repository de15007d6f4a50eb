package types

// WithdrawStatus represents the different states an L2 to L1 withdrawal can be in
type WithdrawStatus string

const (
	// Initiating - the initiate withdrawal tx has been submitted on L2 and is not mined yet
	Initiating WithdrawStatus = "initiating"

	// Initiated - the initiate withdrawal tx has been mined on L2
	Initiated WithdrawStatus = "initiated"

	// ReadyToProve - an output root covering the withdrawal has been published on L1
	ReadyToProve WithdrawStatus = "ready_to_prove"

	// Proving - the prove tx has been submitted on L1 and is not mined yet
	Proving WithdrawStatus = "proving"

	// Proved - the prove tx has been mined and the withdrawal is in its challenge period
	Proved WithdrawStatus = "proved"

	// Finalizing - the finalize tx has been submitted on L1 and is not mined yet
	Finalizing WithdrawStatus = "finalizing"

	// Finalized - the finalize tx has been mined, funds are released on L1
	Finalized WithdrawStatus = "finalized"
)

// WithdrawStatuses lists every status in forward order.
var WithdrawStatuses = []WithdrawStatus{
	Initiating,
	Initiated,
	ReadyToProve,
	Proving,
	Proved,
	Finalizing,
	Finalized,
}

// Index returns the position of s in the forward sequence, or -1 if s is unknown.
func (s WithdrawStatus) Index() int {
	for i, status := range WithdrawStatuses {
		if status == s {
			return i
		}
	}
	return -1
}

func (s WithdrawStatus) Valid() bool {
	return s.Index() >= 0
}

func (s WithdrawStatus) Terminal() bool {
	return s == Finalized
}

// Next returns the status following s. ok is false for the terminal and unknown statuses.
func (s WithdrawStatus) Next() (WithdrawStatus, bool) {
	i := s.Index()
	if i < 0 || i == len(WithdrawStatuses)-1 {
		return "", false
	}
	return WithdrawStatuses[i+1], true
}

func (s WithdrawStatus) String() string {
	return string(s)
}

// Prev returns the status preceding s. ok is false for the first and unknown statuses.
func (s WithdrawStatus) Prev() (WithdrawStatus, bool) {
	i := s.Index()
	if i <= 0 {
		return "", false
	}
	return WithdrawStatuses[i-1], true
}
