package run

// Outcome is the terminal status of a cell or a job.
type Outcome int32

const (
	// OutcomeNone marks a job or cell that has not reached a terminal state yet.
	OutcomeNone Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
	OutcomeSkipped
	OutcomeCanceled
)

// String implements fmt.Stringer for log and report output.
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "Succeeded"
	case OutcomeFailed:
		return "Failed"
	case OutcomeSkipped:
		return "Skipped"
	case OutcomeCanceled:
		return "Canceled"
	default:
		return "None"
	}
}

// Terminal reports whether the outcome is one of the four terminal states.
func (o Outcome) Terminal() bool {
	return o != OutcomeNone
}

// State tracks a job's progress through the scheduler. Every job moves
// Pending → Expanding → Dispatched → Done; the terminal Outcome is stored
// separately, exactly once.
type State int32

const (
	StatePending State = iota
	StateExpanding
	StateDispatched
	StateDone
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateExpanding:
		return "Expanding"
	case StateDispatched:
		return "Dispatched"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}
