package jobs

// State is the processing state of one job.
type State string

const (
	StateSubmitted   State = "SUBMITTED"
	StateExtracting  State = "EXTRACTING"
	StateSummarizing State = "SUMMARIZING"
	StateCompleted   State = "COMPLETED"
	StateFailed      State = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Transition returns the state that follows s once the work of s has
// finished with stepErr. Any error moves a non-terminal job to FAILED.
// Terminal states never change.
func Transition(s State, stepErr error) State {
	if s.Terminal() {
		return s
	}
	if stepErr != nil {
		return StateFailed
	}

	switch s {
	case StateSubmitted:
		return StateExtracting
	case StateExtracting:
		return StateSummarizing
	case StateSummarizing:
		return StateCompleted
	}
	return StateFailed
}
