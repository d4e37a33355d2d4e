package pagerank

// State describes the progress of a calculator run.
type State int32

const (
	// NotStarted is the state of a calculator that never ran.
	NotStarted State = iota
	// IterationRunning is reported while supersteps are executing.
	IterationRunning
	// Converged means the L1 error dropped to the configured tolerance.
	Converged
	// MaxIterationsReached means the iteration cap was hit before the
	// error dropped to the configured tolerance.
	MaxIterationsReached
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case NotStarted:
		return "NOT_STARTED"
	case IterationRunning:
		return "ITERATION_RUNNING"
	case Converged:
		return "CONVERGED"
	case MaxIterationsReached:
		return "MAX_ITERATIONS_REACHED"
	default:
		return "UNKNOWN"
	}
}

// Done returns true for the terminal states. Both terminal states are
// successful completions.
func (s State) Done() bool {
	return s == Converged || s == MaxIterationsReached
}
