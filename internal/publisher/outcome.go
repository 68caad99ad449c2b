package publisher

// Outcome classifies a publish attempt.
type Outcome int

const (
	OutcomeDryRun Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDryRun:
		return "dry-run"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Normalized status strings written back into the calendar. The error label
// describes the operator workflow (fix the row, leave the trigger, rerun);
// nothing retries on its own.
const (
	StatusPosted = "Posted"
	StatusDryRun = "Dry Run"
	StatusError  = "Error (will retry)"
)

// Result is what one publish attempt produced. PostIDs carries live post
// IDs in thread order; it stays empty for dry runs and failures, even when
// a thread failed after some parts were already live.
type Result struct {
	Outcome Outcome
	PostIDs []string
	Err     string
}

// Status renders the outcome as the calendar status string.
func (r Result) Status() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return StatusPosted
	case OutcomeDryRun:
		return StatusDryRun
	default:
		return StatusError
	}
}
