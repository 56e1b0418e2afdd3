// Package dispatch implements the per-message decision diagram: resolve
// the sender, decide between the issue flow and the comment flow, run the
// spam gate, call the ticketing API, and report a terminal Outcome so the
// mailbox processor knows which mailbox to move the message into.
package dispatch

// Kind names the terminal state of one message's trip through the pipeline.
type Kind int

const (
	// Ok means the message became an issue or comment and should move to
	// the mailbox's success route.
	Ok Kind = iota
	// Rejected means processing failed in a way that should move the
	// message to the mailbox's failure route (bad API response, unresolved
	// sender under moveMsgToFailureFolder, spam).
	Rejected
	// Skipped means the message could not be interpreted at all (no usable
	// body or subject) and is left in place for manual triage rather than
	// moved into either destination.
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Ok:
		return "ok"
	case Rejected:
		return "rejected"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the sum-typed result of running one message through the
// pipeline: exactly one of the three Kind values, with a human-readable
// Reason for logs and metrics, and the underlying Err when one occurred.
type Outcome struct {
	Kind   Kind
	Reason string
	Err    error
}

func ok(reason string) Outcome           { return Outcome{Kind: Ok, Reason: reason} }
func rejected(reason string, err error) Outcome { return Outcome{Kind: Rejected, Reason: reason, Err: err} }
func skipped(reason string) Outcome      { return Outcome{Kind: Skipped, Reason: reason} }
