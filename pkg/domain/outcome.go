package domain

// OutcomeKind classifies the result of a function call event.
type OutcomeKind string

const (
	OutcomeTransitioned OutcomeKind = "transitioned" // Moved to a new node; Briefing is set
	OutcomeStayed       OutcomeKind = "stayed"       // Accepted, current node unchanged
	OutcomeRejected     OutcomeKind = "rejected"     // Refused; Reason explains why
	OutcomeTerminated   OutcomeKind = "terminated"   // Session is over
)

// Outcome describes what a single function call did to the session.
type Outcome struct {
	Kind     OutcomeKind    `json:"kind"`
	NodeID   string         `json:"node_id"`
	Function string         `json:"function,omitempty"`
	Result   map[string]any `json:"result,omitempty"`
	Briefing *Briefing      `json:"briefing,omitempty"`
	Reason   string         `json:"reason,omitempty"`

	// Diff is the state change made by the call, computed under the session lock.
	// Transports publish it as a separate event.
	Diff *StateDiff `json:"-"`
}
