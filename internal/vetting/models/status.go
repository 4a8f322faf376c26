package models

// Status is the workflow state of a vetting application.
type Status string

const (
	StatusUnderReview       Status = "UnderReview"
	StatusInterviewApproved Status = "InterviewApproved"
	StatusFinalReview       Status = "FinalReview"
	StatusApproved          Status = "Approved"
	StatusDenied            Status = "Denied"
	StatusOnHold            Status = "OnHold"
	StatusWithdrawn         Status = "Withdrawn"
)

// statusRank is the explicit total order used for "progressed past X"
// comparisons. Declaration order of the constants is irrelevant.
var statusRank = map[Status]int{
	StatusUnderReview:       1,
	StatusInterviewApproved: 2,
	StatusFinalReview:       3,
	StatusApproved:          4,
	StatusDenied:            5,
	StatusOnHold:            6,
	StatusWithdrawn:         7,
}

// allowedTransitions is the single authority for status changes.
// Terminal statuses have no entry: nothing leaves them.
var allowedTransitions = map[Status][]Status{
	StatusUnderReview:       {StatusInterviewApproved, StatusOnHold, StatusDenied, StatusWithdrawn},
	StatusInterviewApproved: {StatusFinalReview, StatusOnHold, StatusWithdrawn},
	StatusFinalReview:       {StatusApproved, StatusDenied, StatusOnHold, StatusWithdrawn},
	StatusOnHold:            {StatusUnderReview, StatusInterviewApproved, StatusDenied, StatusWithdrawn},
}

// terminalStatuses freeze the application: no transition leaves them,
// including re-requesting the same status.
var terminalStatuses = map[Status]bool{
	StatusApproved:  true,
	StatusDenied:    true,
	StatusWithdrawn: true,
}

// Valid reports whether s is a known workflow status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// Rank returns the status ordering value. Unknown statuses rank 0,
// below every real status.
func (s Status) Rank() int {
	return statusRank[s]
}

// AtLeast reports whether s has progressed at least as far as other.
func (s Status) AtLeast(other Status) bool {
	return s.Rank() >= other.Rank()
}

// IsTerminal reports whether s permits no further transitions.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// RequiresNotes reports whether transitioning to s demands a
// non-empty justification.
func (s Status) RequiresNotes() bool {
	return s == StatusOnHold || s == StatusDenied
}

// AllowedTransitions returns the statuses reachable from current.
// The returned slice is a copy.
func AllowedTransitions(current Status) []Status {
	allowed := allowedTransitions[current]
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransition reports whether current -> requested appears in the
// transition table. Same-state requests are handled separately by the
// workflow engine; this is the raw table lookup.
func CanTransition(current, requested Status) bool {
	for _, s := range allowedTransitions[current] {
		if s == requested {
			return true
		}
	}
	return false
}
