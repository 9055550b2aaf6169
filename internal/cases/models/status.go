package models

// CaseStatus is the lifecycle position of a case.
type CaseStatus string

const (
	StatusDraft          CaseStatus = "draft"
	StatusInProgress     CaseStatus = "inProgress"
	StatusPendingReview  CaseStatus = "pendingReview"
	StatusAwaitingAction CaseStatus = "awaitingAction"
	StatusClosed         CaseStatus = "closed"
	StatusEscalated      CaseStatus = "escalated"
)

var statusRank = map[CaseStatus]int{
	StatusDraft:          0,
	StatusInProgress:     1,
	StatusPendingReview:  2,
	StatusAwaitingAction: 3,
	StatusClosed:         4,
	StatusEscalated:      4,
}

// forwardTransitions lists the only edges of the lifecycle graph.
var forwardTransitions = map[CaseStatus][]CaseStatus{
	StatusDraft:          {StatusInProgress},
	StatusInProgress:     {StatusPendingReview},
	StatusPendingReview:  {StatusAwaitingAction},
	StatusAwaitingAction: {StatusClosed, StatusEscalated},
}

func (s CaseStatus) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether the status freezes the case.
func (s CaseStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusEscalated
}

// AtLeast reports whether s is at or beyond other in the lifecycle.
func (s CaseStatus) AtLeast(other CaseStatus) bool {
	return statusRank[s] >= statusRank[other]
}

// CanTransitionTo reports whether target is a direct successor of s.
func (s CaseStatus) CanTransitionTo(target CaseStatus) bool {
	for _, next := range forwardTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s CaseStatus) String() string {
	return string(s)
}
