// internal/lifecycle/transition.go
package lifecycle

import (
	"credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/models"
)

// transitionTable is the fixed state graph of the application lifecycle.
// Rejected and Issued are terminal and have no outgoing edges.
var transitionTable = map[models.Status][]models.Status{
	models.StatusDraft:       {models.StatusSubmitted, models.StatusRejected},
	models.StatusSubmitted:   {models.StatusUnderReview, models.StatusRejected},
	models.StatusUnderReview: {models.StatusApproved, models.StatusRejected},
	models.StatusApproved:    {models.StatusIssued},
	models.StatusRejected:    {},
	models.StatusIssued:      {},
}

// ValidateTransition succeeds iff the edge from->to exists in the state
// graph. It has no side effects.
func ValidateTransition(from, to models.Status) error {
	allowed, ok := transitionTable[from]
	if !ok {
		return errors.NewInvalidTransitionError(string(from), string(to))
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return errors.NewInvalidTransitionError(string(from), string(to))
}

// AllowedTransitions returns the target states reachable from the given
// status. The returned slice must not be mutated.
func AllowedTransitions(from models.Status) []models.Status {
	return transitionTable[from]
}
