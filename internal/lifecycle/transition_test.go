package lifecycle

import (
	"testing"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition_AllowedEdges(t *testing.T) {
	allowed := []struct {
		from models.Status
		to   models.Status
	}{
		{models.StatusDraft, models.StatusSubmitted},
		{models.StatusDraft, models.StatusRejected},
		{models.StatusSubmitted, models.StatusUnderReview},
		{models.StatusSubmitted, models.StatusRejected},
		{models.StatusUnderReview, models.StatusApproved},
		{models.StatusUnderReview, models.StatusRejected},
		{models.StatusApproved, models.StatusIssued},
	}

	for _, tc := range allowed {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			assert.NoError(t, ValidateTransition(tc.from, tc.to))
		})
	}
}

func TestValidateTransition_RejectsEverythingElse(t *testing.T) {
	allowed := map[models.Status]map[models.Status]bool{}
	for from, tos := range transitionTable {
		allowed[from] = map[models.Status]bool{}
		for _, to := range tos {
			allowed[from][to] = true
		}
	}

	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			if allowed[from][to] {
				continue
			}
			t.Run(string(from)+"_to_"+string(to), func(t *testing.T) {
				err := ValidateTransition(from, to)
				assert.Error(t, err)
				assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTransition))
			})
		}
	}
}

func TestValidateTransition_TerminalStatesHaveNoEdges(t *testing.T) {
	assert.Empty(t, AllowedTransitions(models.StatusRejected))
	assert.Empty(t, AllowedTransitions(models.StatusIssued))
}

func TestValidateTransition_NoSelfLoops(t *testing.T) {
	for _, s := range models.AllStatuses {
		err := ValidateTransition(s, s)
		assert.Error(t, err, "self-loop on %s must be rejected", s)
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	err := ValidateTransition(models.Status("bogus"), models.StatusSubmitted)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTransition))
}
