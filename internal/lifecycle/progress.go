// internal/lifecycle/progress.go
package lifecycle

import (
	"time"

	"credit-lifecycle/internal/models"
)

// statusBaseline maps each lifecycle state to its baseline progress value.
var statusBaseline = map[models.Status]int{
	models.StatusDraft:       10,
	models.StatusSubmitted:   40,
	models.StatusUnderReview: 70,
	models.StatusApproved:    90,
	models.StatusIssued:      100,
	models.StatusRejected:    0,
}

// estimatedDaysRemaining is a fixed per-status table, not a statistical
// estimate.
var estimatedDaysRemaining = map[models.Status]int{
	models.StatusDraft:       90,
	models.StatusSubmitted:   60,
	models.StatusUnderReview: 30,
	models.StatusApproved:    14,
	models.StatusIssued:      0,
	models.StatusRejected:    0,
}

// Progress blends the status baseline with the document completion ratio:
// baseline + min(submitted/required, 1) * 20 when required > 0, clamped to
// [0, 100].
func Progress(status models.Status, submittedDocs, requiredDocs int) int {
	score := statusBaseline[status]

	if requiredDocs > 0 {
		ratio := float64(submittedDocs) / float64(requiredDocs)
		if ratio > 1 {
			ratio = 1
		}
		score += int(ratio * 20)
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// IsOverdue reports whether a submitted application has sat in review longer
// than the methodology's review period.
func IsOverdue(app *models.Application, reviewPeriodDays int, now time.Time) bool {
	if app.Status != models.StatusSubmitted || app.SubmissionDate == nil {
		return false
	}
	return daysBetween(*app.SubmissionDate, now) > reviewPeriodDays
}

// EstimatedDaysRemaining returns the fixed per-status estimate.
func EstimatedDaysRemaining(status models.Status) int {
	return estimatedDaysRemaining[status]
}

func daysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}
