// internal/lifecycle/guards.go
package lifecycle

import (
	"context"
	"strings"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/models"
	"credit-lifecycle/internal/notify"
)

// SubmissionGuard holds the preconditions of the Draft -> Submitted edge.
//
// Missing documents do not block submission: the guard hands back a warning
// event for the caller to enqueue alongside the transition and lets it
// proceed. The approval guard is the hard check for the same condition; the
// asymmetry is deliberate policy (early submission allowed, completeness
// enforced before approval).
type SubmissionGuard struct {
	methodologies MethodologyLookup
	documents     DocumentCounter
	logger        logger.Logger
}

func NewSubmissionGuard(methodologies MethodologyLookup, documents DocumentCounter, log logger.Logger) *SubmissionGuard {
	return &SubmissionGuard{
		methodologies: methodologies,
		documents:     documents,
		logger:        log.WithFields(map[string]interface{}{"component": "submission-guard"}),
	}
}

// Check validates the application for submission. It returns the resolved
// methodology requirements for reuse by the caller, plus a missing-documents
// warning event when the project's documentation is incomplete (nil
// otherwise). The event is not dispatched here so the caller can commit it
// with the transition itself.
func (g *SubmissionGuard) Check(ctx context.Context, app *models.Application) (*models.MethodologyRequirements, *notify.Event, error) {
	if app.Quantity < 1 {
		return nil, nil, apperrors.NewValidationError("unit quantity must be at least 1")
	}
	if strings.TrimSpace(app.Payload.Description) == "" {
		return nil, nil, apperrors.NewValidationError("payload description is required")
	}

	req, err := g.methodologies.Lookup(ctx, app.MethodologyID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return nil, nil, apperrors.NewValidationError("methodology " + app.MethodologyID + " does not exist")
		}
		return nil, nil, err
	}

	count, err := g.documents.Count(ctx, app.ProjectID)
	if err != nil {
		return nil, nil, err
	}

	var warn *notify.Event
	if count < req.RequiredDocumentsCount {
		g.logger.Warn("submitting with incomplete documentation", map[string]interface{}{
			"applicationId":      app.ID,
			"submittedDocuments": count,
			"requiredDocuments":  req.RequiredDocumentsCount,
		})
		warn = &notify.Event{
			Type:           notify.EventMissingDocuments,
			ApplicationID:  app.ID,
			ProjectID:      app.ProjectID,
			TenantID:       app.TenantID,
			RecipientEmail: contactEmail(app),
			Data: map[string]interface{}{
				"submittedDocuments": count,
				"requiredDocuments":  req.RequiredDocumentsCount,
			},
		}
	}

	return req, warn, nil
}

// ApprovalGuard holds the preconditions of any transition targeting
// Approved. Unlike submission, incomplete documentation is a hard failure
// here.
type ApprovalGuard struct {
	methodologies MethodologyLookup
	documents     DocumentCounter
}

func NewApprovalGuard(methodologies MethodologyLookup, documents DocumentCounter) *ApprovalGuard {
	return &ApprovalGuard{methodologies: methodologies, documents: documents}
}

func (g *ApprovalGuard) Check(ctx context.Context, app *models.Application) error {
	if app.SubmissionDate == nil {
		return apperrors.NewValidationError("application must be submitted first")
	}

	req, err := g.methodologies.Lookup(ctx, app.MethodologyID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return apperrors.NewValidationError("methodology " + app.MethodologyID + " does not exist")
		}
		return err
	}

	count, err := g.documents.Count(ctx, app.ProjectID)
	if err != nil {
		return err
	}
	if count < req.RequiredDocumentsCount {
		return apperrors.NewIncompleteDocumentationError(count, req.RequiredDocumentsCount)
	}
	return nil
}

// contactEmail pulls the submission contact from the metadata bag, if one
// was recorded.
func contactEmail(app *models.Application) string {
	if app.Metadata == nil {
		return ""
	}
	if v, ok := app.Metadata["submissionContact"].(string); ok {
		return v
	}
	if v, ok := app.Metadata["contactEmail"].(string); ok {
		return v
	}
	return ""
}
