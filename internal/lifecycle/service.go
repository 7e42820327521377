// internal/lifecycle/service.go
package lifecycle

import (
	"context"
	"fmt"
	"time"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/common/metrics"
	"credit-lifecycle/internal/models"
	"credit-lifecycle/internal/notify"
	"credit-lifecycle/internal/store"

	"github.com/google/uuid"
)

// Settings are the engine tunables, filled from config.LifecycleConfig.
type Settings struct {
	DefaultReviewPeriodDays int
	SystemActor             string
}

// Service orchestrates the application lifecycle: transition validation,
// guards, the ledger, progress analytics and notification enqueueing.
type Service struct {
	apps            ApplicationRepository
	methodologies   MethodologyLookup
	projects        ProjectLookup
	documents       DocumentCounter
	deadlines       DeadlineManager
	submissionGuard *SubmissionGuard
	approvalGuard   *ApprovalGuard
	settings        Settings
	logger          logger.Logger
	now             func() time.Time
}

func NewService(
	apps ApplicationRepository,
	methodologies MethodologyLookup,
	projects ProjectLookup,
	documents DocumentCounter,
	deadlines DeadlineManager,
	settings Settings,
	log logger.Logger,
) *Service {
	if settings.DefaultReviewPeriodDays == 0 {
		settings.DefaultReviewPeriodDays = 90
	}
	if settings.SystemActor == "" {
		settings.SystemActor = "system"
	}
	return &Service{
		apps:            apps,
		methodologies:   methodologies,
		projects:        projects,
		documents:       documents,
		deadlines:       deadlines,
		submissionGuard: NewSubmissionGuard(methodologies, documents, log),
		approvalGuard:   NewApprovalGuard(methodologies, documents),
		settings:        settings,
		logger:          log.WithFields(map[string]interface{}{"component": "lifecycle-service"}),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// ==========================
// Inputs
// ==========================

type CreateInput struct {
	ProjectID     string                 `json:"projectId"`
	MethodologyID string                 `json:"methodologyId"`
	Quantity      float64                `json:"quantity"`
	Payload       models.Payload         `json:"payload"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

type UpdateInput struct {
	MethodologyID *string                `json:"methodologyId,omitempty"`
	Quantity      *float64               `json:"quantity,omitempty"`
	Payload       *models.Payload        `json:"payload,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

type SubmitInput struct {
	Notes    string     `json:"notes,omitempty"`
	Contact  string     `json:"contact,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

type ApproveInput struct {
	Approved      bool     `json:"approved"`
	ApprovedUnits *float64 `json:"approvedUnits,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	Comments      string   `json:"comments,omitempty"`
}

// ==========================
// Operations
// ==========================

// Create opens a new draft application under a project. The single-draft
// invariant is enforced by the store's unique constraint, not by a
// read-then-insert check.
func (s *Service) Create(ctx context.Context, input CreateInput, actorID string) (*models.Application, error) {
	project, err := s.projects.Get(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status == models.ProjectCompleted || project.Status == models.ProjectCancelled {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("project %s is %s and cannot take new applications", project.ID, project.Status))
	}

	if input.Quantity < 0 {
		return nil, apperrors.NewValidationError("unit quantity must be non-negative")
	}
	if err := ValidatePayload(input.Payload); err != nil {
		return nil, err
	}
	if err := s.validateMethodologyAndUnits(ctx, input.MethodologyID, input.Quantity); err != nil {
		return nil, err
	}

	now := s.now()
	metadata := input.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	if actorID != "" {
		metadata["createdBy"] = actorID
	}

	app := &models.Application{
		ID:            uuid.New().String(),
		ProjectID:     project.ID,
		TenantID:      project.TenantID,
		MethodologyID: input.MethodologyID,
		Status:        models.StatusDraft,
		Quantity:      input.Quantity,
		Payload:       input.Payload,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	entry := models.StatusHistoryEntry{
		ApplicationID: app.ID,
		FromStatus:    nil,
		ToStatus:      models.StatusDraft,
		Reason:        "application created",
		ChangedBy:     s.settings.SystemActor,
		CreatedAt:     now,
	}

	if err := s.apps.Create(ctx, app, entry); err != nil {
		return nil, err
	}

	metrics.TransitionsApplied.WithLabelValues("none", string(models.StatusDraft)).Inc()
	s.logger.Info("application created", map[string]interface{}{
		"applicationId": app.ID,
		"projectId":     app.ProjectID,
		"methodologyId": app.MethodologyID,
	})
	return app, nil
}

// Update patches a draft application in place.
func (s *Service) Update(ctx context.Context, id string, patch UpdateInput) (*models.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.StatusDraft {
		return nil, apperrors.NewValidationError("application can only be updated while in draft status")
	}

	if patch.MethodologyID != nil {
		app.MethodologyID = *patch.MethodologyID
	}
	if patch.Quantity != nil {
		if *patch.Quantity < 0 {
			return nil, apperrors.NewValidationError("unit quantity must be non-negative")
		}
		app.Quantity = *patch.Quantity
	}
	if patch.MethodologyID != nil || patch.Quantity != nil {
		if err := s.validateMethodologyAndUnits(ctx, app.MethodologyID, app.Quantity); err != nil {
			return nil, err
		}
	}
	if patch.Payload != nil {
		if err := ValidatePayload(*patch.Payload); err != nil {
			return nil, err
		}
		app.Payload = *patch.Payload
	}
	if patch.Metadata != nil {
		if app.Metadata == nil {
			app.Metadata = map[string]interface{}{}
		}
		for k, v := range patch.Metadata {
			app.Metadata[k] = v
		}
	}

	app.UpdatedAt = s.now()
	if err := s.apps.UpdateDraft(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Submit moves a draft to Submitted, enqueueing the confirmation (and any
// missing-documents warning) with the transition, then schedules the
// optional review deadline.
func (s *Service) Submit(ctx context.Context, id string, input SubmitInput) (*models.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.StatusDraft {
		metrics.TransitionsRejected.WithLabelValues("wrong_status").Inc()
		return nil, apperrors.NewValidationError("only draft applications can be submitted")
	}

	if app.Metadata == nil {
		app.Metadata = map[string]interface{}{}
	}
	if input.Contact != "" {
		app.Metadata["submissionContact"] = input.Contact
	}

	req, warn, err := s.submissionGuard.Check(ctx, app)
	if err != nil {
		metrics.TransitionsRejected.WithLabelValues("submission_guard").Inc()
		return nil, err
	}

	now := s.now()
	from := app.Status
	app.Status = models.StatusSubmitted
	app.UpdatedAt = now
	if app.SubmissionDate == nil {
		app.SubmissionDate = &now
	}
	if input.Notes != "" {
		app.Metadata["submissionNotes"] = input.Notes
	}
	if input.Deadline != nil {
		app.Metadata["submissionDeadline"] = input.Deadline.Format(time.RFC3339)
	}

	entry := models.StatusHistoryEntry{
		ApplicationID: app.ID,
		FromStatus:    &from,
		ToStatus:      models.StatusSubmitted,
		Reason:        "application submitted",
		Notes:         input.Notes,
		ChangedBy:     s.settings.SystemActor,
		CreatedAt:     now,
	}

	var events []*notify.Event
	if warn != nil {
		events = append(events, warn)
	}
	events = append(events, &notify.Event{
		Type:           notify.EventSubmissionConfirmation,
		ApplicationID:  app.ID,
		ProjectID:      app.ProjectID,
		TenantID:       app.TenantID,
		RecipientEmail: contactEmail(app),
		Data: map[string]interface{}{
			"reviewPeriodDays": req.ReviewPeriodDays,
		},
	})

	if err := s.apps.Transition(ctx, app, from, entry, events); err != nil {
		return nil, err
	}
	metrics.TransitionsApplied.WithLabelValues(string(from), string(app.Status)).Inc()

	// Side effects after the committed transition: a failure here is logged
	// and never unwinds the status change.
	if input.Deadline != nil {
		title := fmt.Sprintf("Review deadline for application %s", app.ID)
		if _, err := s.deadlines.CreateDeadline(ctx, app.ProjectID, title, *input.Deadline); err != nil {
			s.logger.Error("deadline creation failed", map[string]interface{}{
				"applicationId": app.ID,
				"projectId":     app.ProjectID,
				"error":         err,
			})
		}
	}

	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"projectId":     app.ProjectID,
	})
	return app, nil
}

// UpdateStatus is the generic transition entry point.
func (s *Service) UpdateStatus(ctx context.Context, id string, target models.Status, reason, notes string) (*models.Application, error) {
	if !target.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", target))
	}

	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := ValidateTransition(app.Status, target); err != nil {
		metrics.TransitionsRejected.WithLabelValues("invalid_transition").Inc()
		return nil, err
	}
	if target == models.StatusApproved {
		if err := s.approvalGuard.Check(ctx, app); err != nil {
			metrics.TransitionsRejected.WithLabelValues("approval_guard").Inc()
			return nil, err
		}
	}

	now := s.now()
	from := app.Status
	app.Status = target
	app.UpdatedAt = now
	s.stampDate(app, target, now)

	entry := models.StatusHistoryEntry{
		ApplicationID: app.ID,
		FromStatus:    &from,
		ToStatus:      target,
		Reason:        reason,
		Notes:         notes,
		ChangedBy:     s.settings.SystemActor,
		CreatedAt:     now,
	}

	events := []*notify.Event{{
		Type:           notify.EventStatusChange,
		ApplicationID:  app.ID,
		ProjectID:      app.ProjectID,
		TenantID:       app.TenantID,
		RecipientEmail: contactEmail(app),
		Data: map[string]interface{}{
			"fromStatus": string(from),
			"toStatus":   string(target),
			"reason":     reason,
		},
	}}
	if target == models.StatusIssued {
		events = append(events, &notify.Event{
			Type:           notify.EventIssuance,
			ApplicationID:  app.ID,
			ProjectID:      app.ProjectID,
			TenantID:       app.TenantID,
			RecipientEmail: contactEmail(app),
			Data: map[string]interface{}{
				"quantity": app.Quantity,
			},
		})
	}

	if err := s.apps.Transition(ctx, app, from, entry, events); err != nil {
		return nil, err
	}
	metrics.TransitionsApplied.WithLabelValues(string(from), string(target)).Inc()

	return app, nil
}

// Approve resolves a review with an approval or a rejection. It is a
// convenience wrapper over the review outcome: the application must be
// under review (or still sitting in Submitted).
func (s *Service) Approve(ctx context.Context, id string, input ApproveInput) (*models.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.StatusSubmitted && app.Status != models.StatusUnderReview {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("application in status %s cannot be approved or rejected", app.Status))
	}

	now := s.now()
	from := app.Status
	target := models.StatusRejected
	if input.Approved {
		if err := s.approvalGuard.Check(ctx, app); err != nil {
			metrics.TransitionsRejected.WithLabelValues("approval_guard").Inc()
			return nil, err
		}
		target = models.StatusApproved
		if input.ApprovedUnits != nil && *input.ApprovedUnits != app.Quantity {
			app.Quantity = *input.ApprovedUnits
		}
	}

	app.Status = target
	app.UpdatedAt = now
	if app.ApprovalDate == nil {
		app.ApprovalDate = &now
	}

	entry := models.StatusHistoryEntry{
		ApplicationID: app.ID,
		FromStatus:    &from,
		ToStatus:      target,
		Reason:        input.Reason,
		Notes:         input.Comments,
		ChangedBy:     s.settings.SystemActor,
		CreatedAt:     now,
	}

	var events []*notify.Event
	if input.Approved {
		events = append(events, &notify.Event{
			Type:           notify.EventApproval,
			ApplicationID:  app.ID,
			ProjectID:      app.ProjectID,
			TenantID:       app.TenantID,
			RecipientEmail: contactEmail(app),
			Data: map[string]interface{}{
				"quantity": app.Quantity,
				"comments": input.Comments,
			},
		}, &notify.Event{
			Type:           notify.EventNextSteps,
			ApplicationID:  app.ID,
			ProjectID:      app.ProjectID,
			TenantID:       app.TenantID,
			RecipientEmail: contactEmail(app),
		})
	} else {
		events = append(events, &notify.Event{
			Type:           notify.EventRejection,
			ApplicationID:  app.ID,
			ProjectID:      app.ProjectID,
			TenantID:       app.TenantID,
			RecipientEmail: contactEmail(app),
			Data: map[string]interface{}{
				"reason": input.Reason,
			},
		}, &notify.Event{
			Type:           notify.EventResubmissionGuidance,
			ApplicationID:  app.ID,
			ProjectID:      app.ProjectID,
			TenantID:       app.TenantID,
			RecipientEmail: contactEmail(app),
		})
	}

	if err := s.apps.Transition(ctx, app, from, entry, events); err != nil {
		return nil, err
	}
	metrics.TransitionsApplied.WithLabelValues(string(from), string(target)).Inc()

	return app, nil
}

// Remove withdraws a draft application. Records are never hard-deleted:
// the draft moves to Rejected with a deletion marker in metadata.
func (s *Service) Remove(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status != models.StatusDraft {
		return nil, apperrors.NewValidationError("only draft applications can be removed")
	}

	now := s.now()
	from := app.Status
	app.Status = models.StatusRejected
	app.UpdatedAt = now
	if app.Metadata == nil {
		app.Metadata = map[string]interface{}{}
	}
	app.Metadata["deleted"] = true
	app.Metadata["deletedAt"] = now.Format(time.RFC3339)

	entry := models.StatusHistoryEntry{
		ApplicationID: app.ID,
		FromStatus:    &from,
		ToStatus:      models.StatusRejected,
		Reason:        "withdrawn by owner",
		ChangedBy:     s.settings.SystemActor,
		CreatedAt:     now,
	}

	if err := s.apps.Transition(ctx, app, from, entry, nil); err != nil {
		return nil, err
	}
	metrics.TransitionsApplied.WithLabelValues(string(from), string(models.StatusRejected)).Inc()

	s.logger.Info("application withdrawn", map[string]interface{}{
		"applicationId": app.ID,
	})
	return app, nil
}

// Get returns one application.
func (s *Service) Get(ctx context.Context, id string) (*models.Application, error) {
	return s.apps.Get(ctx, id)
}

// List returns applications matching the filter.
func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]models.Application, error) {
	return s.apps.List(ctx, filter)
}

// GetHistory returns the transition ledger for an application.
func (s *Service) GetHistory(ctx context.Context, id string) ([]models.StatusHistoryEntry, error) {
	if _, err := s.apps.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.apps.GetHistory(ctx, id)
}

// GetAnalytics combines progress, document completion, deadlines and age
// into one report.
func (s *Service) GetAnalytics(ctx context.Context, id string) (*models.Analytics, error) {
	app, err := s.apps.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	requiredDocs := 0
	reviewPeriod := s.settings.DefaultReviewPeriodDays
	if req, err := s.methodologies.Lookup(ctx, app.MethodologyID); err == nil {
		requiredDocs = req.RequiredDocumentsCount
		reviewPeriod = req.ReviewPeriodDays
	} else {
		s.logger.Warn("methodology lookup unavailable, using defaults", map[string]interface{}{
			"applicationId": app.ID,
			"methodologyId": app.MethodologyID,
			"error":         err,
		})
	}

	submittedDocs, err := s.documents.Count(ctx, app.ProjectID)
	if err != nil {
		s.logger.Warn("document count unavailable", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err,
		})
		submittedDocs = 0
	}

	nextDeadline, err := s.deadlines.NextDeadline(ctx, app.ProjectID)
	if err != nil {
		s.logger.Warn("next deadline lookup failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err,
		})
	}

	now := s.now()
	return &models.Analytics{
		ApplicationID:          app.ID,
		Status:                 app.Status,
		Progress:               Progress(app.Status, submittedDocs, requiredDocs),
		SubmittedDocuments:     submittedDocs,
		RequiredDocuments:      requiredDocs,
		Overdue:                IsOverdue(app, reviewPeriod, now),
		AgeDays:                daysBetween(app.CreatedAt, now),
		EstimatedDaysRemaining: EstimatedDaysRemaining(app.Status),
		NextDeadline:           nextDeadline,
	}, nil
}

// ==========================
// Internals
// ==========================

// stampDate sets the date field belonging to the target status the first
// time that status is reached. Dates are never cleared or overwritten.
func (s *Service) stampDate(app *models.Application, target models.Status, now time.Time) {
	switch target {
	case models.StatusSubmitted:
		if app.SubmissionDate == nil {
			app.SubmissionDate = &now
		}
	case models.StatusApproved:
		if app.ApprovalDate == nil {
			app.ApprovalDate = &now
		}
	case models.StatusIssued:
		if app.IssuedDate == nil {
			app.IssuedDate = &now
		}
	}
}

func (s *Service) validateMethodologyAndUnits(ctx context.Context, methodologyID string, quantity float64) error {
	req, err := s.methodologies.Lookup(ctx, methodologyID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return apperrors.NewValidationError("methodology " + methodologyID + " does not exist")
		}
		return err
	}
	if req.MaxUnits > 0 && quantity > req.MaxUnits {
		return apperrors.NewValidationError(
			fmt.Sprintf("quantity %.2f exceeds methodology limit of %.2f units", quantity, req.MaxUnits))
	}
	return nil
}
