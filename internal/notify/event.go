// internal/notify/event.go
package notify

// EventType identifies a notification template.
type EventType string

const (
	EventSubmissionConfirmation EventType = "submission_confirmation"
	EventMissingDocuments       EventType = "missing_documents"
	EventStatusChange           EventType = "status_change"
	EventIssuance               EventType = "credits_issued"
	EventApproval               EventType = "application_approved"
	EventNextSteps              EventType = "approval_next_steps"
	EventRejection              EventType = "application_rejected"
	EventResubmissionGuidance   EventType = "resubmission_guidance"
)

// Event is a notification request produced by the lifecycle engine. Delivery
// is fire-and-forget with at-least-once semantics via the outbox relay.
type Event struct {
	Type           EventType              `json:"type"`
	ApplicationID  string                 `json:"applicationId"`
	ProjectID      string                 `json:"projectId"`
	TenantID       string                 `json:"tenantId"`
	RecipientEmail string                 `json:"recipientEmail,omitempty"`
	RecipientPhone string                 `json:"recipientPhone,omitempty"`
	Data           map[string]interface{} `json:"data,omitempty"`
}
