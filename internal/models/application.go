// internal/models/application.go
package models

import "time"

// Status is the lifecycle state of a credit application.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusIssued      Status = "issued"
)

// AllStatuses lists every lifecycle state, in progression order.
var AllStatuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusIssued,
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusIssued:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusIssued
}

// Payload is the structured business data attached to an application.
type Payload struct {
	Description  string                 `json:"description"`
	Location     string                 `json:"location,omitempty"`
	ActivityData map[string]interface{} `json:"activityData,omitempty"`
}

// Application is the record tracking a credit claim through its lifecycle.
type Application struct {
	ID             string                 `json:"id"`
	ProjectID      string                 `json:"projectId"`
	TenantID       string                 `json:"tenantId"`
	MethodologyID  string                 `json:"methodologyId"`
	Status         Status                 `json:"status"`
	Quantity       float64                `json:"quantity"`
	Payload        Payload                `json:"payload"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	SubmissionDate *time.Time             `json:"submissionDate,omitempty"`
	ApprovalDate   *time.Time             `json:"approvalDate,omitempty"`
	IssuedDate     *time.Time             `json:"issuedDate,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// StatusHistoryEntry is one immutable row of the transition ledger.
// FromStatus is nil only for the creation entry.
type StatusHistoryEntry struct {
	ID            int64     `json:"id"`
	ApplicationID string    `json:"applicationId"`
	FromStatus    *Status   `json:"fromStatus,omitempty"`
	ToStatus      Status    `json:"toStatus"`
	Reason        string    `json:"reason,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	ChangedBy     string    `json:"changedBy"`
	CreatedAt     time.Time `json:"createdAt"`
}
