// internal/models/project.go
package models

import "time"

// ProjectStatus is the state of the owning project, as reported by the
// project service. Applications cannot be created under a finished project.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

type Project struct {
	ID       string        `json:"id"`
	TenantID string        `json:"tenantId"`
	Name     string        `json:"name"`
	Status   ProjectStatus `json:"status"`
}

// MethodologyRequirements is the read-only slice of a methodology the
// lifecycle engine consumes: limits and evidence expectations.
type MethodologyRequirements struct {
	MethodologyID          string  `json:"methodologyId"`
	MaxUnits               float64 `json:"maxUnits"`
	RequiredDocumentsCount int     `json:"requiredDocumentsCount"`
	ReviewPeriodDays       int     `json:"reviewPeriodDays"`
}

// Deadline is a scheduled milestone tied to a project, created on submission.
type Deadline struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	DueDate   time.Time `json:"dueDate"`
	CreatedAt time.Time `json:"createdAt"`
}
