// internal/models/analytics.go
package models

// Analytics is the per-application progress report.
type Analytics struct {
	ApplicationID          string    `json:"applicationId"`
	Status                 Status    `json:"status"`
	Progress               int       `json:"progress"`
	SubmittedDocuments     int       `json:"submittedDocuments"`
	RequiredDocuments      int       `json:"requiredDocuments"`
	Overdue                bool      `json:"overdue"`
	AgeDays                int       `json:"ageDays"`
	EstimatedDaysRemaining int       `json:"estimatedDaysRemaining"`
	NextDeadline           *Deadline `json:"nextDeadline,omitempty"`
}

// DashboardStats aggregates applications under one tenant scope.
type DashboardStats struct {
	Total                 int            `json:"total"`
	ByStatus              map[Status]int `json:"byStatus"`
	ByMethodology         map[string]int `json:"byMethodology"`
	TotalQuantity         float64        `json:"totalQuantity"`
	AverageQuantity       float64        `json:"averageQuantity"`
	AverageProcessingDays float64        `json:"averageProcessingDays"`
	SuccessRate           float64        `json:"successRate"`
	Pending               int            `json:"pending"`
	Overdue               int            `json:"overdue"`
}
