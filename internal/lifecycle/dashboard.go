// internal/lifecycle/dashboard.go
package lifecycle

import (
	"context"

	"credit-lifecycle/internal/models"
	"credit-lifecycle/internal/store"
)

// GetDashboard aggregates all applications in a tenant scope into one
// statistics report. Aggregation happens in process over the full list;
// tenants hold at most a few thousand applications so a single pass is
// fine.
func (s *Service) GetDashboard(ctx context.Context, tenantID string) (*models.DashboardStats, error) {
	apps, err := s.apps.List(ctx, store.ListFilter{TenantID: tenantID})
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{
		Total:         len(apps),
		ByStatus:      map[models.Status]int{},
		ByMethodology: map[string]int{},
	}
	for _, st := range models.AllStatuses {
		stats.ByStatus[st] = 0
	}

	now := s.now()
	reviewPeriods := map[string]int{}
	processingDays := 0
	processed := 0
	decided := 0
	approvedOrIssued := 0

	for i := range apps {
		app := &apps[i]

		stats.ByStatus[app.Status]++
		stats.ByMethodology[app.MethodologyID]++
		stats.TotalQuantity += app.Quantity

		switch app.Status {
		case models.StatusSubmitted, models.StatusUnderReview:
			stats.Pending++
		case models.StatusApproved, models.StatusIssued:
			decided++
			approvedOrIssued++
		case models.StatusRejected:
			decided++
		}

		// Rejections also carry a decision date; only successful reviews
		// count toward the processing-time average.
		if (app.Status == models.StatusApproved || app.Status == models.StatusIssued) &&
			app.SubmissionDate != nil && app.ApprovalDate != nil {
			processingDays += daysBetween(*app.SubmissionDate, *app.ApprovalDate)
			processed++
		}

		if IsOverdue(app, s.reviewPeriodFor(ctx, app.MethodologyID, reviewPeriods), now) {
			stats.Overdue++
		}
	}

	if stats.Total > 0 {
		stats.AverageQuantity = stats.TotalQuantity / float64(stats.Total)
	}
	if processed > 0 {
		stats.AverageProcessingDays = float64(processingDays) / float64(processed)
	}
	if decided > 0 {
		stats.SuccessRate = float64(approvedOrIssued) / float64(decided)
	}
	return stats, nil
}

// reviewPeriodFor memoizes methodology review periods for the duration of
// one aggregation pass. Lookup failures fall back to the configured
// default rather than failing the whole dashboard.
func (s *Service) reviewPeriodFor(ctx context.Context, methodologyID string, memo map[string]int) int {
	if days, ok := memo[methodologyID]; ok {
		return days
	}
	days := s.settings.DefaultReviewPeriodDays
	if req, err := s.methodologies.Lookup(ctx, methodologyID); err == nil {
		days = req.ReviewPeriodDays
	} else {
		s.logger.Warn("methodology lookup failed during aggregation", map[string]interface{}{
			"methodologyId": methodologyID,
			"error":         err,
		})
	}
	memo[methodologyID] = days
	return days
}
