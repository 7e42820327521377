// internal/schedule/deadlines.go
package schedule

import (
	"context"
	"database/sql"
	"time"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/models"

	"github.com/google/uuid"
)

// DeadlineScheduler manages review deadlines tied to projects.
type DeadlineScheduler struct {
	db     *sql.DB
	logger logger.Logger
}

func NewDeadlineScheduler(db *sql.DB, log logger.Logger) *DeadlineScheduler {
	return &DeadlineScheduler{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "deadline-scheduler"}),
	}
}

// CreateDeadline records one deadline for a project and returns its id.
func (s *DeadlineScheduler) CreateDeadline(ctx context.Context, projectID, title string, date time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_deadlines (id, project_id, title, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, projectID, title, date, time.Now().UTC(),
	)
	if err != nil {
		return "", apperrors.NewDatabaseInsertFailedError(err)
	}

	s.logger.Info("deadline created", map[string]interface{}{
		"deadlineId": id,
		"projectId":  projectID,
		"dueDate":    date,
	})
	return id, nil
}

// NextDeadline returns the earliest future deadline for a project, or nil
// when none is scheduled.
func (s *DeadlineScheduler) NextDeadline(ctx context.Context, projectID string) (*models.Deadline, error) {
	var d models.Deadline
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, title, due_date, created_at
		FROM project_deadlines
		WHERE project_id = $1 AND due_date >= $2
		ORDER BY due_date
		LIMIT 1`,
		projectID, time.Now().UTC(),
	).Scan(&d.ID, &d.ProjectID, &d.Title, &d.DueDate, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError(err)
	}
	return &d, nil
}
