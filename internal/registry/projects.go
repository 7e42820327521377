// internal/registry/projects.go
package registry

import (
	"context"
	"database/sql"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/models"
)

// ProjectStore resolves owning projects for lifecycle checks.
type ProjectStore struct {
	db *sql.DB
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Get returns the project, or NotFound.
func (s *ProjectStore) Get(ctx context.Context, projectID string) (*models.Project, error) {
	var (
		p      models.Project
		status string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, status
		FROM projects
		WHERE id = $1`,
		projectID,
	).Scan(&p.ID, &p.TenantID, &p.Name, &status)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("project", projectID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError(err)
	}
	p.Status = models.ProjectStatus(status)
	return &p, nil
}
