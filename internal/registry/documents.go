// internal/registry/documents.go
package registry

import (
	"context"
	"database/sql"

	apperrors "credit-lifecycle/internal/common/errors"
)

// DocumentStore exposes the document count consumed by the guards. Upload
// and content handling live in the document service; only the count matters
// here.
type DocumentStore struct {
	db *sql.DB
}

func NewDocumentStore(db *sql.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Count returns the number of documents attached to a project.
func (s *DocumentStore) Count(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_documents WHERE project_id = $1`,
		projectID,
	).Scan(&n)
	if err != nil {
		return 0, apperrors.NewDatabaseQueryFailedError(err)
	}
	return n, nil
}
