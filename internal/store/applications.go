// internal/store/applications.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/models"
	"credit-lifecycle/internal/notify"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// EventEnqueuer writes a notification event within the given transaction.
type EventEnqueuer interface {
	Enqueue(ctx context.Context, tx *sql.Tx, event *notify.Event) error
}

// ApplicationStore persists application records and their status ledger.
// Every mutating operation is a single transaction: the status write, the
// history append and the notification outbox rows commit together, and
// transitions are compare-and-set on the current status so concurrent
// callers cannot both apply conflicting edges.
type ApplicationStore struct {
	db     *sql.DB
	outbox EventEnqueuer
	logger logger.Logger
}

func NewApplicationStore(db *sql.DB, outbox EventEnqueuer, log logger.Logger) *ApplicationStore {
	return &ApplicationStore{
		db:     db,
		outbox: outbox,
		logger: log.WithFields(map[string]interface{}{"component": "application-store"}),
	}
}

const applicationColumns = `
	id, project_id, tenant_id, methodology_id, status, quantity,
	payload, metadata, submission_date, approval_date, issued_date,
	created_at, updated_at`

// Create inserts a new draft application together with its initial ledger
// entry. The partial unique index on (project_id) WHERE status='draft'
// closes the check-then-insert race: a second concurrent create fails here
// with a conflict, not after the fact.
func (s *ApplicationStore) Create(ctx context.Context, app *models.Application, entry models.StatusHistoryEntry) error {
	payloadJSON, metadataJSON, err := marshalDocs(app)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applications (
			id, project_id, tenant_id, methodology_id, status, quantity,
			payload, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		app.ID,
		app.ProjectID,
		app.TenantID,
		app.MethodologyID,
		string(app.Status),
		app.Quantity,
		payloadJSON,
		metadataJSON,
		app.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return apperrors.NewConflictError(
				fmt.Sprintf("project %s already has a draft application", app.ProjectID))
		}
		return apperrors.NewDatabaseInsertFailedError(err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// Get fetches one application by id.
func (s *ApplicationStore) Get(ctx context.Context, id string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)

	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError(err)
	}
	return app, nil
}

// UpdateDraft persists a draft-only patch. The WHERE status='draft' clause
// makes the draft requirement race-free without a separate read.
func (s *ApplicationStore) UpdateDraft(ctx context.Context, app *models.Application) error {
	payloadJSON, metadataJSON, err := marshalDocs(app)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET methodology_id = $2, quantity = $3, payload = $4, metadata = $5, updated_at = $6
		WHERE id = $1 AND status = 'draft'`,
		app.ID,
		app.MethodologyID,
		app.Quantity,
		payloadJSON,
		metadataJSON,
		app.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewValidationError("application can only be updated while in draft status")
	}
	return nil
}

// Transition applies a status change as a compare-and-set against the
// expected current status, appending the ledger entry and enqueueing the
// resulting notification events in the same transaction: a lost race leaves
// no ledger row and no queued notification, and a commit loses neither. The
// caller passes the already-mutated record.
func (s *ApplicationStore) Transition(ctx context.Context, app *models.Application, expectedFrom models.Status, entry models.StatusHistoryEntry, events []*notify.Event) error {
	payloadJSON, metadataJSON, err := marshalDocs(app)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE applications
		SET status = $2, quantity = $3, payload = $4, metadata = $5,
		    submission_date = $6, approval_date = $7, issued_date = $8, updated_at = $9
		WHERE id = $1 AND status = $10`,
		app.ID,
		string(app.Status),
		app.Quantity,
		payloadJSON,
		metadataJSON,
		app.SubmissionDate,
		app.ApprovalDate,
		app.IssuedDate,
		app.UpdatedAt,
		string(expectedFrom),
	)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewConflictError(
			fmt.Sprintf("application %s is no longer in status %s", app.ID, expectedFrom))
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	for _, event := range events {
		if err := s.outbox.Enqueue(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// ListFilter narrows List results. Zero values are ignored.
type ListFilter struct {
	ProjectID     string
	TenantID      string
	MethodologyID string
	Status        models.Status
	Limit         int
	Offset        int
}

// List returns applications matching the filter, newest first.
func (s *ApplicationStore) List(ctx context.Context, filter ListFilter) ([]models.Application, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ProjectID != "" {
		add("project_id = $%d", filter.ProjectID)
	}
	if filter.TenantID != "" {
		add("tenant_id = $%d", filter.TenantID)
	}
	if filter.MethodologyID != "" {
		add("methodology_id = $%d", filter.MethodologyID)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}

	query := `SELECT ` + applicationColumns + ` FROM applications`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError(err)
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseQueryFailedError(err)
		}
		out = append(out, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError(err)
	}
	return out, nil
}

// GetHistory returns the ledger for one application in ascending time order.
func (s *ApplicationStore) GetHistory(ctx context.Context, applicationID string) ([]models.StatusHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_id, from_status, to_status, reason, notes, changed_by, created_at
		FROM application_status_history
		WHERE application_id = $1
		ORDER BY created_at, id`,
		applicationID,
	)
	if err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError(err)
	}
	defer rows.Close()

	var out []models.StatusHistoryEntry
	for rows.Next() {
		var (
			entry models.StatusHistoryEntry
			from  sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.ApplicationID, &from, &entry.ToStatus,
			&entry.Reason, &entry.Notes, &entry.ChangedBy, &entry.CreatedAt); err != nil {
			return nil, apperrors.NewDatabaseQueryFailedError(err)
		}
		if from.Valid {
			status := models.Status(from.String)
			entry.FromStatus = &status
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseQueryFailedError(err)
	}
	return out, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, entry models.StatusHistoryEntry) error {
	var from interface{}
	if entry.FromStatus != nil {
		from = string(*entry.FromStatus)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO application_status_history (application_id, from_status, to_status, reason, notes, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ApplicationID,
		from,
		string(entry.ToStatus),
		entry.Reason,
		entry.Notes,
		entry.ChangedBy,
		entry.CreatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app          models.Application
		payloadJSON  []byte
		metadataJSON []byte
		status       string
	)
	err := row.Scan(
		&app.ID, &app.ProjectID, &app.TenantID, &app.MethodologyID, &status, &app.Quantity,
		&payloadJSON, &metadataJSON, &app.SubmissionDate, &app.ApprovalDate, &app.IssuedDate,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.Status = models.Status(status)

	if len(payloadJSON) > 0 {
		if err := json.Unmarshal(payloadJSON, &app.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &app.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &app, nil
}

func marshalDocs(app *models.Application) (payloadJSON, metadataJSON []byte, err error) {
	payloadJSON, err = json.Marshal(app.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payload: %w", err)
	}
	if app.Metadata == nil {
		metadataJSON = []byte("{}")
	} else {
		metadataJSON, err = json.Marshal(app.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal metadata: %w", err)
		}
	}
	return payloadJSON, metadataJSON, nil
}
