package store

import (
	"context"
	"testing"
	"time"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/common/logger"
	"credit-lifecycle/internal/models"
	"credit-lifecycle/internal/notify"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoreWithMock(t *testing.T) (*ApplicationStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	outbox := notify.NewOutbox(db, logger.NewTestLogger(t))
	return NewApplicationStore(db, outbox, logger.NewTestLogger(t)), mock
}

func testApplication() *models.Application {
	now := time.Date(2026, 5, 15, 10, 0, 0, 0, time.UTC)
	return &models.Application{
		ID:            "app-1",
		ProjectID:     "proj-1",
		TenantID:      "tenant-1",
		MethodologyID: "meth-1",
		Status:        models.StatusDraft,
		Quantity:      100,
		Payload:       models.Payload{Description: "test"},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func creationEntry(app *models.Application) models.StatusHistoryEntry {
	return models.StatusHistoryEntry{
		ApplicationID: app.ID,
		ToStatus:      models.StatusDraft,
		Reason:        "application created",
		ChangedBy:     "system",
		CreatedAt:     app.CreatedAt,
	}
}

// ==========================
// Create
// ==========================

func TestApplicationStore_Create_WritesRecordAndLedgerInOneTx(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO application_status_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.Create(context.Background(), app, creationEntry(app))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationStore_Create_UniqueViolationIsConflict(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_applications_draft_per_project"})
	mock.ExpectRollback()

	err := s.Create(context.Background(), app, creationEntry(app))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationStore_Create_HistoryFailureRollsBack(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO application_status_history").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.Create(context.Background(), app, creationEntry(app))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatabaseInsertFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Get
// ==========================

func applicationRows(app *models.Application) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "project_id", "tenant_id", "methodology_id", "status", "quantity",
		"payload", "metadata", "submission_date", "approval_date", "issued_date",
		"created_at", "updated_at",
	}).AddRow(
		app.ID, app.ProjectID, app.TenantID, app.MethodologyID, string(app.Status), app.Quantity,
		[]byte(`{"description":"test"}`), []byte(`{"createdBy":"user-1"}`), nil, nil, nil,
		app.CreatedAt, app.UpdatedAt,
	)
}

func TestApplicationStore_Get(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()

	mock.ExpectQuery("SELECT (.+) FROM applications WHERE id =").
		WithArgs("app-1").
		WillReturnRows(applicationRows(app))

	got, err := s.Get(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", got.ID)
	assert.Equal(t, models.StatusDraft, got.Status)
	assert.Equal(t, "test", got.Payload.Description)
	assert.Equal(t, "user-1", got.Metadata["createdBy"])
}

func TestApplicationStore_Get_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery("SELECT (.+) FROM applications WHERE id =").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.Get(context.Background(), "missing")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

// ==========================
// UpdateDraft
// ==========================

func TestApplicationStore_UpdateDraft_PersistsCallerTimestamp(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()
	app.UpdatedAt = time.Date(2026, 5, 16, 9, 30, 0, 0, time.UTC)

	// The row carries the timestamp the service stamped on the record, so
	// the API response and the persisted row agree.
	mock.ExpectExec("UPDATE applications").
		WithArgs(app.ID, app.MethodologyID, app.Quantity, sqlmock.AnyArg(), sqlmock.AnyArg(), app.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateDraft(context.Background(), app)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationStore_UpdateDraft_ZeroRowsMeansNotDraft(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()

	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateDraft(context.Background(), app)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidationFailed))
}

// ==========================
// Transition
// ==========================

func TestApplicationStore_Transition_AppliesCompareAndSet(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()
	now := time.Now().UTC()
	app.Status = models.StatusSubmitted
	app.SubmissionDate = &now
	from := models.StatusDraft
	entry := models.StatusHistoryEntry{
		ApplicationID: app.ID,
		FromStatus:    &from,
		ToStatus:      models.StatusSubmitted,
		ChangedBy:     "system",
		CreatedAt:     now,
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO application_status_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.Transition(context.Background(), app, models.StatusDraft, entry, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationStore_Transition_EnqueuesEventsInSameTx(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()
	now := time.Now().UTC()
	app.Status = models.StatusSubmitted
	app.SubmissionDate = &now
	from := models.StatusDraft
	entry := models.StatusHistoryEntry{
		ApplicationID: app.ID,
		FromStatus:    &from,
		ToStatus:      models.StatusSubmitted,
		ChangedBy:     "system",
		CreatedAt:     now,
	}
	events := []*notify.Event{
		{Type: notify.EventMissingDocuments, ApplicationID: app.ID},
		{Type: notify.EventSubmissionConfirmation, ApplicationID: app.ID},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO application_status_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notification_outbox").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notification_outbox").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.Transition(context.Background(), app, models.StatusDraft, entry, events)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationStore_Transition_EnqueueFailureRollsBack(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()
	app.Status = models.StatusSubmitted
	from := models.StatusDraft
	entry := models.StatusHistoryEntry{
		ApplicationID: app.ID,
		FromStatus:    &from,
		ToStatus:      models.StatusSubmitted,
		ChangedBy:     "system",
	}
	events := []*notify.Event{{Type: notify.EventSubmissionConfirmation, ApplicationID: app.ID}}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO application_status_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notification_outbox").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.Transition(context.Background(), app, models.StatusDraft, entry, events)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotificationSendFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationStore_Transition_LostRaceIsConflict(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()
	app.Status = models.StatusSubmitted
	from := models.StatusDraft
	entry := models.StatusHistoryEntry{
		ApplicationID: app.ID,
		FromStatus:    &from,
		ToStatus:      models.StatusSubmitted,
		ChangedBy:     "system",
	}

	mock.ExpectBegin()
	// Another writer already moved the row out of draft.
	mock.ExpectExec("UPDATE applications").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.Transition(context.Background(), app, models.StatusDraft, entry, nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// GetHistory
// ==========================

func TestApplicationStore_GetHistory(t *testing.T) {
	s, mock := newStoreWithMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "application_id", "from_status", "to_status", "reason", "notes", "changed_by", "created_at",
	}).
		AddRow(1, "app-1", nil, "draft", "application created", "", "system", now).
		AddRow(2, "app-1", "draft", "submitted", "application submitted", "", "system", now)

	mock.ExpectQuery("SELECT (.+) FROM application_status_history").
		WithArgs("app-1").
		WillReturnRows(rows)

	history, err := s.GetHistory(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Nil(t, history[0].FromStatus)
	require.NotNil(t, history[1].FromStatus)
	assert.Equal(t, models.StatusDraft, *history[1].FromStatus)
	assert.Equal(t, models.StatusSubmitted, history[1].ToStatus)
}

// ==========================
// List
// ==========================

func TestApplicationStore_List_FiltersCompose(t *testing.T) {
	s, mock := newStoreWithMock(t)
	app := testApplication()

	mock.ExpectQuery(`SELECT (.+) FROM applications WHERE tenant_id = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3`).
		WithArgs("tenant-1", "draft", 10).
		WillReturnRows(applicationRows(app))

	out, err := s.List(context.Background(), ListFilter{
		TenantID: "tenant-1",
		Status:   models.StatusDraft,
		Limit:    10,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "app-1", out[0].ID)
}

func TestApplicationStore_List_NoFilters(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery("SELECT (.+) FROM applications ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "project_id", "tenant_id", "methodology_id", "status", "quantity",
			"payload", "metadata", "submission_date", "approval_date", "issued_date",
			"created_at", "updated_at",
		}))

	out, err := s.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, out)
}
