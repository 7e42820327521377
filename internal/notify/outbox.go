// internal/notify/outbox.go
package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "credit-lifecycle/internal/common/errors"
	"credit-lifecycle/internal/common/logger"

	"github.com/google/uuid"
)

// OutboxRow is a persisted notification event awaiting delivery.
type OutboxRow struct {
	ID        string
	Event     Event
	Attempts  int
	CreatedAt time.Time
}

// Outbox persists notification events so that delivery never blocks or rolls
// back a committed status transition. Rows are enqueued inside the
// transition's own transaction and a relay drains them asynchronously.
type Outbox struct {
	db     *sql.DB
	logger logger.Logger
}

func NewOutbox(db *sql.DB, log logger.Logger) *Outbox {
	return &Outbox{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "notify-outbox"}),
	}
}

// Enqueue writes the event into the outbox within the caller's transaction,
// so the event commits or rolls back together with the status change that
// produced it.
func (o *Outbox) Enqueue(ctx context.Context, tx *sql.Tx, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return apperrors.NewNotificationSendFailedError(string(event.Type), err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notification_outbox (id, event_type, application_id, payload, status, attempts, next_attempt_at, created_at)
		VALUES ($1, $2, $3, $4, 'pending', 0, $5, $5)`,
		uuid.New().String(),
		string(event.Type),
		event.ApplicationID,
		payload,
		time.Now().UTC(),
	)
	if err != nil {
		return apperrors.NewNotificationSendFailedError(string(event.Type), err)
	}
	return nil
}

// FetchPending returns up to limit rows that are due for delivery.
func (o *Outbox) FetchPending(ctx context.Context, limit int) ([]OutboxRow, error) {
	rows, err := o.db.QueryContext(ctx, `
		SELECT id, payload, attempts, created_at
		FROM notification_outbox
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY created_at
		LIMIT $2`,
		time.Now().UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox rows: %w", err)
	}
	defer rows.Close()

	var out []OutboxRow
	for rows.Next() {
		var row OutboxRow
		var payload []byte
		if err := rows.Scan(&row.ID, &payload, &row.Attempts, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		if err := json.Unmarshal(payload, &row.Event); err != nil {
			o.logger.Warn("undecodable outbox payload, marking failed", map[string]interface{}{
				"outboxId": row.ID,
				"error":    err,
			})
			_ = o.markFailed(ctx, row.ID)
			continue
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// MarkDelivered records successful delivery.
func (o *Outbox) MarkDelivered(ctx context.Context, id string) error {
	_, err := o.db.ExecContext(ctx, `
		UPDATE notification_outbox
		SET status = 'delivered', delivered_at = $2
		WHERE id = $1`,
		id, time.Now().UTC(),
	)
	return err
}

// Reschedule bumps the attempt counter and pushes the next attempt out with
// exponential backoff; past maxAttempts the row is marked failed.
func (o *Outbox) Reschedule(ctx context.Context, row OutboxRow, maxAttempts int) error {
	attempts := row.Attempts + 1
	if attempts >= maxAttempts {
		return o.markFailed(ctx, row.ID)
	}

	backoff := time.Duration(1<<uint(attempts)) * time.Second
	_, err := o.db.ExecContext(ctx, `
		UPDATE notification_outbox
		SET attempts = $2, next_attempt_at = $3
		WHERE id = $1`,
		row.ID, attempts, time.Now().UTC().Add(backoff),
	)
	return err
}

// PendingCount reports undelivered rows, used for the outbox gauge.
func (o *Outbox) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := o.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_outbox WHERE status = 'pending'`,
	).Scan(&n)
	return n, err
}

func (o *Outbox) markFailed(ctx context.Context, id string) error {
	_, err := o.db.ExecContext(ctx, `
		UPDATE notification_outbox
		SET status = 'failed'
		WHERE id = $1`,
		id,
	)
	return err
}
