package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/repository"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

const webhookEventColumns = `id, external_event_id, event_type, payload, status, last_error, created_at, updated_at`

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

func scanWebhookEvent(row pgx.Row) (*model.WebhookEvent, error) {
	e := &model.WebhookEvent{}
	err := row.Scan(&e.ID, &e.ExternalEventID, &e.EventType, &e.Payload, &e.Status,
		&e.LastError, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

// Save inserts the event. The unique constraint on external_event_id is
// the dedup backstop; a violation surfaces as domain.ErrConflict.
func (r *webhookEventRepo) Save(ctx context.Context, tx repository.Tx, e *model.WebhookEvent) error {
	const q = `
INSERT INTO webhook_events (id, external_event_id, event_type, payload, status, last_error, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.ExternalEventID, e.EventType, e.Payload, e.Status,
		e.LastError, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			if isUniqueViolation(err) {
				return domain.ErrConflict
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *webhookEventRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.WebhookEvent, error) {
	const q = `SELECT ` + webhookEventColumns + ` FROM webhook_events WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanWebhookEvent(row)
}

func (r *webhookEventRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.WebhookEvent, error) {
	const q = `SELECT ` + webhookEventColumns + ` FROM webhook_events WHERE external_event_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, externalID)
	if err != nil {
		return nil, err
	}
	return scanWebhookEvent(row)
}

func (r *webhookEventRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.WebhookEventStatus, lastError string) error {
	const q = `UPDATE webhook_events SET status=$2, last_error=NULLIF($3,''), updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, string(status), lastError)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *webhookEventRepo) ListFailedSince(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]*model.WebhookEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT ` + webhookEventColumns + `
  FROM webhook_events
 WHERE status='failed' AND created_at >= $1
 ORDER BY created_at ASC
 LIMIT $2;`

	rows, err := queryRows(ctx, r.pool, tx, q, since, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.WebhookEvent
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *webhookEventRepo) DeleteSettledBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM webhook_events WHERE status IN ('processed','ignored') AND created_at < $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}
