package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edhub/edhub/internal/domain/resource"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const notifCols = `id, user_id, task_id, patient_id, type, priority, title, message,
	status, read_at, expires_at, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.TaskID, &n.PatientID, &n.Type, &n.Priority,
		&n.Title, &n.Message, &n.Status, &n.ReadAt, &n.ExpiresAt, &n.CreatedAt)
	if err != nil {
		return nil, resource.FromStore(err)
	}
	return &n, nil
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notification (id, user_id, task_id, patient_id, type, priority,
			title, message, status, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		n.ID, n.UserID, n.TaskID, n.PatientID, n.Type, n.Priority,
		n.Title, n.Message, n.Status, n.ExpiresAt)
	return resource.FromStore(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return scanNotification(r.pool.QueryRow(ctx,
		`SELECT `+notifCols+` FROM notification WHERE id = $1`, id))
}

func (r *repoPG) ListUnreadByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notification
		WHERE user_id = $1 AND status = 'unread' AND expires_at > NOW()`, userID).Scan(&total)
	if err != nil {
		return nil, 0, resource.FromStore(err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notifCols+` FROM notification
		WHERE user_id = $1 AND status = 'unread' AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, resource.FromStore(err)
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, resource.FromStore(rows.Err())
}

func (r *repoPG) MarkStatus(ctx context.Context, id, userID uuid.UUID, status Status, readAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification SET status = $3, read_at = $4
		WHERE id = $1 AND user_id = $2`,
		id, userID, status, readAt)
	if err != nil {
		return resource.FromStore(err)
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (r *repoPG) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notification WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, resource.FromStore(err)
	}
	return tag.RowsAffected(), nil
}
