package task

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edhub/edhub/internal/domain/resource"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const taskCols = `id, title, type, priority, status, patient_id, assignee_id, creator_id,
	due_at, remind_at, completed_at, completed_by, completion_notes, cancel_reason,
	created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Type, &t.Priority, &t.Status, &t.PatientID,
		&t.AssigneeID, &t.CreatorID, &t.DueAt, &t.RemindAt, &t.CompletedAt,
		&t.CompletedBy, &t.CompletionNotes, &t.CancelReason, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, resource.FromStore(err)
	}
	return &t, nil
}

func (r *repoPG) Create(ctx context.Context, t *Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO task (id, title, type, priority, status, patient_id, assignee_id,
			creator_id, due_at, remind_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.Title, t.Type, t.Priority, t.Status, t.PatientID, t.AssigneeID,
		t.CreatorID, t.DueAt, t.RemindAt)
	return resource.FromStore(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskCols+` FROM task WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, t *Task) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE task SET title=$2, priority=$3, status=$4, assignee_id=$5, due_at=$6,
			remind_at=$7, completed_at=$8, completed_by=$9, completion_notes=$10,
			cancel_reason=$11, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.Title, t.Priority, t.Status, t.AssigneeID, t.DueAt,
		t.RemindAt, t.CompletedAt, t.CompletedBy, t.CompletionNotes, t.CancelReason)
	if err != nil {
		return resource.FromStore(err)
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]*Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskCols+` FROM task WHERE assignee_id = $1 ORDER BY due_at NULLS LAST, created_at`, assigneeID)
	if err != nil {
		return nil, resource.FromStore(err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Task, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+taskCols+` FROM task WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, resource.FromStore(err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]*Task, error) {
	var items []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, resource.FromStore(rows.Err())
}
