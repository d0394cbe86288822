package bed

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edhub/edhub/internal/domain/resource"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const bedCols = `id, room_id, number, class, status, is_available, priority_weight,
	last_cleaned_at, next_maintenance_at, created_at, updated_at`

func scanBed(row pgx.Row) (*Bed, error) {
	var b Bed
	err := row.Scan(&b.ID, &b.RoomID, &b.Number, &b.Class, &b.Status, &b.IsAvailable,
		&b.PriorityWeight, &b.LastCleanedAt, &b.NextMaintenanceAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, resource.FromStore(err)
	}
	return &b, nil
}

func (r *repoPG) Create(ctx context.Context, b *Bed) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO bed (id, room_id, number, class, status, is_available, priority_weight,
			last_cleaned_at, next_maintenance_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		b.ID, b.RoomID, b.Number, b.Class, b.Status, b.IsAvailable, b.PriorityWeight,
		b.LastCleanedAt, b.NextMaintenanceAt)
	return resource.FromStore(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return scanBed(r.pool.QueryRow(ctx, `SELECT `+bedCols+` FROM bed WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, b *Bed) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE bed SET status=$2, is_available=$3, priority_weight=$4,
			last_cleaned_at=$5, next_maintenance_at=$6, updated_at=NOW()
		WHERE id = $1`,
		b.ID, b.Status, b.IsAvailable, b.PriorityWeight, b.LastCleanedAt, b.NextMaintenanceAt)
	if err != nil {
		return resource.FromStore(err)
	}
	if tag.RowsAffected() == 0 {
		return resource.ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*Bed, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bedCols+` FROM bed WHERE room_id = $1 ORDER BY number`, roomID)
	if err != nil {
		return nil, resource.FromStore(err)
	}
	defer rows.Close()
	return collect(rows)
}

func (r *repoPG) ListByStatus(ctx context.Context, status Status) ([]*Bed, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+bedCols+` FROM bed WHERE status = $1 ORDER BY priority_weight DESC, number`, status)
	if err != nil {
		return nil, resource.FromStore(err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*Bed, error) {
	var items []*Bed
	for rows.Next() {
		b, err := scanBed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, resource.FromStore(rows.Err())
}
