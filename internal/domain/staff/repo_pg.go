package staff

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edhub/edhub/internal/domain/resource"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const userCols = `id, name, role, active, created_at, updated_at`

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM staff_member WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, resource.FromStore(err)
	}
	return &u, nil
}

func (r *repoPG) ListActiveByRoles(ctx context.Context, roles []string) ([]*User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userCols+` FROM staff_member WHERE active AND role = ANY($1) ORDER BY name`, roles)
	if err != nil {
		return nil, resource.FromStore(err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, resource.FromStore(err)
		}
		users = append(users, &u)
	}
	return users, resource.FromStore(rows.Err())
}
