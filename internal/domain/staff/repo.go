package staff

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// ListActiveByRoles returns the active members of the given roles at the
	// moment of the call. Callers treating this as a cohort snapshot must not
	// re-query mid-fan-out.
	ListActiveByRoles(ctx context.Context, roles []string) ([]*User, error)
}
