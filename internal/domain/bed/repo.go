package bed

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	Update(ctx context.Context, b *Bed) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*Bed, error)
	ListByStatus(ctx context.Context, status Status) ([]*Bed, error)
}
