package patient

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/edhub/edhub/internal/domain/bed"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	// MaxQueueNumber returns the highest queue number among patients admitted
	// in [dayStart, dayEnd), or 0 if none.
	MaxQueueNumber(ctx context.Context, dayStart, dayEnd time.Time) (int, error)
	// CountReferencingBed returns how many patients currently hold the bed.
	CountReferencingBed(ctx context.Context, bedID uuid.UUID) (int, error)
	// SavePair persists a patient and the bed snapshots an operation touched
	// atomically. Used by assign-bed and closure so the group can never be
	// half-written; a reassignment passes both the occupied and released bed.
	SavePair(ctx context.Context, p *Patient, beds ...*bed.Bed) error
}
