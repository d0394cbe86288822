package bed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edhub/edhub/internal/domain/resource"
	"github.com/edhub/edhub/internal/platform/locking"
)

// Occupancy reports how many patients currently hold a bed. Satisfied by the
// patient repository.
type Occupancy interface {
	CountReferencingBed(ctx context.Context, bedID uuid.UUID) (int, error)
}

// Service serializes mutations per bed and applies the machine transitions
// against the durable store.
type Service struct {
	repo      Repository
	occupancy Occupancy
	locks     *locking.KeyMutex
	clock     func() time.Time
}

func NewService(repo Repository, occupancy Occupancy, locks *locking.KeyMutex) *Service {
	return &Service{repo: repo, occupancy: occupancy, locks: locks, clock: time.Now}
}

// ChangeStatus moves a bed toward the requested status, picking the single
// legal transition out of the current state. Returns the updated snapshot.
func (s *Service) ChangeStatus(ctx context.Context, bedID uuid.UUID, target Status) (*Bed, error) {
	if !ValidStatus(target) {
		return nil, fmt.Errorf("%w: unknown bed status %q", resource.ErrUnsupportedCommand, target)
	}

	unlock := s.locks.Lock("bed:" + bedID.String())
	defer unlock()

	current, err := s.repo.GetByID(ctx, bedID)
	if err != nil {
		return nil, err
	}

	// An occupied bed with a patient still on it can only be freed through
	// the patient flow, never by a direct status update.
	if current.Status == StatusOccupied && target == StatusAvailable {
		n, err := s.occupancy.CountReferencingBed(ctx, bedID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, &resource.BedUnavailableError{BedID: bedID, Status: string(StatusOccupied)}
		}
	}

	next, err := transitionTo(*current, target, s.clock())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

// transitionTo selects the transition that lands on target from b's state.
func transitionTo(b Bed, target Status, now time.Time) (Bed, error) {
	switch target {
	case StatusOccupied:
		return Occupy(b)
	case StatusReserved:
		return Reserve(b)
	case StatusCleaning:
		return StartCleaning(b)
	case StatusMaintenance:
		return StartMaintenance(b)
	case StatusAvailable:
		switch b.Status {
		case StatusOccupied:
			return Release(b)
		case StatusCleaning:
			return FinishCleaning(b, now)
		case StatusMaintenance:
			return FinishMaintenance(b)
		case StatusReserved:
			b.Status = StatusAvailable
			b.IsAvailable = true
			return b, nil
		default:
			return b, invalid(b, "make_available")
		}
	default:
		return b, invalid(b, string(target))
	}
}

// Get returns the current snapshot of a bed.
func (s *Service) Get(ctx context.Context, bedID uuid.UUID) (*Bed, error) {
	return s.repo.GetByID(ctx, bedID)
}
