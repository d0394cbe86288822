package bed

import (
	"time"

	"github.com/edhub/edhub/internal/domain/resource"
)

// Transitions are pure: they take a snapshot and return a new snapshot or a
// typed error, never a partially mutated value. Callers persist the result.

// cleaningInterval is how long a bed may go without cleaning before
// NeedsCleaning reports true.
const cleaningInterval = 24 * time.Hour

func invalid(b Bed, op string) error {
	return &resource.InvalidTransitionError{Resource: "bed", Current: string(b.Status), Op: op}
}

// Occupy marks an available or reserved bed occupied.
func Occupy(b Bed) (Bed, error) {
	if b.Status != StatusAvailable && b.Status != StatusReserved {
		return b, invalid(b, "occupy")
	}
	b.Status = StatusOccupied
	b.IsAvailable = false
	return b, nil
}

// Release returns an occupied bed to available.
func Release(b Bed) (Bed, error) {
	if b.Status != StatusOccupied {
		return b, invalid(b, "release")
	}
	b.Status = StatusAvailable
	b.IsAvailable = true
	return b, nil
}

// Reserve holds an available bed for an incoming patient.
func Reserve(b Bed) (Bed, error) {
	if b.Status != StatusAvailable {
		return b, invalid(b, "reserve")
	}
	b.Status = StatusReserved
	b.IsAvailable = false
	return b, nil
}

// StartCleaning takes a bed out of service for cleaning. An occupied bed must
// be released first.
func StartCleaning(b Bed) (Bed, error) {
	if b.Status != StatusAvailable && b.Status != StatusReserved {
		return b, invalid(b, "start_cleaning")
	}
	b.Status = StatusCleaning
	b.IsAvailable = false
	return b, nil
}

// FinishCleaning returns a cleaned bed to service and stamps last_cleaned_at.
func FinishCleaning(b Bed, now time.Time) (Bed, error) {
	if b.Status != StatusCleaning {
		return b, invalid(b, "finish_cleaning")
	}
	b.Status = StatusAvailable
	b.IsAvailable = true
	b.LastCleanedAt = &now
	return b, nil
}

// StartMaintenance takes a bed out of service for maintenance.
func StartMaintenance(b Bed) (Bed, error) {
	if b.Status != StatusAvailable && b.Status != StatusReserved && b.Status != StatusCleaning {
		return b, invalid(b, "start_maintenance")
	}
	b.Status = StatusMaintenance
	b.IsAvailable = false
	return b, nil
}

// FinishMaintenance returns a bed to service and clears the due marker.
func FinishMaintenance(b Bed) (Bed, error) {
	if b.Status != StatusMaintenance {
		return b, invalid(b, "finish_maintenance")
	}
	b.Status = StatusAvailable
	b.IsAvailable = true
	b.NextMaintenanceAt = nil
	return b, nil
}

// NeedsCleaning is a derived predicate, not a transition.
func NeedsCleaning(b Bed, now time.Time) bool {
	if b.LastCleanedAt == nil {
		return true
	}
	return now.Sub(*b.LastCleanedAt) > cleaningInterval
}

// NeedsMaintenance is a derived predicate, not a transition.
func NeedsMaintenance(b Bed, now time.Time) bool {
	return b.NextMaintenanceAt != nil && now.After(*b.NextMaintenanceAt)
}
