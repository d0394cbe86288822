package bed

import (
	"time"

	"github.com/google/uuid"
)

// Status is the bed lifecycle state.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
	StatusCleaning    Status = "cleaning"
	StatusReserved    Status = "reserved"
)

// Class is the acuity class of a bed.
type Class string

const (
	ClassStandard  Class = "standard"
	ClassMonitored Class = "monitored"
	ClassIntensive Class = "intensive"
	ClassIsolation Class = "isolation"
	ClassEmergency Class = "emergency"
)

// Bed maps to the bed table. Mutated only through the transitions in
// machine.go; repositories persist whole snapshots.
type Bed struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	RoomID            uuid.UUID  `db:"room_id" json:"room_id"`
	Number            int        `db:"number" json:"number"`
	Class             Class      `db:"class" json:"class"`
	Status            Status     `db:"status" json:"status"`
	IsAvailable       bool       `db:"is_available" json:"is_available"`
	PriorityWeight    int        `db:"priority_weight" json:"priority_weight"`
	LastCleanedAt     *time.Time `db:"last_cleaned_at" json:"last_cleaned_at,omitempty"`
	NextMaintenanceAt *time.Time `db:"next_maintenance_at" json:"next_maintenance_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidStatus reports whether s is one of the five bed states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusMaintenance, StatusCleaning, StatusReserved:
		return true
	}
	return false
}
