package staff

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the staff_member table.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Well-known roles. Clients may carry others; these are the ones the hub
// targets directly.
const (
	RoleDoctor = "doctor"
	RoleNurse  = "nurse"
	RoleAdmin  = "admin"
)
