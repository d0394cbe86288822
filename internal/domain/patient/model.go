package patient

import (
	"time"

	"github.com/google/uuid"
)

// Status is the patient lifecycle state. The last three are terminal.
type Status string

const (
	StatusWaiting        Status = "waiting"
	StatusInTreatment    Status = "in_treatment"
	StatusWaitingResults Status = "waiting_results"
	StatusReadyDischarge Status = "ready_discharge"
	StatusDischarged     Status = "discharged"
	StatusTransferred    Status = "transferred"
	StatusDeceased       Status = "deceased"
)

// Terminal reports whether s is a closed state. Closure is irreversible.
func Terminal(s Status) bool {
	switch s {
	case StatusDischarged, StatusTransferred, StatusDeceased:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the seven patient states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusWaiting, StatusInTreatment, StatusWaitingResults, StatusReadyDischarge,
		StatusDischarged, StatusTransferred, StatusDeceased:
		return true
	}
	return false
}

// Patient maps to the patient table.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	FirstName        string     `db:"first_name" json:"first_name"`
	LastName         string     `db:"last_name" json:"last_name"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	TriageLevel      int        `db:"triage_level" json:"triage_level"`
	AssignedDoctorID *uuid.UUID `db:"assigned_doctor_id" json:"assigned_doctor_id,omitempty"`
	BedID            *uuid.UUID `db:"bed_id" json:"bed_id,omitempty"`
	Status           Status     `db:"status" json:"status"`
	QueueNumber      int        `db:"queue_number" json:"queue_number"`
	AdmittedAt       time.Time  `db:"admitted_at" json:"admitted_at"`
	DischargedAt     *time.Time `db:"discharged_at" json:"discharged_at,omitempty"`
	ChiefComplaint   *string    `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Notes            *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}
