package patient

import (
	"time"

	"github.com/edhub/edhub/internal/domain/bed"
	"github.com/edhub/edhub/internal/domain/resource"
)

// Transitions are pure snapshot-in, snapshot-out functions. Operations that
// span a patient and a bed return both updated snapshots so the caller can
// persist them as one logical operation.

func invalid(p Patient, op string) error {
	return &resource.InvalidTransitionError{Resource: "patient", Current: string(p.Status), Op: op}
}

// NewAdmission initializes an admitted patient with its daily queue number.
// Queue allocation itself is serialized by the service.
func NewAdmission(p Patient, queueNumber int, now time.Time) Patient {
	p.Status = StatusWaiting
	p.QueueNumber = queueNumber
	p.AdmittedAt = now
	if p.TriageLevel < 1 || p.TriageLevel > 5 {
		p.TriageLevel = 3
	}
	return p
}

// AssignBed links the patient to the bed and occupies it in one step. A bed
// the patient already holds is released in the same operation, so a
// reassignment never strands the old bed as occupied with no owner. The
// target must be assignable at the moment of the call; losing the race
// surfaces as BedUnavailable, not InvalidTransition.
func AssignBed(p Patient, held *bed.Bed, b bed.Bed) (Patient, *bed.Bed, bed.Bed, error) {
	if Terminal(p.Status) {
		return p, held, b, invalid(p, "assign_bed")
	}
	if p.BedID != nil && *p.BedID == b.ID {
		return p, held, b, invalid(p, "assign_bed")
	}
	if !b.IsAvailable && b.Status != bed.StatusReserved {
		return p, held, b, &resource.BedUnavailableError{BedID: b.ID, Status: string(b.Status)}
	}

	var released *bed.Bed
	if held != nil {
		nh, err := bed.Release(*held)
		if err != nil {
			return p, held, b, err
		}
		released = &nh
	}

	nb, err := bed.Occupy(b)
	if err != nil {
		return p, held, b, &resource.BedUnavailableError{BedID: b.ID, Status: string(b.Status)}
	}

	p.BedID = &nb.ID
	if p.Status == StatusWaiting {
		p.Status = StatusInTreatment
	}
	return p, released, nb, nil
}

// close moves the patient to a terminal state, stamps the discharge time, and
// releases the held bed (if any) as part of the same operation.
func closePatient(p Patient, held *bed.Bed, target Status, notes string, now time.Time, op string) (Patient, *bed.Bed, error) {
	if Terminal(p.Status) {
		return p, held, invalid(p, op)
	}

	var released *bed.Bed
	if held != nil {
		nb, err := bed.Release(*held)
		if err != nil {
			return p, held, err
		}
		released = &nb
	}

	p.Status = target
	p.BedID = nil
	p.DischargedAt = &now
	if notes != "" {
		p.Notes = &notes
	}
	return p, released, nil
}

// Discharge terminally closes the patient as discharged.
func Discharge(p Patient, held *bed.Bed, notes string, now time.Time) (Patient, *bed.Bed, error) {
	return closePatient(p, held, StatusDischarged, notes, now, "discharge")
}

// Transfer terminally closes the patient as transferred to another facility.
func Transfer(p Patient, held *bed.Bed, notes string, now time.Time) (Patient, *bed.Bed, error) {
	return closePatient(p, held, StatusTransferred, notes, now, "transfer")
}

// MarkDeceased terminally closes the patient.
func MarkDeceased(p Patient, held *bed.Bed, notes string, now time.Time) (Patient, *bed.Bed, error) {
	return closePatient(p, held, StatusDeceased, notes, now, "mark_deceased")
}

// SetStatus moves the patient between non-terminal states. Terminal targets
// must go through Discharge/Transfer/MarkDeceased so the bed is released.
func SetStatus(p Patient, target Status) (Patient, error) {
	if Terminal(p.Status) {
		return p, invalid(p, "set_status")
	}
	if !ValidStatus(target) || Terminal(target) {
		return p, invalid(p, "set_status")
	}
	p.Status = target
	return p, nil
}
