package patient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edhub/edhub/internal/domain/bed"
	"github.com/edhub/edhub/internal/domain/resource"
	"github.com/edhub/edhub/internal/platform/locking"
)

// Service owns per-patient serialization and the daily queue-number sequence.
type Service struct {
	repo  Repository
	beds  bed.Repository
	locks *locking.KeyMutex
	clock func() time.Time

	// admitMu serializes queue-number allocation across concurrent admissions;
	// the counter is scoped to the calendar day.
	admitMu sync.Mutex
}

func NewService(repo Repository, beds bed.Repository, locks *locking.KeyMutex) *Service {
	return &Service{repo: repo, beds: beds, locks: locks, clock: time.Now}
}

// AdmitRequest carries the admission intake fields.
type AdmitRequest struct {
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	TriageLevel      int        `json:"triage_level"`
	AssignedDoctorID *uuid.UUID `json:"assigned_doctor_id,omitempty"`
	ChiefComplaint   *string    `json:"chief_complaint,omitempty"`
}

// UpdateRequest is the patch shape accepted by the patient_update command.
// Exactly one state-machine operation is derived from it.
type UpdateRequest struct {
	Status           *Status    `json:"status,omitempty"`
	BedID            *uuid.UUID `json:"bed_id,omitempty"`
	TriageLevel      *int       `json:"triage_level,omitempty"`
	AssignedDoctorID *uuid.UUID `json:"assigned_doctor_id,omitempty"`
	ChiefComplaint   *string    `json:"chief_complaint,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
}

// Result is an applied mutation: the patient snapshot plus the bed snapshots
// the operation touched. Bed is the bed the patient now occupies; Released is
// a bed the operation freed, either by closure or by reassignment.
type Result struct {
	Patient  *Patient
	Bed      *bed.Bed
	Released *bed.Bed
}

// queueBase derives the day's starting queue number, e.g. Aug 30 -> 83000, so
// numbers are recognizably scoped to their calendar day.
func queueBase(day time.Time) int {
	return int(day.Month())*10000 + day.Day()*100
}

// Admit creates the patient with the next daily queue number. Allocation is a
// read-then-insert under a single writer, so two concurrent admissions can
// never draw the same number.
func (s *Service) Admit(ctx context.Context, req AdmitRequest) (*Patient, error) {
	if req.FirstName == "" || req.LastName == "" {
		return nil, fmt.Errorf("first_name and last_name are required: %w", resource.ErrConstraintViolation)
	}
	if req.TriageLevel != 0 && (req.TriageLevel < 1 || req.TriageLevel > 5) {
		return nil, fmt.Errorf("triage_level must be between 1 and 5, got %d: %w", req.TriageLevel, resource.ErrConstraintViolation)
	}

	now := s.clock()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	s.admitMu.Lock()
	defer s.admitMu.Unlock()

	max, err := s.repo.MaxQueueNumber(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if max == 0 {
		max = queueBase(dayStart)
	}

	p := NewAdmission(Patient{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		DateOfBirth:      req.DateOfBirth,
		TriageLevel:      req.TriageLevel,
		AssignedDoctorID: req.AssignedDoctorID,
		ChiefComplaint:   req.ChiefComplaint,
	}, max+1, now)

	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Apply routes an update request to exactly one state-machine operation.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Result, error) {
	switch {
	case req.BedID != nil:
		return s.assignBed(ctx, id, *req.BedID)
	case req.Status != nil && Terminal(*req.Status):
		return s.closeTo(ctx, id, *req.Status, notesOrEmpty(req.Notes))
	default:
		return s.applyFields(ctx, id, req)
	}
}

func notesOrEmpty(n *string) string {
	if n == nil {
		return ""
	}
	return *n
}

// assignBed occupies the target bed and releases any bed the patient already
// holds in one logical operation. The held bed's identity is only known after
// loading the patient, so the locks are taken optimistically and re-checked.
func (s *Service) assignBed(ctx context.Context, patientID, bedID uuid.UUID) (*Result, error) {
	for attempt := 0; attempt < 3; attempt++ {
		peek, err := s.repo.GetByID(ctx, patientID)
		if err != nil {
			return nil, err
		}

		keys := []string{"patient:" + patientID.String(), "bed:" + bedID.String()}
		if peek.BedID != nil {
			keys = append(keys, "bed:"+peek.BedID.String())
		}
		unlock := s.locks.LockKeys(keys...)

		res, retry, err := s.assignLocked(ctx, patientID, bedID, peek.BedID)
		unlock()
		if retry {
			continue
		}
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("%w: bed assignment changed during reassign", resource.ErrTimeout)
}

func (s *Service) assignLocked(ctx context.Context, patientID, bedID uuid.UUID, lockedBed *uuid.UUID) (*Result, bool, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, false, err
	}

	// The held bed changed between the peek and taking the locks; retry with
	// the fresh assignment.
	if !sameBedRef(p.BedID, lockedBed) {
		return nil, true, nil
	}

	var held *bed.Bed
	if p.BedID != nil && *p.BedID != bedID {
		held, err = s.beds.GetByID(ctx, *p.BedID)
		if err != nil {
			return nil, false, err
		}
	}
	target, err := s.beds.GetByID(ctx, bedID)
	if err != nil {
		return nil, false, err
	}

	np, released, nb, err := AssignBed(*p, held, *target)
	if err != nil {
		return nil, false, err
	}

	touched := []*bed.Bed{&nb}
	if released != nil {
		touched = append(touched, released)
	}
	if err := s.repo.SavePair(ctx, &np, touched...); err != nil {
		return nil, false, err
	}
	return &Result{Patient: &np, Bed: &nb, Released: released}, false, nil
}

// closeTo terminally closes the patient and releases the held bed in the same
// logical operation. The held bed's identity is only known after loading the
// patient, so the pair lock is taken optimistically and re-checked.
func (s *Service) closeTo(ctx context.Context, patientID uuid.UUID, target Status, notes string) (*Result, error) {
	for attempt := 0; attempt < 3; attempt++ {
		peek, err := s.repo.GetByID(ctx, patientID)
		if err != nil {
			return nil, err
		}

		var unlock func()
		if peek.BedID != nil {
			unlock = s.locks.LockPair("patient:"+patientID.String(), "bed:"+peek.BedID.String())
		} else {
			unlock = s.locks.Lock("patient:" + patientID.String())
		}

		res, retry, err := s.closeLocked(ctx, patientID, peek.BedID, target, notes)
		unlock()
		if retry {
			continue
		}
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	return nil, fmt.Errorf("%w: bed assignment changed during close", resource.ErrTimeout)
}

func (s *Service) closeLocked(ctx context.Context, patientID uuid.UUID, lockedBed *uuid.UUID, target Status, notes string) (*Result, bool, error) {
	p, err := s.repo.GetByID(ctx, patientID)
	if err != nil {
		return nil, false, err
	}

	// The bed changed between the peek and taking the lock; retry with the
	// fresh assignment.
	if !sameBedRef(p.BedID, lockedBed) {
		return nil, true, nil
	}

	var held *bed.Bed
	if p.BedID != nil {
		held, err = s.beds.GetByID(ctx, *p.BedID)
		if err != nil {
			return nil, false, err
		}
	}

	var np Patient
	var released *bed.Bed
	now := s.clock()
	switch target {
	case StatusDischarged:
		np, released, err = Discharge(*p, held, notes, now)
	case StatusTransferred:
		np, released, err = Transfer(*p, held, notes, now)
	case StatusDeceased:
		np, released, err = MarkDeceased(*p, held, notes, now)
	default:
		return nil, false, invalid(*p, "close")
	}
	if err != nil {
		return nil, false, err
	}

	if released != nil {
		if err := s.repo.SavePair(ctx, &np, released); err != nil {
			return nil, false, err
		}
	} else {
		if err := s.repo.Update(ctx, &np); err != nil {
			return nil, false, err
		}
	}
	return &Result{Patient: &np, Released: released}, false, nil
}

func sameBedRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Service) applyFields(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Result, error) {
	unlock := s.locks.Lock("patient:" + id.String())
	defer unlock()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	np := *p
	if req.Status != nil {
		np, err = SetStatus(np, *req.Status)
		if err != nil {
			return nil, err
		}
	}
	if req.TriageLevel != nil {
		if *req.TriageLevel < 1 || *req.TriageLevel > 5 {
			return nil, fmt.Errorf("triage_level must be between 1 and 5, got %d: %w", *req.TriageLevel, resource.ErrConstraintViolation)
		}
		np.TriageLevel = *req.TriageLevel
	}
	if req.AssignedDoctorID != nil {
		np.AssignedDoctorID = req.AssignedDoctorID
	}
	if req.ChiefComplaint != nil {
		np.ChiefComplaint = req.ChiefComplaint
	}
	if req.Notes != nil {
		np.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, &np); err != nil {
		return nil, err
	}
	return &Result{Patient: &np}, nil
}

// Get returns the current snapshot of a patient.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}
