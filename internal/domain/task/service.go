package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edhub/edhub/internal/domain/resource"
	"github.com/edhub/edhub/internal/platform/locking"
)

// Service owns the task lifecycle. All status changes go through the
// transition functions in machine.go under a per-task lock.
type Service struct {
	repo  Repository
	locks *locking.KeyMutex
	clock func() time.Time
}

func NewService(repo Repository, locks *locking.KeyMutex) *Service {
	return &Service{repo: repo, locks: locks, clock: time.Now}
}

// CreateRequest carries the fields a caller may set on a new task.
type CreateRequest struct {
	Title      string     `json:"title"`
	Type       string     `json:"type"`
	Priority   Priority   `json:"priority"`
	PatientID  *uuid.UUID `json:"patient_id"`
	AssigneeID uuid.UUID  `json:"assignee_id"`
	CreatorID  uuid.UUID  `json:"creator_id"`
	DueAt      *time.Time `json:"due_at"`
	RemindAt   *time.Time `json:"remind_at"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Task, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required: %w", resource.ErrConstraintViolation)
	}
	if req.AssigneeID == uuid.Nil || req.CreatorID == uuid.Nil {
		return nil, fmt.Errorf("assignee and creator are required: %w", resource.ErrConstraintViolation)
	}
	if req.Priority == "" {
		req.Priority = PriorityMedium
	}
	t := &Task{
		ID:         uuid.New(),
		Title:      req.Title,
		Type:       req.Type,
		Priority:   req.Priority,
		Status:     StatusPending,
		PatientID:  req.PatientID,
		AssigneeID: req.AssigneeID,
		CreatorID:  req.CreatorID,
		DueAt:      req.DueAt,
		RemindAt:   req.RemindAt,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateRequest names at most one lifecycle action plus optional field edits.
type UpdateRequest struct {
	Status          *Status    `json:"status"`
	Priority        *Priority  `json:"priority"`
	AssigneeID      *uuid.UUID `json:"assignee_id"`
	DueAt           *time.Time `json:"due_at"`
	CompletionNotes string     `json:"completion_notes"`
	CancelReason    string     `json:"cancel_reason"`

	// ActorID identifies who performed the update; recorded on completion.
	ActorID uuid.UUID `json:"-"`
}

// Apply loads the task, runs the requested transition on the snapshot and
// persists the result. Concurrent updates to the same task are serialized.
func (s *Service) Apply(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Task, error) {
	unlock := s.locks.Lock("task:" + id.String())
	defer unlock()

	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *cur
	if req.Status != nil {
		// Every requested status runs through the machine, including a repeat
		// of the current one: completing a completed task must be rejected,
		// not absorbed.
		next, err = s.transitionTo(next, *req.Status, req)
		if err != nil {
			return nil, err
		}
	}
	if req.Priority != nil {
		next.Priority = *req.Priority
	}
	if req.AssigneeID != nil {
		if Terminal(next.Status) {
			return nil, &resource.InvalidTransitionError{Resource: "task", Current: string(next.Status), Op: "reassign"}
		}
		next.AssigneeID = *req.AssigneeID
	}
	if req.DueAt != nil {
		next.DueAt = req.DueAt
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) transitionTo(t Task, target Status, req UpdateRequest) (Task, error) {
	switch target {
	case StatusInProgress:
		return Start(t)
	case StatusCompleted:
		return Complete(t, req.ActorID, req.CompletionNotes, s.clock())
	case StatusCancelled:
		return Cancel(t, req.CancelReason)
	case StatusPending:
		return t, &resource.InvalidTransitionError{Resource: "task", Current: string(t.Status), Op: "reopen"}
	default:
		return t, fmt.Errorf("unknown task status %q: %w", target, resource.ErrConstraintViolation)
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]*Task, error) {
	return s.repo.ListByAssignee(ctx, assigneeID)
}
