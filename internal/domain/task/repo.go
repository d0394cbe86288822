package task

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	Update(ctx context.Context, t *Task) error
	ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]*Task, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Task, error)
}
