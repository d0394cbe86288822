package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/edhub/edhub/internal/domain/resource"
)

func invalid(t Task, op string) error {
	return &resource.InvalidTransitionError{Resource: "task", Current: string(t.Status), Op: op}
}

// Start moves a pending task into progress.
func Start(t Task) (Task, error) {
	if t.Status != StatusPending {
		return t, invalid(t, "start")
	}
	t.Status = StatusInProgress
	return t, nil
}

// Complete closes the task from any non-terminal state and stamps the
// completion metadata. completed_at is set iff the task is completed.
func Complete(t Task, by uuid.UUID, notes string, now time.Time) (Task, error) {
	if Terminal(t.Status) {
		return t, invalid(t, "complete")
	}
	t.Status = StatusCompleted
	t.CompletedAt = &now
	t.CompletedBy = &by
	if notes != "" {
		t.CompletionNotes = &notes
	}
	return t, nil
}

// Cancel closes the task from any non-terminal state.
func Cancel(t Task, reason string) (Task, error) {
	if Terminal(t.Status) {
		return t, invalid(t, "cancel")
	}
	t.Status = StatusCancelled
	if reason != "" {
		t.CancelReason = &reason
	}
	return t, nil
}
