package task

import (
	"time"

	"github.com/google/uuid"
)

// Status is the task lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether s is a closed state. Tasks are never deleted, only
// status-terminated.
func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority orders tasks on the board.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Task maps to the task table.
type Task struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Title           string     `db:"title" json:"title"`
	Type            string     `db:"type" json:"type"`
	Priority        Priority   `db:"priority" json:"priority"`
	Status          Status     `db:"status" json:"status"`
	PatientID       *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	AssigneeID      uuid.UUID  `db:"assignee_id" json:"assignee_id"`
	CreatorID       uuid.UUID  `db:"creator_id" json:"creator_id"`
	DueAt           *time.Time `db:"due_at" json:"due_at,omitempty"`
	RemindAt        *time.Time `db:"remind_at" json:"remind_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy     *uuid.UUID `db:"completed_by" json:"completed_by,omitempty"`
	CompletionNotes *string    `db:"completion_notes" json:"completion_notes,omitempty"`
	CancelReason    *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// IsOverdue is derived at read time, never stored: the due time has passed
// and the task was neither completed nor cancelled.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueAt == nil || Terminal(t.Status) {
		return false
	}
	return now.After(*t.DueAt)
}
