package notification

import (
	"time"

	"github.com/google/uuid"
)

// Status is the per-recipient read state.
type Status string

const (
	StatusUnread    Status = "unread"
	StatusRead      Status = "read"
	StatusDismissed Status = "dismissed"
)

// Type classifies how a notification was produced.
type Type string

const (
	TypeTaskAssigned   Type = "task_assigned"
	TypeTaskReminder   Type = "task_reminder"
	TypePatientUpdate  Type = "patient_update"
	TypeEmergencyAlert Type = "emergency_alert"
	TypeSystem         Type = "system"
)

// Priority mirrors the alert priorities on the wire.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Notification maps to the notification table. One row per recipient.
type Notification struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	TaskID    *uuid.UUID `db:"task_id" json:"task_id,omitempty"`
	PatientID *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Type      Type       `db:"type" json:"type"`
	Priority  Priority   `db:"priority" json:"priority"`
	Title     string     `db:"title" json:"title"`
	Message   string     `db:"message" json:"message"`
	Status    Status     `db:"status" json:"status"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
