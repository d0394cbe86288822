package hub

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edhub/edhub/internal/domain/bed"
	"github.com/edhub/edhub/internal/domain/notification"
	"github.com/edhub/edhub/internal/domain/patient"
	"github.com/edhub/edhub/internal/domain/resource"
	"github.com/edhub/edhub/internal/domain/staff"
	"github.com/edhub/edhub/internal/domain/task"
)

// Command is the inbound wire envelope.
type Command struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PatientOps is the slice of the patient service the dispatcher drives.
type PatientOps interface {
	Apply(ctx context.Context, id uuid.UUID, req patient.UpdateRequest) (*patient.Result, error)
}

// BedOps is the slice of the bed service the dispatcher drives.
type BedOps interface {
	ChangeStatus(ctx context.Context, bedID uuid.UUID, target bed.Status) (*bed.Bed, error)
}

// TaskOps is the slice of the task service the dispatcher drives.
type TaskOps interface {
	Apply(ctx context.Context, id uuid.UUID, req task.UpdateRequest) (*task.Task, error)
}

// Notifier is the slice of the notification dispatcher driven over the socket.
type Notifier interface {
	Notify(ctx context.Context, req notification.NotifyRequest) (*notification.Notification, error)
	Alert(ctx context.Context, req notification.AlertRequest) (*notification.AlertResult, error)
}

// Dispatcher routes authenticated commands to domain services and publishes
// the resulting events. One command runs at a time per session; events from a
// single command are published in a fixed order so every shared recipient
// observes them in that order.
type Dispatcher struct {
	router   *Router
	registry *Registry
	patients PatientOps
	beds     BedOps
	tasks    TaskOps
	notifier Notifier
	log      zerolog.Logger
	timeout  time.Duration
}

func NewDispatcher(router *Router, registry *Registry, patients PatientOps, beds BedOps, tasks TaskOps, notifier Notifier, log zerolog.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		router:   router,
		registry: registry,
		patients: patients,
		beds:     beds,
		tasks:    tasks,
		notifier: notifier,
		log:      log.With().Str("component", "dispatcher").Logger(),
		timeout:  timeout,
	}
}

// clinicalAudiences is the default audience for patient and bed state events.
func clinicalAudiences() []Audience {
	return []Audience{ToRole(staff.RoleDoctor), ToRole(staff.RoleNurse)}
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Command string `json:"command,omitempty"`
}

// Handle runs one inbound command to completion. The session must be idle;
// anything else means the client sent a command before authenticating.
func (d *Dispatcher) Handle(ctx context.Context, sess *Session, raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		d.router.SendTo(sess, "error", errorPayload{Code: "bad_request", Message: "malformed command frame"})
		return
	}

	if !sess.BeginCommand() {
		d.fail(sess, cmd.Type, resource.ErrUnauthorized)
		return
	}
	defer sess.EndCommand()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var err error
	switch cmd.Type {
	case "patient_update":
		err = d.handlePatientUpdate(ctx, cmd.Payload)
	case "bed_status_update":
		err = d.handleBedStatusUpdate(ctx, cmd.Payload)
	case "task_update":
		err = d.handleTaskUpdate(ctx, sess, cmd.Payload)
	case "send_notification":
		err = d.handleSendNotification(ctx, cmd.Payload)
	case "emergency_alert":
		err = d.handleEmergencyAlert(ctx, sess, cmd.Payload)
	case "join_room":
		err = d.handleRoomChange(sess, cmd.Payload, d.registry.JoinRoom)
	case "leave_room":
		err = d.handleRoomChange(sess, cmd.Payload, d.registry.LeaveRoom)
	default:
		err = &resource.UnsupportedCommandError{Type: cmd.Type}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = resource.ErrTimeout
	}
	if err != nil {
		d.log.Warn().Err(err).
			Str("command", cmd.Type).
			Stringer("user_id", sess.UserID).
			Msg("command rejected")
		d.fail(sess, cmd.Type, err)
	}
}

func (d *Dispatcher) fail(sess *Session, command string, err error) {
	d.router.SendTo(sess, "error", errorPayload{
		Code:    resource.Code(err),
		Message: err.Error(),
		Command: command,
	})
}

type patientUpdatePayload struct {
	PatientID uuid.UUID `json:"patient_id"`
	patient.UpdateRequest
}

func (d *Dispatcher) handlePatientUpdate(ctx context.Context, raw json.RawMessage) error {
	var p patientUpdatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return resource.ErrConstraintViolation
	}
	if p.PatientID == uuid.Nil {
		return resource.ErrConstraintViolation
	}

	res, err := d.patients.Apply(ctx, p.PatientID, p.UpdateRequest)
	if err != nil {
		return err
	}

	// Bed events precede the patient event so every recipient sees each bed
	// freed or occupied before the patient referencing it.
	if res.Released != nil {
		d.router.Publish("bed_status_updated", res.Released, clinicalAudiences()...)
	}
	if res.Bed != nil {
		d.router.Publish("bed_status_updated", res.Bed, clinicalAudiences()...)
	}
	auds := clinicalAudiences()
	if res.Patient.AssignedDoctorID != nil {
		auds = append(auds, ToUser(*res.Patient.AssignedDoctorID))
	}
	d.router.Publish("patient_updated", res.Patient, auds...)
	return nil
}

type bedStatusPayload struct {
	BedID  uuid.UUID  `json:"bed_id"`
	Status bed.Status `json:"status"`
}

func (d *Dispatcher) handleBedStatusUpdate(ctx context.Context, raw json.RawMessage) error {
	var p bedStatusPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return resource.ErrConstraintViolation
	}
	if p.BedID == uuid.Nil || !bed.ValidStatus(p.Status) {
		return resource.ErrConstraintViolation
	}

	b, err := d.beds.ChangeStatus(ctx, p.BedID, p.Status)
	if err != nil {
		return err
	}
	d.router.Publish("bed_status_updated", b, clinicalAudiences()...)
	return nil
}

type taskUpdatePayload struct {
	TaskID uuid.UUID `json:"task_id"`
	task.UpdateRequest
}

func (d *Dispatcher) handleTaskUpdate(ctx context.Context, sess *Session, raw json.RawMessage) error {
	var p taskUpdatePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return resource.ErrConstraintViolation
	}
	if p.TaskID == uuid.Nil {
		return resource.ErrConstraintViolation
	}
	p.ActorID = sess.UserID

	t, err := d.tasks.Apply(ctx, p.TaskID, p.UpdateRequest)
	if err != nil {
		return err
	}
	d.router.Publish("task_updated", t, ToUser(t.AssigneeID), ToUser(t.CreatorID))
	return nil
}

func (d *Dispatcher) handleSendNotification(ctx context.Context, raw json.RawMessage) error {
	var req notification.NotifyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return resource.ErrConstraintViolation
	}
	_, err := d.notifier.Notify(ctx, req)
	return err
}

func (d *Dispatcher) handleEmergencyAlert(ctx context.Context, sess *Session, raw json.RawMessage) error {
	var req notification.AlertRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return resource.ErrConstraintViolation
	}
	req.SenderID = sess.UserID
	_, err := d.notifier.Alert(ctx, req)
	return err
}

type roomPayload struct {
	Room string `json:"room"`
}

func (d *Dispatcher) handleRoomChange(sess *Session, raw json.RawMessage, op func(*Session, string)) error {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Room == "" {
		return resource.ErrConstraintViolation
	}
	op(sess, p.Room)
	return nil
}
