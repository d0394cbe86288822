package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edhub/edhub/internal/domain/resource"
	"github.com/edhub/edhub/internal/domain/staff"
)

// Publisher pushes an event frame to connected sessions. Satisfied by the
// hub's broadcast router.
type Publisher interface {
	PublishToUser(userID uuid.UUID, event string, payload any)
	PublishToRole(role string, event string, payload any)
}

// Dispatcher persists notifications and fans matching events out to live
// sessions. Persistence is the source of truth; the live push is best effort.
type Dispatcher struct {
	repo      Repository
	staff     staff.Repository
	pub       Publisher
	log       zerolog.Logger
	retention time.Duration
	clock     func() time.Time
}

func NewDispatcher(repo Repository, staffRepo staff.Repository, pub Publisher, log zerolog.Logger, retention time.Duration) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		staff:     staffRepo,
		pub:       pub,
		log:       log.With().Str("component", "notification").Logger(),
		retention: retention,
		clock:     time.Now,
	}
}

// NotifyRequest targets a single recipient.
type NotifyRequest struct {
	UserID    uuid.UUID  `json:"user_id"`
	TaskID    *uuid.UUID `json:"task_id"`
	PatientID *uuid.UUID `json:"patient_id"`
	Type      Type       `json:"type"`
	Priority  Priority   `json:"priority"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
}

// Notify stores one notification row and pushes a new_notification event to
// the recipient's sessions. If the row cannot be stored nothing is pushed.
func (d *Dispatcher) Notify(ctx context.Context, req NotifyRequest) (*Notification, error) {
	if req.UserID == uuid.Nil || req.Title == "" {
		return nil, resource.ErrConstraintViolation
	}
	n := d.build(req.UserID, req)
	if err := d.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	d.pub.PublishToUser(n.UserID, "new_notification", n)
	return n, nil
}

// AlertRequest targets every active member of the named roles. An empty role
// list means the default clinical cohort of doctors and nurses.
type AlertRequest struct {
	Roles     []string   `json:"roles"`
	Priority  Priority   `json:"priority"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	PatientID *uuid.UUID `json:"patient_id"`
	SenderID  uuid.UUID  `json:"-"`
}

// AlertResult reports the fan-out outcome against the cohort snapshot.
type AlertResult struct {
	Recipients int         `json:"recipients"`
	Persisted  int         `json:"persisted"`
	Failed     []uuid.UUID `json:"failed,omitempty"`
}

// Alert snapshots the active members of the requested roles, writes one
// notification row per member, then broadcasts one emergency_alert per role.
// A failed insert for one member never blocks the rest: the loop continues,
// the broadcast still goes out, and the failures are reported as a partial
// delivery error alongside the result.
func (d *Dispatcher) Alert(ctx context.Context, req AlertRequest) (*AlertResult, error) {
	if req.Title == "" {
		return nil, resource.ErrConstraintViolation
	}
	if len(req.Roles) == 0 {
		req.Roles = []string{staff.RoleDoctor, staff.RoleNurse}
	}

	cohort, err := d.staff.ListActiveByRoles(ctx, req.Roles)
	if err != nil {
		return nil, err
	}

	res := &AlertResult{Recipients: len(cohort)}
	for _, member := range cohort {
		n := d.build(member.ID, NotifyRequest{
			PatientID: req.PatientID,
			Type:      TypeEmergencyAlert,
			Priority:  req.Priority,
			Title:     req.Title,
			Message:   req.Message,
		})
		if err := d.repo.Create(ctx, n); err != nil {
			d.log.Warn().Err(err).
				Stringer("user_id", member.ID).
				Str("title", req.Title).
				Msg("alert notification not persisted")
			res.Failed = append(res.Failed, member.ID)
			continue
		}
		res.Persisted++
	}

	payload := map[string]any{
		"title":     req.Title,
		"message":   req.Message,
		"priority":  req.Priority,
		"sender_id": req.SenderID,
		"sent_at":   d.clock().UTC(),
	}
	if req.PatientID != nil {
		payload["patient_id"] = req.PatientID
	}
	for _, role := range req.Roles {
		d.pub.PublishToRole(role, "emergency_alert", payload)
	}

	if len(res.Failed) > 0 {
		return res, &resource.PartialDeliveryError{Failed: res.Failed}
	}
	return res, nil
}

// MarkRead flips a recipient's own notification to read.
func (d *Dispatcher) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	now := d.clock()
	return d.repo.MarkStatus(ctx, id, userID, StatusRead, &now)
}

// MarkDismissed hides a notification without marking it read.
func (d *Dispatcher) MarkDismissed(ctx context.Context, id, userID uuid.UUID) error {
	return d.repo.MarkStatus(ctx, id, userID, StatusDismissed, nil)
}

func (d *Dispatcher) ListUnread(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, int, error) {
	return d.repo.ListUnreadByUser(ctx, userID, limit, offset)
}

func (d *Dispatcher) build(userID uuid.UUID, req NotifyRequest) *Notification {
	now := d.clock()
	typ := req.Type
	if typ == "" {
		typ = TypeSystem
	}
	prio := req.Priority
	if prio == "" {
		prio = PriorityNormal
	}
	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		TaskID:    req.TaskID,
		PatientID: req.PatientID,
		Type:      typ,
		Priority:  prio,
		Title:     req.Title,
		Message:   req.Message,
		Status:    StatusUnread,
		ExpiresAt: now.Add(d.retention),
		CreatedAt: now,
	}
}
