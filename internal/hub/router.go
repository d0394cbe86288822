package hub

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AudienceKind selects how an audience resolves to sessions.
type AudienceKind int

const (
	AudienceUser AudienceKind = iota
	AudienceRole
	AudienceRoom
	AudienceEveryone
)

// Audience names a delivery target. Resolution happens at publish time
// against the registry's current membership.
type Audience struct {
	Kind AudienceKind
	User uuid.UUID
	Role string
	Room string
}

func ToUser(userID uuid.UUID) Audience { return Audience{Kind: AudienceUser, User: userID} }
func ToRole(role string) Audience      { return Audience{Kind: AudienceRole, Role: role} }
func ToRoom(room string) Audience      { return Audience{Kind: AudienceRoom, Room: room} }
func ToEveryone() Audience             { return Audience{Kind: AudienceEveryone} }

// Frame is the outbound wire envelope.
type Frame struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Router fans event frames out to audiences. Frames published by one caller
// in sequence reach each shared recipient in that same sequence: the frame is
// enqueued per session in call order and each session queue is FIFO.
type Router struct {
	reg   *Registry
	log   zerolog.Logger
	clock func() time.Time
}

func NewRouter(reg *Registry, log zerolog.Logger) *Router {
	return &Router{
		reg:   reg,
		log:   log.With().Str("component", "router").Logger(),
		clock: time.Now,
	}
}

// Publish marshals the frame once and enqueues it for every session in the
// union of the audiences. A session matched by several audiences gets the
// frame exactly once. Sessions with a full buffer are skipped, not waited on.
func (r *Router) Publish(event string, payload any, audiences ...Audience) {
	data, err := json.Marshal(Frame{Event: event, Payload: payload, Timestamp: r.clock().UTC()})
	if err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("frame marshal failed")
		return
	}

	seen := make(map[*Session]struct{})
	var dropped int
	for _, aud := range audiences {
		for _, s := range r.resolve(aud) {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			if !s.Queue(data) {
				dropped++
			}
		}
	}
	if dropped > 0 {
		r.log.Warn().Str("event", event).Int("dropped", dropped).Msg("slow sessions skipped")
	}
}

// SendTo delivers a frame to a single session, bypassing audience resolution.
// Used for per-connection frames such as command errors.
func (r *Router) SendTo(s *Session, event string, payload any) {
	data, err := json.Marshal(Frame{Event: event, Payload: payload, Timestamp: r.clock().UTC()})
	if err != nil {
		r.log.Error().Err(err).Str("event", event).Msg("frame marshal failed")
		return
	}
	if !s.Queue(data) {
		r.log.Warn().Str("event", event).Stringer("session_id", s.ID).Msg("session queue full")
	}
}

func (r *Router) resolve(aud Audience) []*Session {
	switch aud.Kind {
	case AudienceUser:
		return r.reg.SessionsForUser(aud.User)
	case AudienceRole:
		return r.reg.SessionsForRole(aud.Role)
	case AudienceRoom:
		return r.reg.InRoom(aud.Room)
	case AudienceEveryone:
		return r.reg.AllSessions()
	}
	return nil
}

// PublishToUser adapts Publish for callers that only know the recipient.
func (r *Router) PublishToUser(userID uuid.UUID, event string, payload any) {
	r.Publish(event, payload, ToUser(userID))
}

// PublishToRole adapts Publish for callers that target a whole role.
func (r *Router) PublishToRole(role string, event string, payload any) {
	r.Publish(event, payload, ToRole(role))
}
