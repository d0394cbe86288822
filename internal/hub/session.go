// Package hub is the real-time coordination core: it tracks live staff
// sessions, routes resource events to the audiences that need them, and
// dispatches inbound commands to the domain services.
package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the session lifecycle. A session moves strictly forward except for
// the Idle/Processing pair, which alternates once per command.
type State int32

const (
	StateConnecting State = iota
	StateAuthenticated
	StateIdle
	StateProcessing
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Conn abstracts the underlying socket for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session is one live connection for one authenticated user. A user may hold
// several sessions at once; each gets its own outbound queue.
type Session struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Role     string
	JoinedAt time.Time

	conn      Conn
	send      chan []byte
	state     atomic.Int32
	slowDrops atomic.Int64

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

// NewSession wraps an accepted connection. The session starts in the
// connecting state; identity fields are filled in on authentication.
func NewSession(conn Conn, sendBuffer int) *Session {
	return &Session{
		ID:    uuid.New(),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
	}
}

func (s *Session) State() State { return State(s.state.Load()) }

// Authenticate stamps the verified identity and moves the session to the
// authenticated state. Only valid from connecting.
func (s *Session) Authenticate(userID uuid.UUID, role string, now time.Time) bool {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateAuthenticated)) {
		return false
	}
	s.UserID = userID
	s.Role = role
	s.JoinedAt = now
	return true
}

// Settle moves an authenticated session to idle, ready for commands.
func (s *Session) Settle() {
	s.state.CompareAndSwap(int32(StateAuthenticated), int32(StateIdle))
}

// BeginCommand moves idle to processing. A second command racing in on the
// same connection waits its turn in the read loop, so failure here means the
// session is not yet authenticated or already gone.
func (s *Session) BeginCommand() bool {
	return s.state.CompareAndSwap(int32(StateIdle), int32(StateProcessing))
}

// EndCommand returns the session to idle after a command completes.
func (s *Session) EndCommand() {
	s.state.CompareAndSwap(int32(StateProcessing), int32(StateIdle))
}

// Queue enqueues an already-marshaled frame without blocking. A full buffer
// drops the frame rather than stalling the router.
func (s *Session) Queue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		s.slowDrops.Add(1)
		return false
	}
}

// Dropped reports how many frames were discarded because the outbound buffer
// was full.
func (s *Session) Dropped() int64 { return s.slowDrops.Load() }

// Close transitions to disconnected and closes the outbound queue. Safe to
// call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.state.Store(int32(StateDisconnected))
	close(s.send)
}

// Send exposes the outbound queue to the write pump.
func (s *Session) Send() <-chan []byte { return s.send }

func (s *Session) trackRoom(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[key] = struct{}{}
}

func (s *Session) forgetRoom(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, key)
}

// roomSnapshot returns the rooms the session currently belongs to.
func (s *Session) roomSnapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for k := range s.rooms {
		out = append(out, k)
	}
	return out
}
