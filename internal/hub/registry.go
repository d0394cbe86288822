package hub

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"
)

const registryShards = 32

// UserRoom is the implicit room every session of a user belongs to.
func UserRoom(userID uuid.UUID) string { return "user:" + userID.String() }

// RoleRoom is the implicit room shared by every session of a role.
func RoleRoom(role string) string { return "role:" + role }

type shard struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Session]struct{}
	sessions map[uuid.UUID]*Session
}

// Registry tracks live sessions and their room memberships. Both the room
// state and the session index are sharded by key, so fan-out to one room or a
// connect storm on one session never contends with the rest.
type Registry struct {
	shards [registryShards]shard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].rooms = make(map[string]map[*Session]struct{})
		r.shards[i].sessions = make(map[uuid.UUID]*Session)
	}
	return r
}

func (r *Registry) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &r.shards[h.Sum32()%registryShards]
}

// Register admits an authenticated session and joins it to its implicit user
// and role rooms. Registering the same session twice is a no-op.
func (r *Registry) Register(s *Session) {
	sh := r.shardFor(s.ID.String())
	sh.mu.Lock()
	if _, ok := sh.sessions[s.ID]; ok {
		sh.mu.Unlock()
		return
	}
	sh.sessions[s.ID] = s
	sh.mu.Unlock()

	r.join(s, UserRoom(s.UserID))
	r.join(s, RoleRoom(s.Role))
}

// Unregister removes the session from every room it joined and closes its
// outbound queue. Idempotent; safe to call from both pumps.
func (r *Registry) Unregister(s *Session) {
	sh := r.shardFor(s.ID.String())
	sh.mu.Lock()
	if _, ok := sh.sessions[s.ID]; !ok {
		sh.mu.Unlock()
		s.Close()
		return
	}
	delete(sh.sessions, s.ID)
	sh.mu.Unlock()

	for _, room := range s.roomSnapshot() {
		r.leave(s, room)
	}
	s.Close()
}

func (r *Registry) registered(s *Session) bool {
	sh := r.shardFor(s.ID.String())
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	_, ok := sh.sessions[s.ID]
	return ok
}

// JoinRoom adds a registered session to a named room.
func (r *Registry) JoinRoom(s *Session, room string) {
	if !r.registered(s) {
		return
	}
	r.join(s, room)
}

// LeaveRoom removes the session from a named room. The implicit user and role
// rooms cannot be left while the session is registered.
func (r *Registry) LeaveRoom(s *Session, room string) {
	if room == UserRoom(s.UserID) || room == RoleRoom(s.Role) {
		return
	}
	r.leave(s, room)
}

func (r *Registry) join(s *Session, room string) {
	sh := r.shardFor(room)
	sh.mu.Lock()
	if sh.rooms[room] == nil {
		sh.rooms[room] = make(map[*Session]struct{})
	}
	sh.rooms[room][s] = struct{}{}
	sh.mu.Unlock()
	s.trackRoom(room)
}

func (r *Registry) leave(s *Session, room string) {
	sh := r.shardFor(room)
	sh.mu.Lock()
	if members, ok := sh.rooms[room]; ok {
		delete(members, s)
		if len(members) == 0 {
			delete(sh.rooms, room)
		}
	}
	sh.mu.Unlock()
	s.forgetRoom(room)
}

// InRoom returns a snapshot of the sessions currently in the room.
func (r *Registry) InRoom(room string) []*Session {
	sh := r.shardFor(room)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	members := sh.rooms[room]
	out := make([]*Session, 0, len(members))
	for s := range members {
		out = append(out, s)
	}
	return out
}

// SessionsForUser returns every live session belonging to the user.
func (r *Registry) SessionsForUser(userID uuid.UUID) []*Session {
	return r.InRoom(UserRoom(userID))
}

// SessionsForRole returns every live session whose user holds the role.
func (r *Registry) SessionsForRole(role string) []*Session {
	return r.InRoom(RoleRoom(role))
}

// AllSessions returns a snapshot of every registered session.
func (r *Registry) AllSessions() []*Session {
	var out []*Session
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for _, s := range sh.sessions {
			out = append(out, s)
		}
		sh.mu.RUnlock()
	}
	return out
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// RoomCount returns the number of sessions in a room.
func (r *Registry) RoomCount(room string) int {
	sh := r.shardFor(room)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return len(sh.rooms[room])
}
