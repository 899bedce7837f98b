package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the room table of one gateway. All methods are safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	conns   map[uuid.UUID]*Conn
	rooms   map[RoomID]map[uuid.UUID]*Conn
	members map[uuid.UUID]map[RoomID]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[uuid.UUID]*Conn),
		rooms:   make(map[RoomID]map[uuid.UUID]*Conn),
		members: make(map[uuid.UUID]map[RoomID]struct{}),
	}
}

// Add registers an admitted connection and joins it to rooms.
func (r *Registry) Add(c *Conn, rooms ...RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c.id] = c
	if r.members[c.id] == nil {
		r.members[c.id] = make(map[RoomID]struct{})
	}
	for _, room := range rooms {
		r.joinLocked(c, room)
	}
}

// Join adds c to room. It reports false when c is not registered or is
// already a member.
func (r *Registry) Join(c *Conn, room RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.id]; !ok {
		return false
	}
	return r.joinLocked(c, room)
}

func (r *Registry) joinLocked(c *Conn, room RoomID) bool {
	if _, ok := r.members[c.id][room]; ok {
		return false
	}
	set := r.rooms[room]
	if set == nil {
		set = make(map[uuid.UUID]*Conn)
		r.rooms[room] = set
	}
	set[c.id] = c
	r.members[c.id][room] = struct{}{}
	return true
}

// Leave removes c from room and reports whether it was a member.
func (r *Registry) Leave(c *Conn, room RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[c.id][room]; !ok {
		return false
	}
	r.leaveLocked(c.id, room)
	return true
}

func (r *Registry) leaveLocked(id uuid.UUID, room RoomID) {
	delete(r.members[id], room)
	if set := r.rooms[room]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(r.rooms, room)
		}
	}
}

// Remove drops c from every room and from the registry. It returns the rooms
// c belonged to.
func (r *Registry) Remove(c *Conn) []RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := make([]RoomID, 0, len(r.members[c.id]))
	for room := range r.members[c.id] {
		rooms = append(rooms, room)
		r.leaveLocked(c.id, room)
	}
	delete(r.members, c.id)
	delete(r.conns, c.id)
	return rooms
}

// Members snapshots the connections in room.
func (r *Registry) Members(room RoomID) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.rooms[room]
	out := make([]*Conn, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// All snapshots every registered connection.
func (r *Registry) All() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// RoomsOf returns the rooms c belongs to.
func (r *Registry) RoomsOf(c *Conn) []RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomID, 0, len(r.members[c.id]))
	for room := range r.members[c.id] {
		out = append(out, room)
	}
	return out
}

// IsMember reports whether c is in room.
func (r *Registry) IsMember(c *Conn, room RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[c.id][room]
	return ok
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// RoomCount returns the number of non-empty rooms.
func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
