package chat

import (
	"sync"

	"chat-presence/globals"
)

// RoomRegistry is the process-wide set of known room names. Rooms are created
// implicitly on first reference; membership is tracked by the transport, not
// here.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]struct{}
}

// NewRoomRegistry seeds the registry with the given room names.
func NewRoomRegistry(seed []string) *RoomRegistry {
	r := &RoomRegistry{rooms: make(map[string]struct{}, len(seed))}
	for _, name := range seed {
		r.rooms[name] = struct{}{}
	}
	return r
}

// EnsureRoom adds the room to the known set if absent. Idempotent.
func (r *RoomRegistry) EnsureRoom(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[name]; ok {
		return
	}
	r.rooms[name] = struct{}{}
	globals.AppLogger.Info("new room", "room", name)
}

// Has reports whether the room name is known.
func (r *RoomRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[name]
	return ok
}

// Rooms returns the known room names.
func (r *RoomRegistry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.rooms))
	for name := range r.rooms {
		names = append(names, name)
	}
	return names
}
