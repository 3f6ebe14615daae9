// Package runtime owns the live, process-local state of the server:
// which connections exist, which rooms they are listening to, and the
// pipeline that moves a message from a sender to every listener.
package runtime

import (
	"sync"

	"mingle-chat/contract"
	"mingle-chat/domain"
)

type connSet map[domain.ConnectionID]struct{}

// Registry maps rooms to the connections currently subscribed and back.
// It is a cache of "who is currently listening", rebuilt purely from
// explicit join requests; the durable participant list always comes
// from the room repository. Subscription granularity is per-connection:
// each device joins on its own.
type Registry struct {
	mu        sync.RWMutex
	sinks     map[domain.ConnectionID]contract.EventSink
	users     map[domain.ConnectionID]domain.UserID
	roomConns map[domain.RoomID]connSet
	connRooms map[domain.ConnectionID]map[domain.RoomID]struct{}
	userConns map[domain.UserID]connSet
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:     make(map[domain.ConnectionID]contract.EventSink),
		users:     make(map[domain.ConnectionID]domain.UserID),
		roomConns: make(map[domain.RoomID]connSet),
		connRooms: make(map[domain.ConnectionID]map[domain.RoomID]struct{}),
		userConns: make(map[domain.UserID]connSet),
	}
}

// Register records an authenticated connection and its private channel.
// It happens once, right after the handshake succeeds.
func (r *Registry) Register(connID domain.ConnectionID, userID domain.UserID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks[connID] = sink
	r.users[connID] = userID
	if _, ok := r.userConns[userID]; !ok {
		r.userConns[userID] = make(connSet)
	}
	r.userConns[userID][connID] = struct{}{}
}

// Unregister tears down every membership entry of a connection.
// It is cheap and idempotent; calling it for an unknown id is a no-op.
func (r *Registry) Unregister(connID domain.ConnectionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for roomID := range r.connRooms[connID] {
		r.removeFromRoom(connID, roomID)
	}
	delete(r.connRooms, connID)
	delete(r.sinks, connID)

	if userID, ok := r.users[connID]; ok {
		if conns, ok := r.userConns[userID]; ok {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(r.userConns, userID)
			}
		}
		delete(r.users, connID)
	}
}

// Subscribe adds a connection under a room. The caller has already
// re-checked the participant list against the room repository.
func (r *Registry) Subscribe(connID domain.ConnectionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sinks[connID]; !ok {
		// Unknown connection, nothing to attach the membership to.
		return
	}
	if _, ok := r.roomConns[roomID]; !ok {
		r.roomConns[roomID] = make(connSet)
	}
	r.roomConns[roomID][connID] = struct{}{}

	if _, ok := r.connRooms[connID]; !ok {
		r.connRooms[connID] = make(map[domain.RoomID]struct{})
	}
	r.connRooms[connID][roomID] = struct{}{}
}

// Unsubscribe removes one membership entry. Idempotent.
func (r *Registry) Unsubscribe(connID domain.ConnectionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeFromRoom(connID, roomID)
	if rooms, ok := r.connRooms[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.connRooms, connID)
		}
	}
}

func (r *Registry) removeFromRoom(connID domain.ConnectionID, roomID domain.RoomID) {
	if conns, ok := r.roomConns[roomID]; ok {
		delete(conns, connID)
		// No empty sets left behind, rooms come and go constantly.
		if len(conns) == 0 {
			delete(r.roomConns, roomID)
		}
	}
}

// IsSubscribed reports whether a connection has joined a room.
func (r *Registry) IsSubscribed(connID domain.ConnectionID, roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.roomConns[roomID][connID]
	return ok
}

// SinksForRoom resolves the delivery endpoints of every connection
// currently subscribed to a room.
func (r *Registry) SinksForRoom(roomID domain.RoomID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.roomConns[roomID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(conns))
	for connID := range conns {
		if sink, exists := r.sinks[connID]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// SinksForUser resolves the private channels of every live connection a
// user holds, across all their devices.
func (r *Registry) SinksForUser(userID domain.UserID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.userConns[userID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(conns))
	for connID := range conns {
		if sink, exists := r.sinks[connID]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// HasUserInRoom reports whether any of the user's connections is
// subscribed to the room. The pipeline uses it to suppress the
// lightweight notice for users already receiving the full message.
func (r *Registry) HasUserInRoom(userID domain.UserID, roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns, ok := r.roomConns[roomID]
	if !ok {
		return false
	}
	for connID := range conns {
		if r.users[connID] == userID {
			return true
		}
	}
	return false
}

// Counts returns the number of live connections and non-empty rooms,
// used by the stats worker.
func (r *Registry) Counts() (connections, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks), len(r.roomConns)
}
