// Package client is a programmatic chat client: it dials the websocket
// endpoint, keeps the connection alive across drops and rejoins the
// rooms the caller asked for after every reconnect.
package client

import (
	"sync"

	"github.com/samber/lo"

	"mingle-chat/domain"
)

// Tracker separates what the caller wants (desired rooms) from what the
// current connection has (joined rooms). The desired set survives a
// drop, the joined set never does: the server forgets the dead
// connection's subscriptions, so the client must forget them too.
type Tracker struct {
	mu        sync.Mutex
	desired   map[domain.RoomID]struct{}
	joined    map[domain.RoomID]struct{}
	requested map[domain.RoomID]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		desired:   make(map[domain.RoomID]struct{}),
		joined:    make(map[domain.RoomID]struct{}),
		requested: make(map[domain.RoomID]struct{}),
	}
}

// Want marks a room as desired. It reports whether a join must be sent
// on the current connection.
func (t *Tracker) Want(roomID domain.RoomID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.desired[roomID] = struct{}{}
	_, joined := t.joined[roomID]
	return !joined
}

// Joined records a server-acked join.
func (t *Tracker) Joined(roomID domain.RoomID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.joined[roomID] = struct{}{}
}

// Drop removes a room everywhere; an explicit leave means the caller
// does not want it back after a reconnect.
func (t *Tracker) Drop(roomID domain.RoomID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.desired, roomID)
	delete(t.joined, roomID)
	delete(t.requested, roomID)
}

// ConnectionLost clears the joined and requested sets. Desired rooms
// stay; in-flight join requests died with the connection.
func (t *Tracker) ConnectionLost() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.joined = make(map[domain.RoomID]struct{})
	t.requested = make(map[domain.RoomID]struct{})
}

// Pending lists the rooms to rejoin: desired but not joined on the
// current connection.
func (t *Tracker) Pending() []domain.RoomID {
	t.mu.Lock()
	defer t.mu.Unlock()
	pending := make([]domain.RoomID, 0, len(t.desired))
	for roomID := range t.desired {
		if _, ok := t.joined[roomID]; !ok {
			pending = append(pending, roomID)
		}
	}
	return pending
}

// TakePending claims the rooms whose join frame must be sent now:
// desired, not joined, not already requested on this connection. Each
// room is handed out exactly once per connection, so every caller of
// the reconciliation path may issue joins without duplicating them.
func (t *Tracker) TakePending() []domain.RoomID {
	t.mu.Lock()
	defer t.mu.Unlock()
	pending := make([]domain.RoomID, 0, len(t.desired))
	for roomID := range t.desired {
		if _, ok := t.joined[roomID]; ok {
			continue
		}
		if _, ok := t.requested[roomID]; ok {
			continue
		}
		t.requested[roomID] = struct{}{}
		pending = append(pending, roomID)
	}
	return pending
}

// IsJoined reports whether the room is live on the current connection.
func (t *Tracker) IsJoined(roomID domain.RoomID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.joined[roomID]
	return ok
}

// Desired returns a snapshot of the rooms the caller wants.
func (t *Tracker) Desired() []domain.RoomID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo.Keys(t.desired)
}
