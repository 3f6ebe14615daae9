// Package event defines the events delivered to connected clients.
package event

import (
	"time"

	"github.com/google/uuid"

	"mingle-chat/domain"
)

type DomainEvent interface {
	Room() domain.RoomID
}

// MessageBroadcast carries the full stored message to every connection
// subscribed to the room, the sender's own connection included: clients
// render what was actually persisted, not an optimistic local echo.
type MessageBroadcast struct {
	ID        uuid.UUID
	RoomID    domain.RoomID
	SenderID  domain.UserID
	Content   string
	CreatedAt time.Time
}

func (e MessageBroadcast) Room() domain.RoomID { return e.RoomID }

// RoomTouched is the lightweight notice routed to the private channel of
// participants with no connection subscribed to the room. It lets a chat
// list refresh without shipping full payloads for rooms not being viewed.
type RoomTouched struct {
	RoomID        domain.RoomID
	LastMessageID uuid.UUID
	LastSenderID  domain.UserID
	LastContent   string
	LastCreatedAt time.Time
}

func (e RoomTouched) Room() domain.RoomID { return e.RoomID }
