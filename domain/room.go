package domain

import (
	"github.com/samber/lo"
)

// RoomKind is a view property derived from the participant count.
// It is never stored independently so the two facts cannot disagree.
type RoomKind string

const (
	KindDirect RoomKind = "direct"
	KindGroup  RoomKind = "group"
)

// Room is a persistent chat entity with an ordered, unique set of
// participants (size >= 2). LastMessage is a denormalized copy of the
// most recent message, used only for list-view ordering; it is updated
// in the same logical operation that persists a message.
type Room struct {
	ID           RoomID
	Participants []UserID
	LastMessage  *Message
}

// Kind derives the room classification from the participant count.
func (r Room) Kind() RoomKind {
	if len(r.Participants) == 2 {
		return KindDirect
	}
	return KindGroup
}

// HasParticipant reports whether id belongs to the room's participant list.
func (r Room) HasParticipant(id UserID) bool {
	return lo.Contains(r.Participants, id)
}

// Touch moves the denormalized last-message pointer to msg.
func (r *Room) Touch(msg Message) {
	r.LastMessage = &msg
}
