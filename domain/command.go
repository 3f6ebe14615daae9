package domain

import "time"

type Command interface {
	Room() RoomID
}

// PostMessageCommand is the intent of a connection to send text to a room.
type PostMessageCommand struct {
	RoomID       RoomID
	ConnectionID ConnectionID
	SenderID     UserID
	Content      string
}

func (c PostMessageCommand) Room() RoomID { return c.RoomID }

// GetHistoryCommand asks for one backward page of a room's backlog.
// Before is the sole pagination cursor: when set, only messages strictly
// older than it are returned.
type GetHistoryCommand struct {
	RoomID RoomID
	Limit  int
	Before *time.Time
}

func (c GetHistoryCommand) Room() RoomID { return c.RoomID }
