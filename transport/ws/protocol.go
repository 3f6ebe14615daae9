// Package ws exposes the chat system over one long-lived websocket per
// client. Frames are JSON envelopes; the request/response pairs carry a
// client-chosen ref so errors and acks correlate to the request.
package ws

import (
	"time"

	"github.com/samber/lo"

	"mingle-chat/domain"
	"mingle-chat/domain/event"
	"mingle-chat/errors"
)

// Inbound frame types.
const (
	TypeJoinRoom    = "join_room"
	TypeLeaveRoom   = "leave_room"
	TypeSendMessage = "send_message"
	TypeHistoryPage = "history_page"
)

// Outbound frame types.
const (
	TypeJoinedRoom  = "joined_room"
	TypeLeftRoom    = "left_room"
	TypeNewMessage  = "new_message"
	TypeChatUpdated = "chat_updated"
	TypeHistory     = "history"
	TypeError       = "error"
)

// ClientFrame is everything a client may send after the handshake.
type ClientFrame struct {
	Type    string     `json:"type" validate:"required,oneof=join_room leave_room send_message history_page"`
	Ref     string     `json:"ref,omitempty" validate:"max=64"`
	RoomID  string     `json:"room_id" validate:"required,max=128"`
	Content string     `json:"content,omitempty"`
	Limit   int        `json:"limit,omitempty" validate:"omitempty,gte=1"`
	Before  *time.Time `json:"before,omitempty"`
}

// ServerFrame is everything the server pushes down a connection.
type ServerFrame struct {
	Type        string           `json:"type"`
	Ref         string           `json:"ref,omitempty"`
	RoomID      string           `json:"room_id,omitempty"`
	Room        *RoomPayload     `json:"room,omitempty"`
	Message     *MessagePayload  `json:"message,omitempty"`
	LastMessage *MessagePayload  `json:"last_message,omitempty"`
	Messages    []MessagePayload `json:"messages,omitempty"`
	Code        string           `json:"code,omitempty"`
	Reason      string           `json:"reason,omitempty"`
}

type MessagePayload struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomPayload struct {
	ID           string          `json:"id"`
	Participants []string        `json:"participants"`
	Kind         string          `json:"kind"`
	LastMessage  *MessagePayload `json:"last_message,omitempty"`
}

func toMessagePayload(msg domain.Message) MessagePayload {
	return MessagePayload{
		ID:        msg.ID.String(),
		RoomID:    string(msg.RoomID),
		SenderID:  string(msg.SenderID),
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func toRoomPayload(room domain.Room) RoomPayload {
	payload := RoomPayload{
		ID: string(room.ID),
		Participants: lo.Map(room.Participants, func(id domain.UserID, _ int) string {
			return string(id)
		}),
		Kind: string(room.Kind()),
	}
	if room.LastMessage != nil {
		last := toMessagePayload(*room.LastMessage)
		payload.LastMessage = &last
	}
	return payload
}

// toServerFrame converts a fanned-out domain event into its wire shape.
func toServerFrame(e event.DomainEvent) (ServerFrame, bool) {
	switch evt := e.(type) {
	case event.MessageBroadcast:
		payload := MessagePayload{
			ID:        evt.ID.String(),
			RoomID:    string(evt.RoomID),
			SenderID:  string(evt.SenderID),
			Content:   evt.Content,
			CreatedAt: evt.CreatedAt,
		}
		return ServerFrame{Type: TypeNewMessage, RoomID: string(evt.RoomID), Message: &payload}, true
	case event.RoomTouched:
		payload := MessagePayload{
			ID:        evt.LastMessageID.String(),
			RoomID:    string(evt.RoomID),
			SenderID:  string(evt.LastSenderID),
			Content:   evt.LastContent,
			CreatedAt: evt.LastCreatedAt,
		}
		return ServerFrame{Type: TypeChatUpdated, RoomID: string(evt.RoomID), LastMessage: &payload}, true
	default:
		return ServerFrame{}, false
	}
}

func errorFrame(ref string, err error) ServerFrame {
	return ServerFrame{
		Type:   TypeError,
		Ref:    ref,
		Code:   string(errors.MapToCode(err)),
		Reason: err.Error(),
	}
}
