package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"mingle-chat/domain"
	"mingle-chat/errors"
	"mingle-chat/services"
)

var validate = validator.New()

// Session handles the inbound frames of one authenticated connection.
// Frames are processed in arrival order; rejections are reported back
// on the connection and never terminate it.
type Session struct {
	connID  domain.ConnectionID
	userID  domain.UserID
	service services.IChatService
	sink    *Sink
	log     *slog.Logger
}

func NewSession(connID domain.ConnectionID, userID domain.UserID,
	service services.IChatService, sink *Sink, log *slog.Logger) *Session {
	return &Session{
		connID:  connID,
		userID:  userID,
		service: service,
		sink:    sink,
		log:     log,
	}
}

// HandleRaw decodes one wire frame and dispatches it. A frame that does
// not even parse is answered with a bare validation error.
func (s *Session) HandleRaw(ctx context.Context, data []byte) error {
	var frame ClientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return s.sink.Reply(ctx, errorFrame("", errors.ErrInvalidRequest))
	}
	return s.Handle(ctx, frame)
}

// Handle runs one decoded frame through validation and the service.
func (s *Session) Handle(ctx context.Context, frame ClientFrame) error {
	if err := validate.Struct(frame); err != nil {
		return s.sink.Reply(ctx, errorFrame(frame.Ref, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err)))
	}
	roomID := domain.RoomID(frame.RoomID)

	switch frame.Type {
	case TypeJoinRoom:
		room, err := s.service.Join(ctx, s.connID, s.userID, roomID)
		if err != nil {
			return s.sink.Reply(ctx, errorFrame(frame.Ref, err))
		}
		payload := toRoomPayload(room)
		return s.sink.Reply(ctx, ServerFrame{
			Type:   TypeJoinedRoom,
			Ref:    frame.Ref,
			RoomID: frame.RoomID,
			Room:   &payload,
		})

	case TypeLeaveRoom:
		s.service.Leave(s.connID, roomID)
		return s.sink.Reply(ctx, ServerFrame{
			Type:   TypeLeftRoom,
			Ref:    frame.Ref,
			RoomID: frame.RoomID,
		})

	case TypeSendMessage:
		_, err := s.service.Send(ctx, domain.PostMessageCommand{
			RoomID:       roomID,
			ConnectionID: s.connID,
			SenderID:     s.userID,
			Content:      frame.Content,
		})
		if err != nil {
			return s.sink.Reply(ctx, errorFrame(frame.Ref, err))
		}
		// The confirmation is the broadcast itself, delivered through
		// the sender's own subscription like to any other listener.
		return nil

	case TypeHistoryPage:
		messages, err := s.service.History(ctx, domain.GetHistoryCommand{
			RoomID: roomID,
			Limit:  frame.Limit,
			Before: frame.Before,
		})
		if err != nil {
			return s.sink.Reply(ctx, errorFrame(frame.Ref, err))
		}
		payloads := make([]MessagePayload, 0, len(messages))
		for _, msg := range messages {
			payloads = append(payloads, toMessagePayload(msg))
		}
		return s.sink.Reply(ctx, ServerFrame{
			Type:     TypeHistory,
			Ref:      frame.Ref,
			RoomID:   frame.RoomID,
			Messages: payloads,
		})

	default:
		return s.sink.Reply(ctx, errorFrame(frame.Ref, errors.ErrInvalidRequest))
	}
}
