package runtime

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"mingle-chat/contract"
	"mingle-chat/domain"
	"mingle-chat/domain/event"
	"mingle-chat/errors"
	"mingle-chat/moderation"
	"mingle-chat/observability"
	"mingle-chat/repositories"
)

const (
	// MaxHistoryPage bounds a single history page regardless of what the
	// caller requests.
	MaxHistoryPage     = 200
	defaultHistoryPage = 50
)

// Hub runs the message pipeline: validate, moderate, persist, fan out,
// and notify participants who are not currently listening to the room.
// Persist + pointer update + broadcast are serialized per room so that
// delivery order matches persistence completion order.
type Hub struct {
	log       *slog.Logger
	registry  contract.IRegistry
	rooms     repositories.IRoomRepository
	messages  repositories.IMessageRepository
	moderator *moderation.Moderator
	monitor   *observability.Monitor

	mu        sync.Mutex
	roomLocks map[domain.RoomID]*sync.Mutex
}

func NewHub(log *slog.Logger, registry contract.IRegistry,
	rooms repositories.IRoomRepository, messages repositories.IMessageRepository,
	moderator *moderation.Moderator, monitor *observability.Monitor) *Hub {
	return &Hub{
		log:       log,
		registry:  registry,
		rooms:     rooms,
		messages:  messages,
		moderator: moderator,
		monitor:   monitor,
		roomLocks: make(map[domain.RoomID]*sync.Mutex),
	}
}

// Join authorizes a subscription request. The participant list is
// re-read from the room repository on every join, never cached: it can
// change between two connections of the same user.
func (h *Hub) Join(ctx context.Context, connID domain.ConnectionID,
	userID domain.UserID, roomID domain.RoomID) (domain.Room, error) {
	room, err := h.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, err
	}
	if !room.HasParticipant(userID) {
		return domain.Room{}, errors.ErrNotParticipant
	}

	h.registry.Subscribe(connID, roomID)
	h.monitor.JoinAccepted()
	h.log.Debug("connection joined room",
		"conn_id", connID, "user_id", userID, "room_id", roomID, "kind", room.Kind())
	return room, nil
}

// Leave drops one membership entry. Idempotent, no re-validation.
func (h *Hub) Leave(connID domain.ConnectionID, roomID domain.RoomID) {
	h.registry.Unsubscribe(connID, roomID)
}

// Disconnect tears down all membership entries of a connection.
func (h *Hub) Disconnect(connID domain.ConnectionID) {
	h.registry.Unregister(connID)
	h.monitor.Disconnected()
}

// Send runs one message through the pipeline.
//
// Rejections (empty body, not joined, unknown room) are caller errors
// reported back on the connection; they never kill it. A persistence
// failure means the message was not sent: nothing is broadcast and the
// sender may safely re-issue the send.
func (h *Hub) Send(ctx context.Context, cmd domain.PostMessageCommand) (domain.Message, error) {
	if err := domain.ValidateContent(cmd.Content); err != nil {
		return domain.Message{}, err
	}
	if !h.registry.IsSubscribed(cmd.ConnectionID, cmd.RoomID) {
		return domain.Message{}, errors.ErrNotSubscribed
	}

	room, err := h.rooms.GetRoom(ctx, cmd.RoomID)
	if err != nil {
		return domain.Message{}, err
	}

	content := strings.TrimSpace(cmd.Content)
	if h.moderator != nil {
		sanitized, hits := h.moderator.Censor(content)
		if hits > 0 {
			info := whatlanggo.Detect(content)
			h.log.Warn("censored message content",
				"room_id", cmd.RoomID,
				"sender_id", cmd.SenderID,
				"hits", hits,
				"lang", info.Lang.Iso6391())
		}
		content = sanitized
	}

	// One room, one writer: broadcast order equals persistence order.
	lock := h.lockFor(cmd.RoomID)
	lock.Lock()
	defer lock.Unlock()

	msg := domain.Message{
		ID:        uuid.New(),
		RoomID:    cmd.RoomID,
		SenderID:  cmd.SenderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.messages.StoreMessage(ctx, msg); err != nil {
		h.monitor.SendFailed()
		return domain.Message{}, err
	}
	if err := h.rooms.UpdateLastMessage(ctx, cmd.RoomID, msg); err != nil {
		// The message is durable but the pointer is stale. Surface the
		// failure: the client must not treat the send as confirmed, and
		// re-issuing it converges the pointer.
		h.monitor.SendFailed()
		return domain.Message{}, err
	}

	h.broadcast(ctx, msg)
	h.notifyIdleParticipants(ctx, room, msg)
	h.monitor.MessageSent()
	return msg, nil
}

// History serves one backward page of a room's backlog, newest first.
// The limit is clamped server-side to bound response size.
func (h *Hub) History(ctx context.Context, cmd domain.GetHistoryCommand) ([]domain.Message, error) {
	limit := cmd.Limit
	if limit <= 0 {
		limit = defaultHistoryPage
	}
	if limit > MaxHistoryPage {
		limit = MaxHistoryPage
	}
	return h.messages.GetMessagesPage(ctx, cmd.RoomID, limit, cmd.Before)
}

// broadcast delivers the full stored message to every connection
// subscribed to the room, the sender's own connection included.
func (h *Hub) broadcast(ctx context.Context, msg domain.Message) {
	evt := event.MessageBroadcast{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	for _, sink := range h.registry.SinksForRoom(msg.RoomID) {
		if err := sink.Consume(ctx, evt); err != nil {
			h.log.Warn("dropped broadcast delivery", "room_id", msg.RoomID, "error", err)
			continue
		}
		h.monitor.Delivered()
	}
}

// notifyIdleParticipants routes a lightweight notice to the private
// channel of every other participant without any connection subscribed
// to the room. A user with one device in the room gets the full message
// there and no notice on the other devices.
func (h *Hub) notifyIdleParticipants(ctx context.Context, room domain.Room, msg domain.Message) {
	evt := event.RoomTouched{
		RoomID:        msg.RoomID,
		LastMessageID: msg.ID,
		LastSenderID:  msg.SenderID,
		LastContent:   msg.Content,
		LastCreatedAt: msg.CreatedAt,
	}
	for _, participant := range room.Participants {
		if participant == msg.SenderID {
			continue
		}
		if h.registry.HasUserInRoom(participant, msg.RoomID) {
			continue
		}
		for _, sink := range h.registry.SinksForUser(participant) {
			if err := sink.Consume(ctx, evt); err != nil {
				h.log.Warn("dropped room notice", "room_id", msg.RoomID, "user_id", participant, "error", err)
			}
		}
	}
}

func (h *Hub) lockFor(roomID domain.RoomID) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	lock, ok := h.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		h.roomLocks[roomID] = lock
	}
	return lock
}
