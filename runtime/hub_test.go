package runtime

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"mingle-chat/domain"
	"mingle-chat/domain/event"
	"mingle-chat/errors"
	"mingle-chat/mocks"
	"mingle-chat/observability"
)

// recordingSink collects everything delivered to one connection.
type recordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) all() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent{}, s.events...)
}

func (s *recordingSink) broadcasts() []event.MessageBroadcast {
	var out []event.MessageBroadcast
	for _, e := range s.all() {
		if b, ok := e.(event.MessageBroadcast); ok {
			out = append(out, b)
		}
	}
	return out
}

func (s *recordingSink) notices() []event.RoomTouched {
	var out []event.RoomTouched
	for _, e := range s.all() {
		if n, ok := e.(event.RoomTouched); ok {
			out = append(out, n)
		}
	}
	return out
}

type hubFixture struct {
	hub      *Hub
	registry *Registry
	rooms    *mocks.MockIRoomRepository
	messages *mocks.MockIMessageRepository
}

func newHubFixture(t *testing.T) hubFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	rooms := mocks.NewMockIRoomRepository(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	registry := NewRegistry()
	hub := NewHub(slog.Default(), registry, rooms, messages, nil, observability.NewMonitor())
	return hubFixture{hub: hub, registry: registry, rooms: rooms, messages: messages}
}

func directRoom(id domain.RoomID, users ...domain.UserID) domain.Room {
	return domain.Room{ID: id, Participants: users}
}

func TestHub_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("should accept a participant and record the membership", func(t *testing.T) {
		req := require.New(t)
		f := newHubFixture(t)
		f.registry.Register("c1", "u1", &recordingSink{})
		f.rooms.EXPECT().GetRoom(ctx, domain.RoomID("r1")).
			Return(directRoom("r1", "u1", "u2"), nil)

		room, err := f.hub.Join(ctx, "c1", "u1", "r1")

		req.NoError(err)
		req.Equal(domain.RoomID("r1"), room.ID)
		req.True(f.registry.IsSubscribed("c1", "r1"))
	})

	t.Run("should deny a non-participant", func(t *testing.T) {
		req := require.New(t)
		f := newHubFixture(t)
		f.registry.Register("c1", "intruder", &recordingSink{})
		f.rooms.EXPECT().GetRoom(ctx, domain.RoomID("r1")).
			Return(directRoom("r1", "u1", "u2"), nil)

		_, err := f.hub.Join(ctx, "c1", "intruder", "r1")

		req.ErrorIs(err, errors.ErrNotParticipant)
		req.False(f.registry.IsSubscribed("c1", "r1"))
	})

	t.Run("should report an unknown room", func(t *testing.T) {
		req := require.New(t)
		f := newHubFixture(t)
		f.registry.Register("c1", "u1", &recordingSink{})
		f.rooms.EXPECT().GetRoom(ctx, domain.RoomID("nope")).
			Return(domain.Room{}, errors.ErrRoomNotFound)

		_, err := f.hub.Join(ctx, "c1", "u1", "nope")

		req.ErrorIs(err, errors.ErrRoomNotFound)
	})

	t.Run("should re-check authorization on every join", func(t *testing.T) {
		req := require.New(t)
		f := newHubFixture(t)
		f.registry.Register("c1", "u3", &recordingSink{})

		// u3 was a participant during the first join, then got removed.
		f.rooms.EXPECT().GetRoom(ctx, domain.RoomID("r1")).
			Return(directRoom("r1", "u1", "u2", "u3"), nil)
		_, err := f.hub.Join(ctx, "c1", "u3", "r1")
		req.NoError(err)
		f.hub.Leave("c1", "r1")

		f.rooms.EXPECT().GetRoom(ctx, domain.RoomID("r1")).
			Return(directRoom("r1", "u1", "u2"), nil)
		_, err = f.hub.Join(ctx, "c1", "u3", "r1")
		req.ErrorIs(err, errors.ErrNotParticipant)
	})
}

func TestHub_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("should persist, update the pointer and fan out to all subscribers", func(t *testing.T) {
		req := require.New(t)
		f := newHubFixture(t)

		sender := &recordingSink{}
		other := &recordingSink{}
		idle := &recordingSink{}
		f.registry.Register("c1", "u1", sender)
		f.registry.Register("c2", "u2", other)
		f.registry.Register("c3", "u3", idle)
		f.registry.Subscribe("c1", "r1")
		f.registry.Subscribe("c2", "r1")
		// u3 is a participant but not subscribed anywhere.

		room := directRoom("r1", "u1", "u2", "u3")
		f.rooms.EXPECT().GetRoom(ctx, domain.RoomID("r1")).Return(room, nil)

		var stored domain.Message
		f.messages.EXPECT().StoreMessage(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, msg domain.Message) error {
				stored = msg
				return nil
			})
		f.rooms.EXPECT().UpdateLastMessage(ctx, domain.RoomID("r1"), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ domain.RoomID, msg domain.Message) error {
				req.Equal(stored.ID, msg.ID)
				return nil
			})

		msg, err := f.hub.Send(ctx, domain.PostMessageCommand{
			RoomID: "r1", ConnectionID: "c1", SenderID: "u1", Content: "  hi  ",
		})

		req.NoError(err)
		req.Equal("hi", msg.Content)
		req.Equal(stored.ID, msg.ID)

		// Exactly one full delivery per subscribed connection, sender included.
		req.Len(sender.broadcasts(), 1)
		req.Len(other.broadcasts(), 1)
		req.Empty(idle.broadcasts())

		// The idle participant gets exactly one lightweight notice.
		notices := idle.notices()
		req.Len(notices, 1)
		req.Equal(msg.ID, notices[0].LastMessageID)
		req.Equal("hi", notices[0].LastContent)

		// Subscribed participants never get the notice.
		req.Empty(sender.notices())
		req.Empty(other.notices())
	})

	t.Run("should reject an empty body without touching storage", func(t *testing.T) {
		req := require.New(t)
		f := newHubFixture(t)
		f.registry.Register("c1", "u1", &recordingSink{})
		f.registry.Subscribe("c1", "r1")

		_, err := f.hub.Send(ctx, domain.PostMessageCommand{
			RoomID: "r1", ConnectionID: "c1", SenderID: "u1", Content: "   ",
		})

		req.ErrorIs(err, errors.ErrEmptyContent)
	})

	t.Run("should reject a sender that has not joined the room", func(t *testing.T) {
		req := require.New(t)
		f := newHubFixture(t)
		f.registry.Register("c1", "u1", &recordingSink{})

		_, err := f.hub.Send(ctx, domain.PostMessageCommand{
			RoomID: "r1", ConnectionID: "c1", SenderID: "u1", Content: "hi",
		})

		req.ErrorIs(err, errors.ErrNotSubscribed)
	})

	t.Run("should not broadcast when persistence fails", func(t *testing.T) {
		req := require.New(t)
		f := newHubFixture(t)
		sink := &recordingSink{}
		f.registry.Register("c1", "u1", sink)
		f.registry.Subscribe("c1", "r1")

		f.rooms.EXPECT().GetRoom(ctx, domain.RoomID("r1")).
			Return(directRoom("r1", "u1", "u2"), nil)
		f.messages.EXPECT().StoreMessage(ctx, gomock.Any()).
			Return(errors.ErrStoreUnavailable)

		_, err := f.hub.Send(ctx, domain.PostMessageCommand{
			RoomID: "r1", ConnectionID: "c1", SenderID: "u1", Content: "hi",
		})

		req.ErrorIs(err, errors.ErrStoreUnavailable)
		req.Empty(sink.all())
	})

	t.Run("should surface a pointer update failure as a failed send", func(t *testing.T) {
		req := require.New(t)
		f := newHubFixture(t)
		sink := &recordingSink{}
		f.registry.Register("c1", "u1", sink)
		f.registry.Subscribe("c1", "r1")

		f.rooms.EXPECT().GetRoom(ctx, domain.RoomID("r1")).
			Return(directRoom("r1", "u1", "u2"), nil)
		f.messages.EXPECT().StoreMessage(ctx, gomock.Any()).Return(nil)
		f.rooms.EXPECT().UpdateLastMessage(ctx, domain.RoomID("r1"), gomock.Any()).
			Return(errors.ErrStoreUnavailable)

		_, err := f.hub.Send(ctx, domain.PostMessageCommand{
			RoomID: "r1", ConnectionID: "c1", SenderID: "u1", Content: "hi",
		})

		req.ErrorIs(err, errors.ErrStoreUnavailable)
		req.Empty(sink.all())
	})
}

func TestHub_SendOrderingPerRoom(t *testing.T) {
	req := require.New(t)
	f := newHubFixture(t)
	ctx := context.Background()

	receiver := &recordingSink{}
	f.registry.Register("c1", "u1", &recordingSink{})
	f.registry.Register("c2", "u2", receiver)
	f.registry.Subscribe("c1", "r1")
	f.registry.Subscribe("c2", "r1")

	room := directRoom("r1", "u1", "u2")
	f.rooms.EXPECT().GetRoom(ctx, domain.RoomID("r1")).Return(room, nil).AnyTimes()

	var mu sync.Mutex
	var persisted []uuid.UUID
	f.messages.EXPECT().StoreMessage(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, msg domain.Message) error {
			mu.Lock()
			persisted = append(persisted, msg.ID)
			mu.Unlock()
			return nil
		}).AnyTimes()
	f.rooms.EXPECT().UpdateLastMessage(ctx, domain.RoomID("r1"), gomock.Any()).
		Return(nil).AnyTimes()

	const senders = 8
	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.hub.Send(ctx, domain.PostMessageCommand{
				RoomID: "r1", ConnectionID: "c1", SenderID: "u1", Content: "m",
			})
			req.NoError(err)
		}()
	}
	wg.Wait()

	// Delivery order matches persistence completion order.
	broadcasts := receiver.broadcasts()
	req.Len(broadcasts, senders)
	for i, b := range broadcasts {
		req.Equal(persisted[i], b.ID)
	}
}

func TestHub_HistoryClampsLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("should clamp an oversized limit", func(t *testing.T) {
		f := newHubFixture(t)
		f.messages.EXPECT().GetMessagesPage(ctx, domain.RoomID("r1"), MaxHistoryPage, nil).
			Return(nil, nil)

		_, err := f.hub.History(ctx, domain.GetHistoryCommand{RoomID: "r1", Limit: 10_000})
		require.NoError(t, err)
	})

	t.Run("should default a missing limit", func(t *testing.T) {
		f := newHubFixture(t)
		f.messages.EXPECT().GetMessagesPage(ctx, domain.RoomID("r1"), defaultHistoryPage, nil).
			Return(nil, nil)

		_, err := f.hub.History(ctx, domain.GetHistoryCommand{RoomID: "r1"})
		require.NoError(t, err)
	})

	t.Run("should pass the cursor through", func(t *testing.T) {
		f := newHubFixture(t)
		cursor := time.Now().UTC()
		f.messages.EXPECT().GetMessagesPage(ctx, domain.RoomID("r1"), 20, &cursor).
			Return(nil, nil)

		_, err := f.hub.History(ctx, domain.GetHistoryCommand{RoomID: "r1", Limit: 20, Before: &cursor})
		require.NoError(t, err)
	})
}
