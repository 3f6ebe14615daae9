package client

import (
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"mingle-chat/domain"
	"mingle-chat/transport/ws"
)

func TestTracker(t *testing.T) {
	t.Run("should report a fresh room as pending until acked", func(t *testing.T) {
		req := require.New(t)
		tracker := NewTracker()

		req.True(tracker.Want("r1"))
		req.ElementsMatch([]domain.RoomID{"r1"}, tracker.Pending())

		tracker.Joined("r1")
		req.Empty(tracker.Pending())
		req.True(tracker.IsJoined("r1"))
	})

	t.Run("should not request a second join for a live room", func(t *testing.T) {
		req := require.New(t)
		tracker := NewTracker()

		tracker.Want("r1")
		tracker.Joined("r1")

		req.False(tracker.Want("r1"))
	})

	t.Run("should keep desired rooms across a drop but forget joins", func(t *testing.T) {
		req := require.New(t)
		tracker := NewTracker()

		tracker.Want("r1")
		tracker.Joined("r1")
		tracker.Want("r2")
		tracker.Joined("r2")

		tracker.ConnectionLost()

		req.False(tracker.IsJoined("r1"))
		req.ElementsMatch([]domain.RoomID{"r1", "r2"}, tracker.Pending())
	})

	t.Run("should not rejoin an explicitly left room", func(t *testing.T) {
		req := require.New(t)
		tracker := NewTracker()

		tracker.Want("r1")
		tracker.Joined("r1")
		tracker.Drop("r1")
		tracker.ConnectionLost()

		req.Empty(tracker.Pending())
		req.Empty(tracker.Desired())
	})

	t.Run("should hand out each pending room exactly once per connection", func(t *testing.T) {
		req := require.New(t)
		tracker := NewTracker()

		tracker.Want("r1")

		req.ElementsMatch([]domain.RoomID{"r1"}, tracker.TakePending())
		req.Empty(tracker.TakePending())

		// The unacked request dies with the connection.
		tracker.ConnectionLost()
		req.ElementsMatch([]domain.RoomID{"r1"}, tracker.TakePending())
	})

	t.Run("should not hand out a room again once acked", func(t *testing.T) {
		req := require.New(t)
		tracker := NewTracker()

		tracker.Want("r1")
		req.ElementsMatch([]domain.RoomID{"r1"}, tracker.TakePending())
		tracker.Joined("r1")

		req.Empty(tracker.TakePending())
		tracker.ConnectionLost()
		req.ElementsMatch([]domain.RoomID{"r1"}, tracker.TakePending())
	})
}

func TestClient_JoinRoom(t *testing.T) {
	newClient := func() *Client {
		return New("ws://localhost/ws", "token", slog.Default())
	}

	drainJoins := func(c *Client) []ws.ClientFrame {
		var frames []ws.ClientFrame
		for {
			select {
			case frame := <-c.outgoing:
				frames = append(frames, frame)
			default:
				return frames
			}
		}
	}

	t.Run("should send a single join when asked before the dial", func(t *testing.T) {
		req := require.New(t)
		c := newClient()

		c.JoinRoom("r1")
		req.Empty(drainJoins(c), "nothing may be sent while disconnected")

		// The connect path flushes the desired set.
		c.connected.Store(true)
		c.flushJoins()

		frames := drainJoins(c)
		req.Len(frames, 1)
		req.Equal(ws.TypeJoinRoom, frames[0].Type)
		req.Equal("r1", frames[0].RoomID)
	})

	t.Run("should send a single join when asked while connected", func(t *testing.T) {
		req := require.New(t)
		c := newClient()
		c.connected.Store(true)

		c.JoinRoom("r1")
		c.JoinRoom("r1")

		frames := drainJoins(c)
		req.Len(frames, 1)
		req.Equal("r1", frames[0].RoomID)
	})

	t.Run("should reissue joins once per reconnect", func(t *testing.T) {
		req := require.New(t)
		c := newClient()
		c.connected.Store(true)

		c.JoinRoom("r1")
		req.Len(drainJoins(c), 1)

		c.connected.Store(false)
		c.tracker.ConnectionLost()
		c.connected.Store(true)
		c.flushJoins()
		c.flushJoins()

		req.Len(drainJoins(c), 1)
	})
}

func TestClient_Dispatch(t *testing.T) {
	newClient := func() *Client {
		return New("ws://localhost/ws", "token", slog.Default())
	}

	message := func(id, content string) *ws.MessagePayload {
		return &ws.MessagePayload{ID: id, RoomID: "r1", SenderID: "bob", Content: content}
	}

	t.Run("should record an acked join", func(t *testing.T) {
		req := require.New(t)
		c := newClient()
		c.tracker.Want("r1")

		c.dispatch(ws.ServerFrame{Type: ws.TypeJoinedRoom, RoomID: "r1"})

		req.True(c.tracker.IsJoined("r1"))
	})

	t.Run("should deliver a live message exactly once", func(t *testing.T) {
		req := require.New(t)
		c := newClient()
		id := uuid.NewString()

		c.dispatch(ws.ServerFrame{Type: ws.TypeNewMessage, RoomID: "r1", Message: message(id, "hi")})
		c.dispatch(ws.ServerFrame{Type: ws.TypeNewMessage, RoomID: "r1", Message: message(id, "hi")})

		req.Len(c.events, 1)
	})

	t.Run("should filter already delivered messages out of a history page", func(t *testing.T) {
		req := require.New(t)
		c := newClient()
		liveID := uuid.NewString()
		oldID := uuid.NewString()

		c.dispatch(ws.ServerFrame{Type: ws.TypeNewMessage, RoomID: "r1", Message: message(liveID, "live")})
		<-c.events

		c.dispatch(ws.ServerFrame{
			Type:   ws.TypeHistory,
			RoomID: "r1",
			Messages: []ws.MessagePayload{
				*message(liveID, "live"),
				*message(oldID, "old"),
			},
		})

		frame := <-c.events
		req.Equal(ws.TypeHistory, frame.Type)
		req.Len(frame.Messages, 1)
		req.Equal("old", frame.Messages[0].Content)
	})

	t.Run("should keep duplicates in different rooms independent", func(t *testing.T) {
		req := require.New(t)
		c := newClient()
		id := uuid.NewString()

		c.dispatch(ws.ServerFrame{Type: ws.TypeNewMessage, RoomID: "r1", Message: message(id, "hi")})
		c.dispatch(ws.ServerFrame{Type: ws.TypeNewMessage, RoomID: "r2", Message: message(id, "hi")})

		req.Len(c.events, 2)
	})
}
