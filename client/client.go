package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fasthttp/websocket"

	"mingle-chat/domain"
	"mingle-chat/transport/ws"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 30 * time.Second

	outgoingBuffer = 64
	eventBuffer    = 256
)

// Client maintains one websocket to the chat server, transparently
// reconnecting with capped exponential backoff. Desired rooms are
// rejoined after each reconnect and duplicate messages from overlapping
// history pages are filtered before they reach the caller.
type Client struct {
	url    string
	header http.Header
	log    *slog.Logger

	tracker   *Tracker
	connected atomic.Bool
	outgoing  chan ws.ClientFrame
	events    chan ws.ServerFrame
	refSeq    atomic.Uint64

	seenMu sync.Mutex
	seen   map[domain.RoomID]map[string]struct{}
}

func New(url, token string, log *slog.Logger) *Client {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return &Client{
		url:      url,
		header:   header,
		log:      log,
		tracker:  NewTracker(),
		outgoing: make(chan ws.ClientFrame, outgoingBuffer),
		events:   make(chan ws.ServerFrame, eventBuffer),
		seen:     make(map[domain.RoomID]map[string]struct{}),
	}
}

// Events delivers server frames after reconnection bookkeeping and
// duplicate filtering. The channel is closed when Run returns.
func (c *Client) Events() <-chan ws.ServerFrame {
	return c.events
}

// Run dials and serves the connection until the context is cancelled,
// redialing after every drop. It returns the context's error.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.events)

	backoff := initialBackoff
	for {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			status := 0
			if resp != nil {
				status = resp.StatusCode
			}
			if status == http.StatusUnauthorized {
				// The credential will not get better by retrying.
				return fmt.Errorf("handshake rejected: %w", err)
			}
			c.log.Warn("dial failed, retrying", "error", err, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		backoff = initialBackoff
		c.log.Info("connected", "url", c.url)
		c.serveConn(ctx, conn)
		c.tracker.ConnectionLost()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Info("connection lost, reconnecting")
	}
}

// JoinRoom marks the room desired. The join frame itself always goes
// through the reconciliation path, so a room is requested exactly once
// per connection whether JoinRoom ran before or after the dial. The
// room is rejoined automatically after reconnects until LeaveRoom is
// called.
func (c *Client) JoinRoom(roomID domain.RoomID) {
	c.tracker.Want(roomID)
	c.flushJoins()
}

// flushJoins issues the join frames claimed from the tracker. A no-op
// while disconnected; the next serveConn flushes instead.
func (c *Client) flushJoins() {
	if !c.connected.Load() {
		return
	}
	for _, roomID := range c.tracker.TakePending() {
		c.enqueue(ws.ClientFrame{
			Type:   ws.TypeJoinRoom,
			Ref:    c.nextRef(),
			RoomID: string(roomID),
		})
	}
}

// LeaveRoom drops the room for good; it is not rejoined on reconnect.
func (c *Client) LeaveRoom(roomID domain.RoomID) {
	c.tracker.Drop(roomID)
	c.enqueue(ws.ClientFrame{
		Type:   ws.TypeLeaveRoom,
		Ref:    c.nextRef(),
		RoomID: string(roomID),
	})
}

func (c *Client) SendMessage(roomID domain.RoomID, content string) {
	c.enqueue(ws.ClientFrame{
		Type:    ws.TypeSendMessage,
		Ref:     c.nextRef(),
		RoomID:  string(roomID),
		Content: content,
	})
}

// RequestHistory asks for a page of messages strictly older than
// before; a nil before starts from the newest.
func (c *Client) RequestHistory(roomID domain.RoomID, limit int, before *time.Time) {
	c.enqueue(ws.ClientFrame{
		Type:   ws.TypeHistoryPage,
		Ref:    c.nextRef(),
		RoomID: string(roomID),
		Limit:  limit,
		Before: before,
	})
}

func (c *Client) serveConn(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.connected.Store(true)
	defer c.connected.Store(false)

	// Re-issue joins for everything desired but not live.
	c.flushJoins()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-connCtx.Done():
				return
			case frame := <-c.outgoing:
				if err := conn.WriteJSON(frame); err != nil {
					c.log.Debug("write failed", "error", err)
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var frame ws.ServerFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.log.Warn("unreadable frame dropped", "error", err)
			continue
		}
		c.dispatch(frame)
	}

	cancel()
	<-writerDone
}

// dispatch applies connection bookkeeping and duplicate filtering
// before handing the frame to the caller.
func (c *Client) dispatch(frame ws.ServerFrame) {
	switch frame.Type {
	case ws.TypeJoinedRoom:
		c.tracker.Joined(domain.RoomID(frame.RoomID))

	case ws.TypeNewMessage:
		if frame.Message != nil && !c.markSeen(domain.RoomID(frame.RoomID), frame.Message.ID) {
			return
		}

	case ws.TypeHistory:
		// Pages may overlap with already delivered messages; keep only
		// the unseen ones, in page order.
		unseen := frame.Messages[:0:0]
		for _, msg := range frame.Messages {
			if c.markSeen(domain.RoomID(frame.RoomID), msg.ID) {
				unseen = append(unseen, msg)
			}
		}
		frame.Messages = unseen
	}

	select {
	case c.events <- frame:
	default:
		c.log.Warn("event buffer full, dropping frame", "type", frame.Type)
	}
}

// markSeen records the message id and reports whether it was new.
func (c *Client) markSeen(roomID domain.RoomID, id string) bool {
	c.seenMu.Lock()
	defer c.seenMu.Unlock()
	room, ok := c.seen[roomID]
	if !ok {
		room = make(map[string]struct{})
		c.seen[roomID] = room
	}
	if _, dup := room[id]; dup {
		return false
	}
	room[id] = struct{}{}
	return true
}

func (c *Client) enqueue(frame ws.ClientFrame) {
	select {
	case c.outgoing <- frame:
	default:
		c.log.Warn("outgoing buffer full, dropping frame", "type", frame.Type)
	}
}

func (c *Client) nextRef() string {
	return fmt.Sprintf("c-%d", c.refSeq.Add(1))
}
