package ws

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mingle-chat/domain"
	"mingle-chat/services"
)

// Handler upgrades authenticated clients to a websocket and runs the
// per-connection read/write loops.
type Handler struct {
	service     services.IChatService
	log         *slog.Logger
	bufferSize  int
	authTimeout time.Duration
}

func NewHandler(service services.IChatService, log *slog.Logger,
	bufferSize int, authTimeout time.Duration) *Handler {
	return &Handler{
		service:     service,
		log:         log,
		bufferSize:  bufferSize,
		authTimeout: authTimeout,
	}
}

// Authenticate runs exactly once, before the upgrade. A missing,
// malformed or unknown credential fails the connection immediately;
// there is nothing to retry server-side.
func (h *Handler) Authenticate(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.authTimeout)
	defer cancel()

	userID, err := h.service.Authenticate(ctx, bearerToken(c))
	if err != nil {
		h.log.Debug("handshake rejected", "error", err)
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	c.Locals("user_id", string(userID))

	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Serve owns one upgraded connection until it dies. The connection is
// registered with its private channel on entry and fully torn down on
// exit; teardown is cheap and idempotent.
func (h *Handler) Serve(conn *websocket.Conn) {
	userID := domain.UserID(conn.Locals("user_id").(string))
	connID := domain.ConnectionID(uuid.NewString())
	log := h.log.With("conn_id", connID, "user_id", userID)

	sink := NewSink(h.bufferSize, log)
	session := NewSession(connID, userID, h.service, sink, log)

	h.service.Connect(connID, userID, sink)
	defer h.service.Disconnect(connID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Single writer per connection.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case frame := <-sink.Outbound():
				if err := conn.WriteJSON(frame); err != nil {
					log.Debug("write failed, closing connection", "error", err)
					return
				}
			}
		}
	}()

	log.Info("connection established")
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info("connection closed", "error", err)
			break
		}
		if err := session.HandleRaw(ctx, data); err != nil {
			// Reply could not be queued: the connection is gone.
			break
		}
	}

	cancel()
	<-writerDone
}

// bearerToken extracts the credential from the Authorization header,
// falling back to the token query parameter for websocket clients that
// cannot set headers.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
