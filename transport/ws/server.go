package ws

import (
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"mingle-chat/domain"
	"mingle-chat/errors"
	"mingle-chat/observability"
	"mingle-chat/repositories"
)

// Server ties the websocket endpoint and the plain HTTP routes
// (health, stats, room administration) into one fiber app.
type Server struct {
	app  *fiber.App
	log  *slog.Logger
	addr string
}

func NewServer(host string, port int, handler *Handler, rooms repositories.IRoomRepository,
	monitor *observability.Monitor, counts observability.CountsProvider, log *slog.Logger) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(monitor.Snapshot(counts))
	})

	app.Post("/api/rooms", handler.requireUser, createRoomHandler(rooms, log))

	app.Use("/ws", handler.Authenticate)
	app.Get("/ws", websocket.New(handler.Serve))

	return &Server{
		app:  app,
		log:  log,
		addr: fmt.Sprintf("%s:%d", host, port),
	}
}

// Listen blocks serving until Shutdown is called or the listener fails.
func (s *Server) Listen() error {
	s.log.Info("listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// requireUser authenticates an HTTP request the same way the websocket
// handshake does, without requiring an upgrade.
func (h *Handler) requireUser(c *fiber.Ctx) error {
	userID, err := h.service.Authenticate(c.UserContext(), bearerToken(c))
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}
	c.Locals("user_id", string(userID))
	return c.Next()
}

type createRoomRequest struct {
	Participants []string `json:"participants" validate:"required,min=1,dive,required"`
}

func createRoomHandler(rooms repositories.IRoomRepository, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createRoomRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"code": errors.CodeInvalidArgument, "message": "malformed body"})
		}
		if err := validate.Struct(req); err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"code": errors.CodeInvalidArgument, "message": err.Error()})
		}

		// The caller is always a participant of the room it creates.
		caller := c.Locals("user_id").(string)
		participants := lo.Map(append(req.Participants, caller),
			func(id string, _ int) domain.UserID { return domain.UserID(id) })

		room, err := rooms.CreateRoom(c.UserContext(), participants)
		if err != nil {
			status := fiber.StatusInternalServerError
			if stderrors.Is(err, errors.ErrInvalidRequest) {
				status = fiber.StatusBadRequest
			}
			return c.Status(status).
				JSON(fiber.Map{"code": errors.MapToCode(err), "message": err.Error()})
		}

		log.Info("room created", "room_id", room.ID, "participants", len(room.Participants))
		payload := toRoomPayload(room)
		return c.Status(fiber.StatusCreated).JSON(payload)
	}
}
