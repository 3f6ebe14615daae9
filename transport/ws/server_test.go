package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"mingle-chat/domain"
	apperrors "mingle-chat/errors"
	"mingle-chat/mocks"
	"mingle-chat/observability"
)

func testServer(t *testing.T) (*Server, *mocks.MockIChatService, *mocks.MockIRoomRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	service := mocks.NewMockIChatService(ctrl)
	rooms := mocks.NewMockIRoomRepository(ctrl)
	handler := NewHandler(service, slog.Default(), 16, time.Second)
	monitor := observability.NewMonitor()
	counts := func() (int, int) { return 0, 0 }
	server := NewServer("localhost", 0, handler, rooms, monitor, counts, slog.Default())
	return server, service, rooms
}

func TestServer_Routes(t *testing.T) {
	t.Run("should answer the health check", func(t *testing.T) {
		req := require.New(t)
		server, _, _ := testServer(t)

		resp, err := server.app.Test(httptest.NewRequest("GET", "/healthz", nil))

		req.NoError(err)
		req.Equal(200, resp.StatusCode)
	})

	t.Run("should serve a stats snapshot", func(t *testing.T) {
		req := require.New(t)
		server, _, _ := testServer(t)

		resp, err := server.app.Test(httptest.NewRequest("GET", "/stats", nil))

		req.NoError(err)
		req.Equal(200, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		req.NoError(err)
		var stats observability.Stats
		req.NoError(json.Unmarshal(body, &stats))
	})

	t.Run("should reject room creation without a valid credential", func(t *testing.T) {
		req := require.New(t)
		server, service, _ := testServer(t)

		service.EXPECT().
			Authenticate(gomock.Any(), "").
			Return(domain.UserID(""), apperrors.ErrUnauthenticated)

		resp, err := server.app.Test(httptest.NewRequest("POST", "/api/rooms", nil))

		req.NoError(err)
		req.Equal(401, resp.StatusCode)
	})

	t.Run("should create a room including the caller", func(t *testing.T) {
		req := require.New(t)
		server, service, rooms := testServer(t)

		service.EXPECT().
			Authenticate(gomock.Any(), "tok").
			Return(domain.UserID("alice"), nil)
		rooms.EXPECT().
			CreateRoom(gomock.Any(), []domain.UserID{"bob", "alice"}).
			Return(domain.Room{ID: "r1", Participants: []domain.UserID{"bob", "alice"}}, nil)

		httpReq := httptest.NewRequest("POST", "/api/rooms",
			strings.NewReader(`{"participants":["bob"]}`))
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer tok")

		resp, err := server.app.Test(httpReq)

		req.NoError(err)
		req.Equal(201, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		req.NoError(err)
		var payload RoomPayload
		req.NoError(json.Unmarshal(body, &payload))
		req.Equal("r1", payload.ID)
		req.Equal("direct", payload.Kind)
	})
}
