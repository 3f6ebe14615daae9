//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_repositories.go -package=mocks
package repositories

import (
	"context"
	"time"

	"mingle-chat/domain"
)

// IRoomRepository is the durable side of room state. The participant
// list returned by GetRoom is the only authority on who belongs to a
// room; the in-memory registry is never consulted for that.
type IRoomRepository interface {
	GetRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, error)
	CreateRoom(ctx context.Context, participants []domain.UserID) (domain.Room, error)
	UpdateLastMessage(ctx context.Context, roomID domain.RoomID, msg domain.Message) error
}

// IMessageRepository stores immutable messages and serves backward
// pages of them, newest first, strictly older than the cursor.
type IMessageRepository interface {
	StoreMessage(ctx context.Context, msg domain.Message) error
	GetMessagesPage(ctx context.Context, roomID domain.RoomID, limit int, before *time.Time) ([]domain.Message, error)
}
