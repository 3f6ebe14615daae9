package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"mingle-chat/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func storedMessage(t *testing.T, repo *MessageRepository, roomID domain.RoomID,
	sender domain.UserID, content string, at time.Time) domain.Message {
	t.Helper()
	msg := domain.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  sender,
		Content:   content,
		CreatedAt: at.UTC(),
	}
	require.NoError(t, repo.StoreMessage(context.Background(), msg))
	return msg
}

func TestMessageRepository_StoreAndPage(t *testing.T) {
	db := openTestDB(t)
	repo := NewMessageRepository(db, slog.Default())
	ctx := context.Background()
	roomID := domain.RoomID(uuid.NewString())
	base := time.Now().UTC().Truncate(time.Millisecond)

	var stored []domain.Message
	for i := 0; i < 10; i++ {
		stored = append(stored, storedMessage(t, repo, roomID, "u1", "m", base.Add(time.Duration(i)*time.Second)))
	}

	t.Run("should return newest first without a cursor", func(t *testing.T) {
		req := require.New(t)

		page, err := repo.GetMessagesPage(ctx, roomID, 4, nil)

		req.NoError(err)
		req.Len(page, 4)
		req.Equal(stored[9].ID, page[0].ID)
		req.Equal(stored[6].ID, page[3].ID)
		for i := 1; i < len(page); i++ {
			req.True(page[i].CreatedAt.Before(page[i-1].CreatedAt))
		}
	})

	t.Run("should return only messages strictly older than the cursor", func(t *testing.T) {
		req := require.New(t)

		first, err := repo.GetMessagesPage(ctx, roomID, 4, nil)
		req.NoError(err)
		cursor := first[len(first)-1].CreatedAt

		second, err := repo.GetMessagesPage(ctx, roomID, 4, &cursor)
		req.NoError(err)
		req.Len(second, 4)

		seen := map[uuid.UUID]struct{}{}
		for _, m := range append(first, second...) {
			_, dup := seen[m.ID]
			req.False(dup, "pages overlap on %s", m.ID)
			seen[m.ID] = struct{}{}
		}
		for _, m := range second {
			req.True(m.CreatedAt.Before(cursor))
		}
	})

	t.Run("should drain the backlog and then return an empty page", func(t *testing.T) {
		req := require.New(t)

		var collected []domain.Message
		var cursor *time.Time
		for {
			page, err := repo.GetMessagesPage(ctx, roomID, 3, cursor)
			req.NoError(err)
			if len(page) == 0 {
				break
			}
			collected = append(collected, page...)
			last := page[len(page)-1].CreatedAt
			cursor = &last
		}
		req.Len(collected, len(stored))
	})

	t.Run("should not leak messages across rooms", func(t *testing.T) {
		req := require.New(t)
		otherRoom := domain.RoomID(uuid.NewString())
		storedMessage(t, repo, otherRoom, "u2", "other", base)

		page, err := repo.GetMessagesPage(ctx, otherRoom, 50, nil)

		req.NoError(err)
		req.Len(page, 1)
		req.Equal("other", page[0].Content)
	})

	t.Run("should return an empty page for an unknown room", func(t *testing.T) {
		req := require.New(t)

		page, err := repo.GetMessagesPage(ctx, domain.RoomID(uuid.NewString()), 50, nil)

		req.NoError(err)
		req.Empty(page)
	})
}

func TestMessageRepository_SameNanosecond(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repo := NewMessageRepository(db, slog.Default())
	roomID := domain.RoomID(uuid.NewString())
	at := time.Now().UTC()

	// Two messages in the same nanosecond must both survive, the UUID
	// suffix keeps their keys distinct.
	storedMessage(t, repo, roomID, "u1", "a", at)
	storedMessage(t, repo, roomID, "u2", "b", at)

	page, err := repo.GetMessagesPage(context.Background(), roomID, 10, nil)
	req.NoError(err)
	req.Len(page, 2)
}
