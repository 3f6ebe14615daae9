package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"mingle-chat/domain"
	apperrors "mingle-chat/errors"
)

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

type diskMessage struct {
	ID      string `json:"id"`
	Room    string `json:"room"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	At      int64  `json:"at"` // UnixNano, UTC
}

// messageKey builds "msg:{room_id}:{timestamp_padded}:{uuid}" so that:
//  1. a prefix scan isolates one room,
//  2. 19-digit zero padding makes lexicographic order chronological,
//  3. the UUID suffix disambiguates two messages in the same nanosecond.
func messageKey(roomID domain.RoomID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", roomID, at.UnixNano(), id))
}

func roomPrefix(roomID domain.RoomID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", roomID))
}

// StoreMessage persists one immutable message.
func (m *MessageRepository) StoreMessage(_ context.Context, msg domain.Message) error {
	value, err := json.Marshal(diskMessage{
		ID:      msg.ID.String(),
		Room:    string(msg.RoomID),
		Sender:  string(msg.SenderID),
		Content: msg.Content,
		At:      msg.CreatedAt.UnixNano(),
	})
	if err != nil {
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg.RoomID, msg.CreatedAt, msg.ID), value)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// GetMessagesPage returns up to limit messages of a room, newest first.
// When before is set, only messages strictly older than it are returned.
// Thanks to the padded timestamp in the key, a reverse prefix iteration
// yields messages already sorted by time.
func (m *MessageRepository) GetMessagesPage(_ context.Context, roomID domain.RoomID,
	limit int, before *time.Time) ([]domain.Message, error) {
	var raw [][]byte

	err := m.db.View(func(txn *badger.Txn) error {
		prefix := roomPrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch before {
		case nil:
			// Past the newest possible timestamp, then walk backwards.
			seekKey = append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		default:
			// Keys carrying exactly this timestamp sort after the bare
			// seek key, so a reverse seek lands on strictly older ones.
			seekKey = append(append([]byte{}, prefix...), []byte(fmt.Sprintf("%019d", before.UnixNano()))...)
		}

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(raw) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	messages := make([]domain.Message, 0, len(raw))
	for _, b := range raw {
		var dm diskMessage
		if err = json.Unmarshal(b, &dm); err != nil {
			return nil, err
		}
		msg, err := toMessage(dm)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func toMessage(dm diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		RoomID:    domain.RoomID(dm.Room),
		SenderID:  domain.UserID(dm.Sender),
		Content:   dm.Content,
		CreatedAt: time.Unix(0, dm.At).UTC(),
	}, nil
}
