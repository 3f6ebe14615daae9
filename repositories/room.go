package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"mingle-chat/domain"
	apperrors "mingle-chat/errors"
)

type RoomRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewRoomRepository(db *badger.DB, log *slog.Logger) *RoomRepository {
	return &RoomRepository{db: db, log: log}
}

// diskRoom deliberately has no direct/group flag: the classification is
// derived from the participant count at read time.
type diskRoom struct {
	ID           string       `json:"id"`
	Participants []string     `json:"participants"`
	LastMessage  *diskMessage `json:"last_message,omitempty"`
}

func roomKey(roomID domain.RoomID) []byte {
	return []byte(fmt.Sprintf("room:%s", roomID))
}

// GetRoom loads the durable room state, participant list included.
func (r *RoomRepository) GetRoom(_ context.Context, roomID domain.RoomID) (domain.Room, error) {
	var dr diskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &dr)
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return domain.Room{}, apperrors.ErrRoomNotFound
	case err != nil:
		return domain.Room{}, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return toRoom(dr)
}

// CreateRoom persists a new room with the given participant list.
// The list is deduplicated and must keep at least two entries.
func (r *RoomRepository) CreateRoom(_ context.Context, participants []domain.UserID) (domain.Room, error) {
	unique := lo.Uniq(participants)
	if len(unique) < 2 {
		return domain.Room{}, apperrors.ErrInvalidRequest
	}

	room := domain.Room{
		ID:           domain.RoomID(uuid.NewString()),
		Participants: unique,
	}
	value, err := json.Marshal(fromRoom(room))
	if err != nil {
		return domain.Room{}, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roomKey(room.ID), value)
	})
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return room, nil
}

// UpdateLastMessage moves the room's denormalized pointer to msg inside
// a single read-modify-write transaction, so a reader never observes a
// pointer referencing a message that was not durably stored first.
func (r *RoomRepository) UpdateLastMessage(_ context.Context, roomID domain.RoomID, msg domain.Message) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if err != nil {
			return err
		}
		var dr diskRoom
		if err = item.Value(func(value []byte) error {
			return json.Unmarshal(value, &dr)
		}); err != nil {
			return err
		}

		dr.LastMessage = &diskMessage{
			ID:      msg.ID.String(),
			Room:    string(msg.RoomID),
			Sender:  string(msg.SenderID),
			Content: msg.Content,
			At:      msg.CreatedAt.UnixNano(),
		}
		value, err := json.Marshal(dr)
		if err != nil {
			return err
		}
		return txn.Set(roomKey(roomID), value)
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return apperrors.ErrRoomNotFound
	case err != nil:
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func fromRoom(room domain.Room) diskRoom {
	dr := diskRoom{
		ID: string(room.ID),
		Participants: lo.Map(room.Participants, func(id domain.UserID, _ int) string {
			return string(id)
		}),
	}
	if room.LastMessage != nil {
		dr.LastMessage = &diskMessage{
			ID:      room.LastMessage.ID.String(),
			Room:    string(room.LastMessage.RoomID),
			Sender:  string(room.LastMessage.SenderID),
			Content: room.LastMessage.Content,
			At:      room.LastMessage.CreatedAt.UnixNano(),
		}
	}
	return dr
}

func toRoom(dr diskRoom) (domain.Room, error) {
	room := domain.Room{
		ID: domain.RoomID(dr.ID),
		Participants: lo.Map(dr.Participants, func(id string, _ int) domain.UserID {
			return domain.UserID(id)
		}),
	}
	if dr.LastMessage != nil {
		msg, err := toMessage(*dr.LastMessage)
		if err != nil {
			return domain.Room{}, err
		}
		room.LastMessage = &msg
	}
	return room, nil
}
