package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"mingle-chat/errors"
)

func TestRoom_Kind(t *testing.T) {
	t.Run("should classify two participants as direct", func(t *testing.T) {
		room := Room{ID: "r1", Participants: []UserID{"u1", "u2"}}
		require.Equal(t, KindDirect, room.Kind())
	})

	t.Run("should classify three or more participants as group", func(t *testing.T) {
		room := Room{ID: "r1", Participants: []UserID{"u1", "u2", "u3"}}
		require.Equal(t, KindGroup, room.Kind())
	})
}

func TestRoom_HasParticipant(t *testing.T) {
	req := require.New(t)
	room := Room{ID: "r1", Participants: []UserID{"u1", "u2"}}

	req.True(room.HasParticipant("u1"))
	req.False(room.HasParticipant("u3"))
}

func TestRoom_Touch(t *testing.T) {
	req := require.New(t)
	room := Room{ID: "r1", Participants: []UserID{"u1", "u2"}}
	msg := Message{
		ID:        uuid.New(),
		RoomID:    "r1",
		SenderID:  "u1",
		Content:   "hi",
		CreatedAt: time.Now().UTC(),
	}

	room.Touch(msg)

	req.NotNil(room.LastMessage)
	req.Equal(msg.ID, room.LastMessage.ID)
	req.Equal("hi", room.LastMessage.Content)
}

func TestValidateContent(t *testing.T) {
	t.Run("should accept a regular body", func(t *testing.T) {
		require.NoError(t, ValidateContent("hello there"))
	})

	t.Run("should reject an empty body after trimming", func(t *testing.T) {
		require.ErrorIs(t, ValidateContent("   \t\n"), errors.ErrEmptyContent)
	})

	t.Run("should reject a body over the maximum length", func(t *testing.T) {
		body := make([]rune, MaxContentLength+1)
		for i := range body {
			body[i] = 'a'
		}
		require.ErrorIs(t, ValidateContent(string(body)), errors.ErrContentTooLong)
	})
}
