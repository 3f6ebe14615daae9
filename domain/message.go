// Package domain contains core concepts of the chat system.
// This file defines Message entities and related rules.
// Messages are immutable once created.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"mingle-chat/errors"
)

// MaxContentLength bounds the size of a single message body in runes.
const MaxContentLength = 4000

// Message represents an immutable chat event. CreatedAt is assigned by
// the server at persistence time and is the authoritative ordering key
// inside a room.
type Message struct {
	ID        uuid.UUID
	RoomID    RoomID
	SenderID  UserID
	Content   string
	CreatedAt time.Time
}

// ValidateContent applies the domain rules for a message body.
// Content is trimmed first so whitespace-only bodies are rejected.
func ValidateContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.ErrEmptyContent
	}
	if len([]rune(trimmed)) > MaxContentLength {
		return errors.ErrContentTooLong
	}
	return nil
}
