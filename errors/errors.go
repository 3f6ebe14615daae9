package errors

import "fmt"

var (
	// Fatal to the connection: the credential is missing, malformed or unknown.
	ErrUnauthenticated = fmt.Errorf("unauthenticated")

	// The user is not in the room's participant list.
	ErrNotParticipant = fmt.Errorf("not a participant of this room")

	// The connection tried to send to a room it has not joined.
	ErrNotSubscribed = fmt.Errorf("room not joined")

	ErrEmptyContent   = fmt.Errorf("message content is empty")
	ErrContentTooLong = fmt.Errorf("message content exceeds the maximum length")
	ErrInvalidRoomID  = fmt.Errorf("malformed room id")
	ErrInvalidRequest = fmt.Errorf("malformed request")

	ErrRoomNotFound    = fmt.Errorf("room not found")
	ErrMessageNotFound = fmt.Errorf("message not found")

	// Storage is unreachable or the write failed. The message is not
	// considered sent and must not be broadcast.
	ErrStoreUnavailable = fmt.Errorf("message store unavailable")

	ErrWorkerPanic = fmt.Errorf("worker panic")
)
