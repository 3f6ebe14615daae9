package errors

import "errors"

// Code is the machine-readable reason carried by an error frame.
// Every rejected client request is answered with exactly one of these.
type Code string

const (
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeInternal        Code = "INTERNAL"
)

// MapToCode classifies an error into the protocol taxonomy.
// Unknown errors deliberately map to INTERNAL so nothing is silently dropped.
func MapToCode(err error) Code {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrNotParticipant), errors.Is(err, ErrNotSubscribed):
		return CodeForbidden
	case errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrContentTooLong),
		errors.Is(err, ErrInvalidRoomID),
		errors.Is(err, ErrInvalidRequest):
		return CodeInvalidArgument
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrMessageNotFound):
		return CodeNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// IsFatal reports whether the error must terminate the connection.
// Only authentication failures are fatal, everything else is reported
// back to the caller while the connection stays alive.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}
