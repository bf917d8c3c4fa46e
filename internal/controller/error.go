package controller

import (
	"errors"
	"net/http"

	"github.com/bingesync/server/internal/service/account"
	"github.com/bingesync/server/internal/service/room"
	"github.com/bingesync/server/pkg/wsrouter"
)

const (
	codeAuthRequired        = "AUTH_REQUIRED"
	codeNotFound            = "NOT_FOUND"
	codeNotAuthorized       = "NOT_AUTHORIZED"
	codeHostControlRequired = "HOST_CONTROL_REQUIRED"
	codeNotAMember          = "NOT_A_MEMBER"
	codeValidationError     = "VALIDATION_ERROR"
	codePersistenceError    = "PERSISTENCE_ERROR"
)

// mapError collapses service errors into the wire error code and a client
// safe message. Anything unrecognized is a persistence failure: internals
// never leak to clients.
func mapError(err error) (code, message string) {
	switch {
	case errors.Is(err, account.ErrInvalidToken):
		return codeAuthRequired, "authentication required"
	case errors.Is(err, room.ErrRoomNotFound):
		return codeNotFound, "room not found"
	case errors.Is(err, room.ErrTargetNotConnected):
		return codeNotFound, "target member is not connected"
	case errors.Is(err, room.ErrNotAMember),
		errors.Is(err, room.ErrNotAuthorized),
		errors.Is(err, room.ErrRoomFull):
		return codeNotAuthorized, err.Error()
	case errors.Is(err, room.ErrHostControlRequired):
		return codeHostControlRequired, "playback control is restricted to the host"
	case errors.Is(err, room.ErrTargetNotAMember):
		return codeNotAMember, err.Error()
	case errors.Is(err, room.ErrEmptyMessage),
		errors.Is(err, room.ErrMessageTooLong),
		errors.Is(err, room.ErrInvalidVideo),
		errors.Is(err, room.ErrInvalidAction),
		errors.Is(err, wsrouter.ErrUnknownMessageType):
		return codeValidationError, err.Error()
	default:
		return codePersistenceError, "internal error"
	}
}

func httpStatus(code string) int {
	switch code {
	case codeAuthRequired:
		return http.StatusUnauthorized
	case codeNotFound:
		return http.StatusNotFound
	case codeNotAuthorized, codeHostControlRequired:
		return http.StatusForbidden
	case codeValidationError, codeNotAMember:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
