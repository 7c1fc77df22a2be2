package controller

import (
	"errors"
	"net/http"

	"github.com/cinematogether/server/internal/identity"
	"github.com/cinematogether/server/internal/repository/handshake"
	"github.com/cinematogether/server/internal/room"
)

// errorCode maps core errors to the stable codes the client distinguishes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, room.ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, room.ErrRoomNotFound):
		return "room_not_found"
	case errors.Is(err, room.ErrRoomNotEmpty):
		return "room_not_empty"
	case errors.Is(err, room.ErrRoomClosed):
		return "room_closed"
	case errors.Is(err, room.ErrRoomFull):
		return "room_full"
	case errors.Is(err, room.ErrParticipantNotFound):
		return "participant_not_found"
	case errors.Is(err, room.ErrNotAuthorized):
		return "not_authorized"
	case errors.Is(err, room.ErrNoHostAssigned):
		return "no_host_assigned"
	case errors.Is(err, room.ErrInvalidRate):
		return "invalid_rate"
	case errors.Is(err, room.ErrInvalidCommand):
		return "invalid_command"
	case errors.Is(err, room.ErrChatDisabled):
		return "chat_disabled"
	case errors.Is(err, room.ErrMessageTooLong):
		return "message_too_long"
	case errors.Is(err, room.ErrMessageEmpty):
		return "message_empty"
	case errors.Is(err, handshake.ErrIntentNotFound):
		return "invalid_connect_token"
	case errors.Is(err, identity.ErrInvalidToken):
		return "invalid_identity_token"
	case errors.Is(err, identity.ErrEmptyName):
		return "display_name_required"
	default:
		return "internal_error"
	}
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, room.ErrInvalidConfig),
		errors.Is(err, room.ErrInvalidRate),
		errors.Is(err, room.ErrInvalidCommand),
		errors.Is(err, room.ErrMessageTooLong),
		errors.Is(err, room.ErrMessageEmpty),
		errors.Is(err, identity.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, handshake.ErrIntentNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, room.ErrNotAuthorized),
		errors.Is(err, room.ErrNoHostAssigned):
		return http.StatusForbidden
	case errors.Is(err, room.ErrRoomNotFound),
		errors.Is(err, room.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrRoomNotEmpty),
		errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrChatDisabled):
		return http.StatusConflict
	case errors.Is(err, room.ErrRoomClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
