package room

import "errors"

var (
	ErrInvalidConfig       = errors.New("invalid room config")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomNotEmpty        = errors.New("room not empty")
	ErrRoomClosed          = errors.New("room closed")
	ErrRoomFull            = errors.New("room full")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrNoHostAssigned      = errors.New("no host assigned")
	ErrInvalidRate         = errors.New("invalid playback rate")
	ErrInvalidCommand      = errors.New("invalid playback command")
	ErrChatDisabled        = errors.New("chat disabled")
	ErrMessageTooLong      = errors.New("message too long")
	ErrMessageEmpty        = errors.New("message empty")
)
