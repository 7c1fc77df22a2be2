// Package handshake defines the store of pending connect intents. A rest
// call validates the request and parks an intent under a one-shot connect
// token; the websocket upgrade redeems the token and performs the actual
// create or join.
package handshake

import (
	"errors"

	"github.com/cinematogether/server/internal/domain"
)

var ErrIntentNotFound = errors.New("connect intent not found")

type Kind string

const (
	KindCreate Kind = "create"
	KindJoin   Kind = "join"
)

type Intent struct {
	Kind     Kind            `json:"kind"`
	Identity domain.Identity `json:"identity"`

	// create
	RoomConfig domain.RoomConfig `json:"room_config,omitempty"`

	// join
	RoomID string `json:"room_id,omitempty"`
	// ResumeParticipantID resumes a grace-period membership instead of
	// joining as a new participant.
	ResumeParticipantID string `json:"resume_participant_id,omitempty"`
}
