package domain

import "time"

type Role string

const (
	RoleHost   Role = "host"
	RoleMember Role = "member"
)

type ConnState string

const (
	ConnStateConnected    ConnState = "connected"
	ConnStateDisconnected ConnState = "disconnected"
	ConnStateLeft         ConnState = "left"
)

// Identity is a verified participant identity supplied by the external
// identity provider, or a locally minted guest.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Guest       bool   `json:"guest"`
}

type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`
	ConnState   ConnState `json:"conn_state"`
	JoinedAt    time.Time `json:"joined_at"`
	LastSeen    time.Time `json:"last_seen"`
}

func (p Participant) IsHost() bool {
	return p.Role == RoleHost
}
