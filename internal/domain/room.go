package domain

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// RoomConfig is the caller-supplied shape of a room. Duration is the known
// media length in seconds, 0 when the media origin did not report one.
type RoomConfig struct {
	Title       string     `json:"title"`
	MediaRef    string     `json:"media_ref"`
	Visibility  Visibility `json:"visibility"`
	MaxMembers  int        `json:"max_members"`
	ChatEnabled bool       `json:"chat_enabled"`
	Duration    float64    `json:"duration"`
}

type Room struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	MediaRef    string     `json:"media_ref"`
	Visibility  Visibility `json:"visibility"`
	MaxMembers  int        `json:"max_members"`
	ChatEnabled bool       `json:"chat_enabled"`
	Duration    float64    `json:"duration"`
	CreatedAt   time.Time  `json:"created_at"`
}

// RoomInfo is the public snapshot served over rest.
type RoomInfo struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Visibility     Visibility `json:"visibility"`
	MaxMembers     int        `json:"max_members"`
	ChatEnabled    bool       `json:"chat_enabled"`
	MemberCount    int        `json:"member_count"`
	ConnectedCount int        `json:"connected_count"`
	CreatedAt      time.Time  `json:"created_at"`
}
