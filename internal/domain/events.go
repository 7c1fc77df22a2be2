package domain

type EventType string

const (
	EventPlaybackStateChanged EventType = "PLAYBACK_STATE_CHANGED"
	EventMemberJoined         EventType = "MEMBER_JOINED"
	EventMemberLeft           EventType = "MEMBER_LEFT"
	EventHostReassigned       EventType = "HOST_REASSIGNED"
	EventChatMessagePosted    EventType = "CHAT_MESSAGE_POSTED"
	EventResyncRequired       EventType = "RESYNC_REQUIRED"
)

// Event is a push frame delivered to connected participants. Payloads are
// plain structs from this package so the wire shape matches the rest api.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type MemberJoinedPayload struct {
	Member  Participant   `json:"member"`
	Members []Participant `json:"members"`
}

type MemberLeftPayload struct {
	MemberID string        `json:"member_id"`
	Members  []Participant `json:"members"`
}

type HostReassignedPayload struct {
	HostID  string        `json:"host_id"`
	Members []Participant `json:"members"`
}

type PlaybackStateChangedPayload struct {
	Player PlaybackState `json:"player"`
}

type ChatMessagePostedPayload struct {
	Message ChatMessage `json:"message"`
}

type ResyncRequiredPayload struct {
	Player PlaybackState `json:"player"`
	// Drift is the reported offset from the authoritative position in
	// seconds, positive when the client ran ahead.
	Drift float64 `json:"drift"`
}
