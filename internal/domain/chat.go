package domain

import "time"

// SystemSenderID marks messages emitted by the room itself (join/leave
// notices). They consume the same sequence space as participant messages so
// the log stays gapless.
const SystemSenderID = "system"

type ChatMessage struct {
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"body"`
	Seq        int64     `json:"seq"`
	SentAt     time.Time `json:"sent_at"`
}

func (m ChatMessage) IsSystem() bool {
	return m.SenderID == SystemSenderID
}
