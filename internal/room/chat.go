package room

import (
	"time"

	"github.com/cinematogether/server/internal/domain"
)

// chatLog is an append-only message window with strictly increasing,
// gapless sequence numbers. Only the last `size` messages are retained for
// new-joiner catch-up. Not goroutine-safe; the owning session serializes
// access.
type chatLog struct {
	roomID   string
	size     int
	seq      int64
	messages []domain.ChatMessage
}

func newChatLog(roomID string, size int) *chatLog {
	return &chatLog{
		roomID:   roomID,
		size:     size,
		messages: make([]domain.ChatMessage, 0, size),
	}
}

func (l *chatLog) append(senderID, senderName, body string, now time.Time) domain.ChatMessage {
	l.seq++
	msg := domain.ChatMessage{
		RoomID:     l.roomID,
		SenderID:   senderID,
		SenderName: senderName,
		Body:       body,
		Seq:        l.seq,
		SentAt:     now,
	}

	l.messages = append(l.messages, msg)
	if len(l.messages) > l.size {
		l.messages = l.messages[len(l.messages)-l.size:]
	}

	return msg
}

func (l *chatLog) history() []domain.ChatMessage {
	history := make([]domain.ChatMessage, len(l.messages))
	copy(history, l.messages)

	return history
}
