package broadcast

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cinematogether/server/internal/domain"
	"github.com/cinematogether/server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink records delivered events. block makes WriteEvent hang until
// release is closed, simulating a stalled connection.
type captureSink struct {
	mu       sync.Mutex
	events   []domain.Event
	attempts int
	err      error
	release  chan struct{}
}

func (s *captureSink) WriteEvent(ev domain.Event) error {
	if s.release != nil {
		<-s.release
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)

	return nil
}

func (s *captureSink) attempted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts
}

func (s *captureSink) delivered() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Event, len(s.events))
	copy(out, s.events)

	return out
}

func newTestBroadcaster() *Broadcaster {
	return New(metrics.New(prometheus.NewRegistry()), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func chatEvent(body string) domain.Event {
	return domain.Event{
		Type:    domain.EventChatMessagePosted,
		Payload: domain.ChatMessagePostedPayload{Message: domain.ChatMessage{Body: body}},
	}
}

func TestBroadcasterDeliversInOrder(t *testing.T) {
	b := newTestBroadcaster()
	sink := &captureSink{}
	b.Subscribe("user-1", sink)
	defer b.Unsubscribe("user-1")

	const n = 20
	for i := 0; i < n; i++ {
		b.Send("user-1", chatEvent(fmt.Sprintf("msg-%d", i)))
	}

	require.Eventually(t, func() bool {
		return len(sink.delivered()) == n
	}, time.Second, 5*time.Millisecond)

	for i, ev := range sink.delivered() {
		msg := ev.Payload.(domain.ChatMessagePostedPayload).Message
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msg.Body)
	}
}

func TestBroadcasterFanout(t *testing.T) {
	b := newTestBroadcaster()
	s1, s2 := &captureSink{}, &captureSink{}
	b.Subscribe("user-1", s1)
	b.Subscribe("user-2", s2)
	defer b.Unsubscribe("user-1")
	defer b.Unsubscribe("user-2")

	b.Fanout([]string{"user-1", "user-2", "ghost"}, chatEvent("hello"))

	require.Eventually(t, func() bool {
		return len(s1.delivered()) == 1 && len(s2.delivered()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBroadcasterSlowSubscriberIsolated(t *testing.T) {
	b := newTestBroadcaster()

	release := make(chan struct{})
	slow := &captureSink{release: release}
	fast := &captureSink{}
	b.Subscribe("slow", slow)
	b.Subscribe("fast", fast)
	defer b.Unsubscribe("slow")
	defer b.Unsubscribe("fast")

	// overflow the stalled subscriber's queue; one event may be parked in
	// its writer already
	for i := 0; i < defaultQueueSize+10; i++ {
		b.Fanout([]string{"slow", "fast"}, chatEvent(fmt.Sprintf("msg-%d", i)))
	}

	require.Eventually(t, func() bool {
		return len(fast.delivered()) == defaultQueueSize+10
	}, time.Second, 5*time.Millisecond, "the fast subscriber gets everything")

	close(release)
	require.Eventually(t, func() bool {
		return len(slow.delivered()) >= defaultQueueSize
	}, time.Second, 5*time.Millisecond)
	assert.Less(t, len(slow.delivered()), defaultQueueSize+10, "overflow events were dropped, not queued")
}

func TestBroadcasterWriteErrorSkipsEvent(t *testing.T) {
	b := newTestBroadcaster()
	sink := &captureSink{err: errors.New("connection reset")}
	b.Subscribe("user-1", sink)
	defer b.Unsubscribe("user-1")

	b.Send("user-1", chatEvent("lost"))
	require.Eventually(t, func() bool {
		return sink.attempted() == 1
	}, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	b.Send("user-1", chatEvent("delivered"))

	require.Eventually(t, func() bool {
		evs := sink.delivered()
		return len(evs) == 1 && evs[0].Payload.(domain.ChatMessagePostedPayload).Message.Body == "delivered"
	}, time.Second, 5*time.Millisecond)
}

func TestBroadcasterResubscribeReplaces(t *testing.T) {
	b := newTestBroadcaster()
	old := &captureSink{}
	b.Subscribe("user-1", old)

	replacement := &captureSink{}
	b.Subscribe("user-1", replacement)
	defer b.Unsubscribe("user-1")

	b.Send("user-1", chatEvent("hello"))

	require.Eventually(t, func() bool {
		return len(replacement.delivered()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, old.delivered())
}

func TestBroadcasterUnsubscribedSendIsNoop(t *testing.T) {
	b := newTestBroadcaster()
	sink := &captureSink{}
	b.Subscribe("user-1", sink)
	b.Unsubscribe("user-1")

	b.Send("user-1", chatEvent("after"))

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, sink.delivered())
}
