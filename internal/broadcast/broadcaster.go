// Package broadcast fans room events out to connected participants. Each
// participant gets a buffered outbound queue drained by its own writer
// goroutine, so enqueueing never blocks on network delivery and events for
// one participant are written in the order they were committed.
package broadcast

import (
	"log/slog"
	"sync"

	"github.com/cinematogether/server/internal/domain"
	"github.com/cinematogether/server/internal/metrics"
)

const defaultQueueSize = 64

// Sink is one participant's delivery endpoint. Implementations are expected
// to bound each write with a deadline; a failed or timed-out write abandons
// that delivery only.
type Sink interface {
	WriteEvent(ev domain.Event) error
}

type subscriber struct {
	queue chan domain.Event
	done  chan struct{}
}

type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]*subscriber

	queueSize int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(m *metrics.Metrics, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:      make(map[string]*subscriber),
		queueSize: defaultQueueSize,
		metrics:   m,
		logger:    logger,
	}
}

// Subscribe registers a participant's sink and starts its writer. A second
// subscription for the same participant replaces the first one.
func (b *Broadcaster) Subscribe(participantID string, sink Sink) {
	sub := &subscriber{
		queue: make(chan domain.Event, b.queueSize),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	if old, ok := b.subs[participantID]; ok {
		close(old.done)
	}
	b.subs[participantID] = sub
	b.mu.Unlock()

	go b.writeLoop(participantID, sub, sink)
}

func (b *Broadcaster) Unsubscribe(participantID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[participantID]; ok {
		close(sub.done)
		delete(b.subs, participantID)
	}
}

// Send enqueues an event for one participant. Delivery is best-effort: an
// unknown participant or a full queue drops the event and never blocks the
// caller.
func (b *Broadcaster) Send(participantID string, ev domain.Event) {
	b.mu.RLock()
	sub, ok := b.subs[participantID]
	b.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case sub.queue <- ev:
	default:
		b.metrics.BroadcastDropsTotal.Inc()
		b.logger.Warn("participant queue full, dropping event", "participant_id", participantID, "event", ev.Type)
	}
}

// Fanout enqueues an event for every listed participant. A slow or missing
// participant never affects delivery to the others.
func (b *Broadcaster) Fanout(participantIDs []string, ev domain.Event) {
	for _, id := range participantIDs {
		b.Send(id, ev)
	}
}

func (b *Broadcaster) writeLoop(participantID string, sub *subscriber, sink Sink) {
	for {
		select {
		case <-sub.done:
			return
		case ev := <-sub.queue:
			if err := sink.WriteEvent(ev); err != nil {
				// Slow or dead connection. Abandon this delivery; the
				// read loop owns tearing the connection down.
				b.metrics.BroadcastDropsTotal.Inc()
				b.logger.Warn("failed to deliver event", "participant_id", participantID, "event", ev.Type, "error", err)
				continue
			}
			b.metrics.EventsDeliveredTotal.Inc()
		}
	}
}
