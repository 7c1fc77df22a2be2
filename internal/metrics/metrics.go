package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors shared across the server. All
// series carry the cinematogether namespace.
type Metrics struct {
	RoomsActive           prometheus.Gauge
	ParticipantsConnected prometheus.Gauge
	ChatMessagesTotal     prometheus.Counter
	PlaybackCommandsTotal prometheus.Counter
	ResyncsTotal          prometheus.Counter
	BroadcastDropsTotal   prometheus.Counter
	EventsDeliveredTotal  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cinematogether",
			Name:      "rooms_active",
			Help:      "Number of rooms currently registered.",
		}),
		ParticipantsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cinematogether",
			Name:      "participants_connected",
			Help:      "Number of participants with a live connection.",
		}),
		ChatMessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cinematogether",
			Name:      "chat_messages_total",
			Help:      "Chat messages accepted across all rooms.",
		}),
		PlaybackCommandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cinematogether",
			Name:      "playback_commands_total",
			Help:      "Accepted host playback commands.",
		}),
		ResyncsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cinematogether",
			Name:      "resyncs_total",
			Help:      "Forced resync pushes sent to drifting participants.",
		}),
		BroadcastDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cinematogether",
			Name:      "broadcast_drops_total",
			Help:      "Events abandoned because a participant queue was full or delivery timed out.",
		}),
		EventsDeliveredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cinematogether",
			Name:      "events_delivered_total",
			Help:      "Events written to participant connections.",
		}),
	}

	reg.MustRegister(
		m.RoomsActive,
		m.ParticipantsConnected,
		m.ChatMessagesTotal,
		m.PlaybackCommandsTotal,
		m.ResyncsTotal,
		m.BroadcastDropsTotal,
		m.EventsDeliveredTotal,
	)

	return m
}
