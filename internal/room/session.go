package room

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cinematogether/server/internal/domain"
	"github.com/cinematogether/server/internal/metrics"
)

type State string

const (
	StateForming State = "forming"
	StateActive  State = "active"
	StateIdle    State = "idle"
	StateClosed  State = "closed"
)

type Config struct {
	GracePeriod     time.Duration
	IdleTimeout     time.Duration
	DriftTolerance  float64
	ResyncInterval  time.Duration
	ChatHistorySize int
	MaxMessageLen   int
}

func (c Config) withDefaults() Config {
	if c.GracePeriod <= 0 {
		c.GracePeriod = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.DriftTolerance <= 0 {
		c.DriftTolerance = 1.5
	}
	if c.ResyncInterval <= 0 {
		c.ResyncInterval = 5 * time.Second
	}
	if c.ChatHistorySize <= 0 {
		c.ChatHistorySize = 100
	}
	if c.MaxMessageLen <= 0 {
		c.MaxMessageLen = 500
	}

	return c
}

type iPublisher interface {
	Send(participantID string, ev domain.Event)
	Fanout(participantIDs []string, ev domain.Event)
}

// JoinResult is the catch-up snapshot handed to a joining or reconnecting
// participant.
type JoinResult struct {
	Room        domain.Room          `json:"room"`
	Participant domain.Participant   `json:"participant"`
	Player      domain.PlaybackState `json:"player"`
	Members     []domain.Participant `json:"members"`
	Messages    []domain.ChatMessage `json:"messages"`
}

// Session is the per-room state machine. All mutable room state (playback
// clock, membership, chat log) lives behind one mutex, so operations within
// a room are strictly ordered while different rooms proceed in parallel.
// Event publication happens under the lock but is enqueue-only; network
// delivery runs on the broadcaster's per-participant writers.
type Session struct {
	mu sync.Mutex

	room    domain.Room
	cfg     Config
	state   State
	clock   *clock
	members *membership
	chat    *chatLog

	events  iPublisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	// idleSince is set whenever the room has zero connected participants.
	idleSince  time.Time
	lastResync map[string]time.Time
}

func newSession(room domain.Room, cfg Config, events iPublisher, m *metrics.Metrics, logger *slog.Logger, now func() time.Time) *Session {
	createdAt := now()

	return &Session{
		room:       room,
		cfg:        cfg,
		state:      StateForming,
		clock:      newClock(room.Duration, cfg.DriftTolerance, createdAt),
		members:    newMembership(room.MaxMembers),
		chat:       newChatLog(room.ID, cfg.ChatHistorySize),
		events:     events,
		metrics:    m,
		logger:     logger.With("room_id", room.ID),
		now:        now,
		idleSince:  createdAt,
		lastResync: make(map[string]time.Time),
	}
}

func (s *Session) ID() string {
	return s.room.ID
}

func (s *Session) Room() domain.Room {
	return s.room
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Session) Info() domain.RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.RoomInfo{
		ID:             s.room.ID,
		Title:          s.room.Title,
		Visibility:     s.room.Visibility,
		MaxMembers:     s.room.MaxMembers,
		ChatEnabled:    s.room.ChatEnabled,
		MemberCount:    s.members.count(),
		ConnectedCount: s.members.connectedCount(),
		CreatedAt:      s.room.CreatedAt,
	}
}

// Join admits a participant and returns the catch-up snapshot. A known
// identity joining again takes over its existing seat and is handled like a
// reconnect: role preserved, no join notice. For fresh joins the notice
// enters the chat log before the snapshot is taken, so the joiner's history
// already contains it and nobody observes a sequence gap.
func (s *Session) Join(identity domain.Identity) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return JoinResult{}, ErrRoomClosed
	}

	if identity.ID != "" {
		if p, err := s.members.get(identity.ID); err == nil {
			return s.restoreLocked(p), nil
		}
	}

	now := s.now()
	p, err := s.members.add(identity, now)
	if err != nil {
		return JoinResult{}, fmt.Errorf("failed to add participant: %w", err)
	}

	s.state = StateActive
	s.idleSince = time.Time{}
	s.metrics.ParticipantsConnected.Inc()

	notice := s.chat.append(domain.SystemSenderID, "", p.displayName+" joined the room", now)

	others := excludeID(s.members.connectedIDs(), p.id)
	s.events.Fanout(others, domain.Event{
		Type: domain.EventMemberJoined,
		Payload: domain.MemberJoinedPayload{
			Member:  p.snapshot(),
			Members: s.members.list(),
		},
	})
	s.events.Fanout(others, domain.Event{
		Type:    domain.EventChatMessagePosted,
		Payload: domain.ChatMessagePostedPayload{Message: notice},
	})

	s.logger.Info("participant joined", "participant_id", p.id, "role", p.role)

	return s.joinResultLocked(p), nil
}

// Reconnect restores a participant that is still within its disconnect
// grace period. Role is preserved and the current snapshot is returned so
// the client can resync its player.
func (s *Session) Reconnect(participantID string) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return JoinResult{}, ErrRoomClosed
	}

	p, err := s.members.get(participantID)
	if err != nil {
		return JoinResult{}, fmt.Errorf("failed to reconnect participant: %w", err)
	}

	return s.restoreLocked(p), nil
}

// restoreLocked puts a grace-period or already-connected participant back on
// a live transport and hands out the current snapshot. The connected gauge
// moves only when the participant actually left the connected state. Caller
// holds the lock.
func (s *Session) restoreLocked(p *participant) JoinResult {
	wasConnected := p.connState == domain.ConnStateConnected
	s.members.restore(p, s.now())

	s.state = StateActive
	s.idleSince = time.Time{}
	if !wasConnected {
		s.metrics.ParticipantsConnected.Inc()
	}

	s.events.Fanout(excludeID(s.members.connectedIDs(), p.id), domain.Event{
		Type: domain.EventMemberJoined,
		Payload: domain.MemberJoinedPayload{
			Member:  p.snapshot(),
			Members: s.members.list(),
		},
	})

	s.logger.Info("participant reconnected", "participant_id", p.id, "role", p.role)

	return s.joinResultLocked(p)
}

// Leave removes a participant immediately, reassigning the host role if
// needed.
func (s *Session) Leave(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.members.get(participantID)
	if err != nil {
		return err
	}

	if p.connState == domain.ConnStateConnected {
		s.metrics.ParticipantsConnected.Dec()
	}

	s.removeLocked(p)

	return nil
}

// MarkDisconnected transitions a participant to the disconnect grace period
// after transport loss. If the grace timer fires before a reconnect the
// participant is removed for good.
func (s *Session) MarkDisconnected(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrRoomClosed
	}

	p, err := s.members.get(participantID)
	if err != nil {
		return err
	}
	if p.connState != domain.ConnStateConnected {
		return nil
	}

	if _, err := s.members.markDisconnected(participantID, s.now()); err != nil {
		return err
	}
	s.metrics.ParticipantsConnected.Dec()

	gen := p.graceGen
	p.graceTimer = time.AfterFunc(s.cfg.GracePeriod, func() {
		s.expireGrace(participantID, gen)
	})

	if s.members.connectedCount() == 0 {
		s.state = StateIdle
		s.idleSince = s.now()
	}

	s.logger.Info("participant disconnected", "participant_id", participantID, "grace_period", s.cfg.GracePeriod)

	return nil
}

// expireGrace runs on the grace timer goroutine. The generation counter
// discards fires that lost a race with a reconnect or removal.
func (s *Session) expireGrace(participantID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}

	p, err := s.members.get(participantID)
	if err != nil || p.graceGen != gen || p.connState != domain.ConnStateDisconnected {
		return
	}

	s.logger.Info("grace period expired", "participant_id", participantID)
	s.removeLocked(p)
}

// removeLocked drops a participant, emits the departure events and advances
// the room state machine. Caller holds the lock.
func (s *Session) removeLocked(p *participant) {
	departed := p.snapshot()
	promoted, _ := s.members.remove(p.id)
	delete(s.lastResync, p.id)

	now := s.now()
	notice := s.chat.append(domain.SystemSenderID, "", departed.DisplayName+" left the room", now)

	remaining := s.members.connectedIDs()
	s.events.Fanout(remaining, domain.Event{
		Type: domain.EventMemberLeft,
		Payload: domain.MemberLeftPayload{
			MemberID: departed.ID,
			Members:  s.members.list(),
		},
	})
	s.events.Fanout(remaining, domain.Event{
		Type:    domain.EventChatMessagePosted,
		Payload: domain.ChatMessagePostedPayload{Message: notice},
	})

	if promoted != nil {
		s.logger.Info("host reassigned", "host_id", promoted.id)
		s.events.Fanout(remaining, domain.Event{
			Type: domain.EventHostReassigned,
			Payload: domain.HostReassignedPayload{
				HostID:  promoted.id,
				Members: s.members.list(),
			},
		})
	}

	if s.members.connectedCount() == 0 && s.state == StateActive {
		s.state = StateIdle
		s.idleSince = now
	}

	s.logger.Info("participant removed", "participant_id", departed.ID)
}

// IssuePlaybackCommand applies a host-issued transition to the authoritative
// playback state and fans the new state out to every connected participant.
// The per-room lock is the single writer: racing commands serialize here and
// each accepted one bumps the revision by exactly one.
func (s *Session) IssuePlaybackCommand(participantID string, cmd Command) (domain.PlaybackState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return domain.PlaybackState{}, ErrRoomClosed
	}

	p, err := s.members.get(participantID)
	if err != nil {
		return domain.PlaybackState{}, err
	}

	hostID := s.members.hostID()
	if hostID == "" {
		return domain.PlaybackState{}, ErrNoHostAssigned
	}
	if p.id != hostID {
		return domain.PlaybackState{}, ErrNotAuthorized
	}

	state, err := s.clock.apply(cmd, s.now())
	if err != nil {
		return domain.PlaybackState{}, err
	}
	s.metrics.PlaybackCommandsTotal.Inc()

	s.events.Fanout(s.members.connectedIDs(), domain.Event{
		Type:    domain.EventPlaybackStateChanged,
		Payload: domain.PlaybackStateChangedPayload{Player: state},
	})

	s.logger.Debug("playback command applied", "participant_id", participantID, "command", cmd.Type, "revision", state.Revision)

	return state, nil
}

// ReportPosition takes a non-authoritative client position report and checks
// it for drift. Out-of-tolerance reports trigger at most one RESYNC_REQUIRED
// push per participant within the resync interval; authoritative state is
// never mutated here.
func (s *Session) ReportPosition(participantID string, position float64, reportedAt time.Time) (DriftVerdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return DriftVerdict{}, ErrRoomClosed
	}

	p, err := s.members.get(participantID)
	if err != nil {
		return DriftVerdict{}, err
	}
	p.lastSeen = s.now()

	verdict := s.clock.evaluateDrift(position, reportedAt)
	if verdict.Kind == DriftWithinTolerance {
		return verdict, nil
	}

	now := s.now()
	if last, ok := s.lastResync[participantID]; ok && now.Sub(last) < s.cfg.ResyncInterval {
		return verdict, nil
	}
	s.lastResync[participantID] = now
	s.metrics.ResyncsTotal.Inc()

	s.events.Send(participantID, domain.Event{
		Type: domain.EventResyncRequired,
		Payload: domain.ResyncRequiredPayload{
			Player: s.clock.snapshot(),
			Drift:  verdict.Delta,
		},
	})

	s.logger.Debug("participant drifting", "participant_id", participantID, "kind", verdict.Kind, "delta", verdict.Delta)

	return verdict, nil
}

// PostMessage appends to the chat log and broadcasts. Rooms without a host
// still accept chat.
func (s *Session) PostMessage(participantID, body string) (domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return domain.ChatMessage{}, ErrRoomClosed
	}
	if !s.room.ChatEnabled {
		return domain.ChatMessage{}, ErrChatDisabled
	}

	p, err := s.members.get(participantID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	if body == "" {
		return domain.ChatMessage{}, ErrMessageEmpty
	}
	if len(body) > s.cfg.MaxMessageLen {
		return domain.ChatMessage{}, ErrMessageTooLong
	}

	msg := s.chat.append(p.id, p.displayName, body, s.now())
	s.metrics.ChatMessagesTotal.Inc()

	s.events.Fanout(s.members.connectedIDs(), domain.Event{
		Type:    domain.EventChatMessagePosted,
		Payload: domain.ChatMessagePostedPayload{Message: msg},
	})

	return msg, nil
}

// closeIfEmpty closes the session for an explicit destroy. Fails while any
// connected or grace-period participant remains.
func (s *Session) closeIfEmpty() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	if s.members.count() > 0 {
		return ErrRoomNotEmpty
	}

	s.state = StateClosed

	return nil
}

// closeIfExpired is called by the registry sweep. A session closes once it
// has been empty past the idle timeout.
func (s *Session) closeIfExpired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return true
	}
	if s.members.count() > 0 {
		return false
	}
	if s.idleSince.IsZero() || now.Sub(s.idleSince) < s.cfg.IdleTimeout {
		return false
	}

	s.state = StateClosed
	s.logger.Info("idle room closed", "idle_since", s.idleSince)

	return true
}

func (s *Session) joinResultLocked(p *participant) JoinResult {
	return JoinResult{
		Room:        s.room,
		Participant: p.snapshot(),
		Player:      s.clock.snapshot(),
		Members:     s.members.list(),
		Messages:    s.chat.history(),
	}
}

func excludeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}

	return out
}
