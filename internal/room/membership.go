package room

import (
	"sort"
	"time"

	"github.com/cinematogether/server/internal/domain"
	"github.com/google/uuid"
)

type participant struct {
	id          string
	displayName string
	role        domain.Role
	connState   domain.ConnState
	joinedAt    time.Time
	lastSeen    time.Time
	graceTimer  *time.Timer
	// graceGen invalidates a pending grace expiry after a reconnect; the
	// AfterFunc may already be in flight when the timer is stopped.
	graceGen uint64
}

func (p *participant) snapshot() domain.Participant {
	return domain.Participant{
		ID:          p.id,
		DisplayName: p.displayName,
		Role:        p.role,
		ConnState:   p.connState,
		JoinedAt:    p.joinedAt,
		LastSeen:    p.lastSeen,
	}
}

// membership tracks the participants of one room and the single host role.
// It is not goroutine-safe; the owning session serializes access.
type membership struct {
	limit        int
	participants map[string]*participant
}

func newMembership(limit int) *membership {
	return &membership{
		limit:        limit,
		participants: make(map[string]*participant),
	}
}

// add admits a new participant. A known identity joining again takes over
// its existing seat, keeping the role; it does not consume a second seat.
// Otherwise connected and grace-period participants both count against the
// room limit. The first participant of an empty room becomes host; so does
// the first joiner after the host seat went vacant.
func (m *membership) add(identity domain.Identity, now time.Time) (*participant, error) {
	if identity.ID != "" {
		if p, ok := m.participants[identity.ID]; ok {
			return m.restore(p, now), nil
		}
	}

	if len(m.participants) >= m.limit {
		return nil, ErrRoomFull
	}

	role := domain.RoleMember
	if m.hostID() == "" {
		role = domain.RoleHost
	}

	id := identity.ID
	if id == "" {
		id = uuid.NewString()
	}

	p := &participant{
		id:          id,
		displayName: identity.DisplayName,
		role:        role,
		connState:   domain.ConnStateConnected,
		joinedAt:    now,
		lastSeen:    now,
	}
	m.participants[p.id] = p

	return p, nil
}

func (m *membership) get(id string) (*participant, error) {
	p, ok := m.participants[id]
	if !ok {
		return nil, ErrParticipantNotFound
	}

	return p, nil
}

func (m *membership) markDisconnected(id string, now time.Time) (*participant, error) {
	p, err := m.get(id)
	if err != nil {
		return nil, err
	}

	p.connState = domain.ConnStateDisconnected
	p.lastSeen = now
	p.graceGen++

	return p, nil
}

func (m *membership) reconnect(id string, now time.Time) (*participant, error) {
	p, err := m.get(id)
	if err != nil {
		return nil, err
	}

	return m.restore(p, now), nil
}

// restore puts a participant back in the connected state, cancelling any
// pending grace expiry. Role and join time are untouched.
func (m *membership) restore(p *participant, now time.Time) *participant {
	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}
	p.graceGen++
	p.connState = domain.ConnStateConnected
	p.lastSeen = now

	return p
}

// remove drops a participant for good. If the departing participant held the
// host role the longest-tenured connected member is promoted; the promoted
// participant is returned, nil when no reassignment happened.
func (m *membership) remove(id string) (*participant, error) {
	p, err := m.get(id)
	if err != nil {
		return nil, err
	}

	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}
	p.graceGen++
	p.connState = domain.ConnStateLeft
	delete(m.participants, id)

	if p.role == domain.RoleHost {
		return m.reassignHost(), nil
	}

	return nil, nil
}

// reassignHost promotes the connected participant with the earliest join
// timestamp, participant id as tie-break. With no connected participant the
// host seat stays vacant until the next join.
func (m *membership) reassignHost() *participant {
	var oldest *participant
	for _, p := range m.participants {
		if p.connState != domain.ConnStateConnected {
			continue
		}
		if oldest == nil || p.joinedAt.Before(oldest.joinedAt) ||
			(p.joinedAt.Equal(oldest.joinedAt) && p.id < oldest.id) {
			oldest = p
		}
	}

	if oldest == nil {
		return nil
	}

	oldest.role = domain.RoleHost

	return oldest
}

func (m *membership) hostID() string {
	for _, p := range m.participants {
		if p.role == domain.RoleHost {
			return p.id
		}
	}

	return ""
}

func (m *membership) connectedIDs() []string {
	ids := make([]string, 0, len(m.participants))
	for _, p := range m.participants {
		if p.connState == domain.ConnStateConnected {
			ids = append(ids, p.id)
		}
	}

	return ids
}

func (m *membership) connectedCount() int {
	n := 0
	for _, p := range m.participants {
		if p.connState == domain.ConnStateConnected {
			n++
		}
	}

	return n
}

func (m *membership) count() int {
	return len(m.participants)
}

// list returns a stable snapshot ordered by join time.
func (m *membership) list() []domain.Participant {
	members := make([]domain.Participant, 0, len(m.participants))
	for _, p := range m.participants {
		members = append(members, p.snapshot())
	}

	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].ID < members[j].ID
	})

	return members
}
