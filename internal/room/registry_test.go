package room

import (
	"testing"
	"time"

	"github.com/cinematogether/server/internal/domain"
	"github.com/cinematogether/server/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, cfg Config) *Registry {
	t.Helper()

	return NewRegistry(&eventRecorder{}, metrics.New(prometheus.NewRegistry()), cfg, time.Second, testLogger())
}

func validRoomConfig() domain.RoomConfig {
	return domain.RoomConfig{
		Title:       "movie night",
		MediaRef:    "media/abc123",
		MaxMembers:  4,
		ChatEnabled: true,
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := newTestRegistry(t, Config{})

	session, err := r.CreateRoom(validRoomConfig())
	require.NoError(t, err)
	require.Len(t, session.ID(), roomIDLength)
	assert.Equal(t, StateForming, session.State())
	assert.Equal(t, domain.VisibilityPublic, session.Room().Visibility, "visibility defaults to public")

	got, err := r.GetRoom(session.ID())
	require.NoError(t, err)
	assert.Same(t, session, got)

	_, err = r.GetRoom("missing1")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistryValidateConfig(t *testing.T) {
	r := newTestRegistry(t, Config{})

	tests := []struct {
		name   string
		mutate func(*domain.RoomConfig)
	}{
		{"empty title", func(c *domain.RoomConfig) { c.Title = "  " }},
		{"title too long", func(c *domain.RoomConfig) { c.Title = string(make([]byte, maxTitleLen+1)) }},
		{"too few members", func(c *domain.RoomConfig) { c.MaxMembers = 1 }},
		{"too many members", func(c *domain.RoomConfig) { c.MaxMembers = MaxRoomMembers + 1 }},
		{"bad visibility", func(c *domain.RoomConfig) { c.Visibility = "friends-only" }},
		{"negative duration", func(c *domain.RoomConfig) { c.Duration = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validRoomConfig()
			tt.mutate(&cfg)

			_, err := r.CreateRoom(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	assert.Equal(t, 0, r.Len(), "rejected configs register nothing")
}

func TestRegistryDestroyRoom(t *testing.T) {
	r := newTestRegistry(t, Config{})

	session, err := r.CreateRoom(validRoomConfig())
	require.NoError(t, err)

	_, err = session.Join(domain.Identity{ID: "x", DisplayName: "X"})
	require.NoError(t, err)

	err = r.DestroyRoom(session.ID())
	assert.ErrorIs(t, err, ErrRoomNotEmpty)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, session.Leave("x"))

	require.NoError(t, r.DestroyRoom(session.ID()))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, StateClosed, session.State())

	err = r.DestroyRoom(session.ID())
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistryListPublic(t *testing.T) {
	r := newTestRegistry(t, Config{})

	pub, err := r.CreateRoom(validRoomConfig())
	require.NoError(t, err)

	privCfg := validRoomConfig()
	privCfg.Visibility = domain.VisibilityPrivate
	priv, err := r.CreateRoom(privCfg)
	require.NoError(t, err)

	infos := r.ListPublic()
	require.Len(t, infos, 1)
	assert.Equal(t, pub.ID(), infos[0].ID)

	// private rooms stay joinable by id
	_, err = r.GetRoom(priv.ID())
	assert.NoError(t, err)
}

func TestRegistrySweepClosesIdleRooms(t *testing.T) {
	r := newTestRegistry(t, Config{IdleTimeout: time.Minute})

	idle, err := r.CreateRoom(validRoomConfig())
	require.NoError(t, err)

	occupied, err := r.CreateRoom(validRoomConfig())
	require.NoError(t, err)
	_, err = occupied.Join(domain.Identity{ID: "x", DisplayName: "X"})
	require.NoError(t, err)

	r.sweep(time.Now())
	assert.Equal(t, 2, r.Len(), "idle timeout not reached yet")

	r.sweep(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, StateClosed, idle.State())
	assert.Equal(t, StateActive, occupied.State(), "occupied rooms survive the sweep")
}
