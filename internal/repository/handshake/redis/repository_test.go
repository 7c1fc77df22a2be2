package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cinematogether/server/internal/domain"
	"github.com/cinematogether/server/internal/repository/handshake"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, time.Minute), mr
}

func TestIntentRoundTrip(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	intent := &handshake.Intent{
		Kind:     handshake.KindCreate,
		Identity: domain.Identity{ID: "user-1", DisplayName: "Ada"},
		RoomConfig: domain.RoomConfig{
			Title:      "movie night",
			MediaRef:   "media/abc123",
			MaxMembers: 4,
		},
	}

	require.NoError(t, r.SetIntent(ctx, "token-1", intent))

	got, err := r.PopIntent(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, *intent, got)
}

func TestPopIntentIsOneShot(t *testing.T) {
	r, _ := setupRepo(t)
	ctx := context.Background()

	intent := &handshake.Intent{
		Kind:     handshake.KindJoin,
		Identity: domain.Identity{ID: "user-1", DisplayName: "Ada"},
		RoomID:   "room-1",
	}
	require.NoError(t, r.SetIntent(ctx, "token-1", intent))

	_, err := r.PopIntent(ctx, "token-1")
	require.NoError(t, err)

	_, err = r.PopIntent(ctx, "token-1")
	assert.ErrorIs(t, err, handshake.ErrIntentNotFound, "a redeemed token cannot be replayed")
}

func TestPopIntentUnknownToken(t *testing.T) {
	r, _ := setupRepo(t)

	_, err := r.PopIntent(context.Background(), "never-issued")
	assert.ErrorIs(t, err, handshake.ErrIntentNotFound)
}

func TestIntentExpires(t *testing.T) {
	r, mr := setupRepo(t)
	ctx := context.Background()

	intent := &handshake.Intent{
		Kind:   handshake.KindJoin,
		RoomID: "room-1",
	}
	require.NoError(t, r.SetIntent(ctx, "token-1", intent))

	mr.FastForward(2 * time.Minute)

	_, err := r.PopIntent(ctx, "token-1")
	assert.ErrorIs(t, err, handshake.ErrIntentNotFound, "abandoned intents expire")
}
