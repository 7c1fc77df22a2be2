package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cinematogether/server/internal/repository/handshake"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 2 * time.Minute

type repo struct {
	rc  *redis.Client
	ttl time.Duration
}

func NewRepo(rc *redis.Client, ttl time.Duration) *repo {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &repo{rc: rc, ttl: ttl}
}

func (r repo) getIntentKey(token string) string {
	return "handshake:" + token
}

func (r repo) SetIntent(ctx context.Context, token string, intent *handshake.Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("failed to marshal intent: %w", err)
	}

	if err := r.rc.Set(ctx, r.getIntentKey(token), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set intent: %w", err)
	}

	return nil
}

// PopIntent redeems a connect token. Tokens are one-shot: the read deletes
// the key, so a replayed token fails with ErrIntentNotFound.
func (r repo) PopIntent(ctx context.Context, token string) (handshake.Intent, error) {
	data, err := r.rc.GetDel(ctx, r.getIntentKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return handshake.Intent{}, handshake.ErrIntentNotFound
		}
		return handshake.Intent{}, fmt.Errorf("failed to get intent: %w", err)
	}

	var intent handshake.Intent
	if err := json.Unmarshal([]byte(data), &intent); err != nil {
		return handshake.Intent{}, fmt.Errorf("failed to unmarshal intent: %w", err)
	}

	return intent, nil
}
