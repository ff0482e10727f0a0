package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dline-edu/prova-backend/internal/config"
)

// SwitchTally is the server-side tab-switch counter for a (test, user)
// pair. The client-reported tally is stored for comparison but never
// trusted for review.
type SwitchTally interface {
	// Bump increments the counter and returns the new value.
	Bump(ctx context.Context, testID uuid.UUID, email string) (int64, error)
	// Current returns the counter without incrementing.
	Current(ctx context.Context, testID uuid.UUID, email string) (int64, error)
}

// RedisSwitchTally keeps the counters in Redis.
type RedisSwitchTally struct {
	rdb *redis.Client
}

// NewRedisSwitchTally creates a Redis-backed SwitchTally.
func NewRedisSwitchTally(rdb *redis.Client) *RedisSwitchTally {
	return &RedisSwitchTally{rdb: rdb}
}

// Bump increments the counter for the pair.
func (t *RedisSwitchTally) Bump(ctx context.Context, testID uuid.UUID, email string) (int64, error) {
	return t.rdb.Incr(ctx, config.CacheKey.SwitchTallyKey(testID.String(), email)).Result()
}

// Current reads the counter; a missing key counts as zero.
func (t *RedisSwitchTally) Current(ctx context.Context, testID uuid.UUID, email string) (int64, error) {
	n, err := t.rdb.Get(ctx, config.CacheKey.SwitchTallyKey(testID.String(), email)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
