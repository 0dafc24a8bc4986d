package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/floodline/portal-api/internal/core/port"
)

// AttemptStore counts request attempts in fixed windows backed by Redis
// counters. The counter key expires with the window, so a fresh window starts
// at zero.
type AttemptStore struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewAttemptStore constructs a store. The window bounds both the counting
// interval and the key TTL.
func NewAttemptStore(client *redis.Client, prefix string, window time.Duration) *AttemptStore {
	if window <= 0 {
		window = time.Minute
	}
	return &AttemptStore{client: client, prefix: prefix, window: window}
}

// IncrementAttempts records one attempt for key and returns the total inside
// the currently open window.
func (s *AttemptStore) IncrementAttempts(ctx context.Context, key string) (int64, error) {
	fullKey := fmt.Sprintf("%s:%s", s.prefix, key)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr attempts: %w", err)
	}

	return incr.Val(), nil
}

var _ port.AttemptStore = (*AttemptStore)(nil)
