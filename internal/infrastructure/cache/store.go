package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the read-through cache used for application reads. Writes through
// the state machine invalidate by key or prefix after commit; a stale read in
// the window between commit and invalidation is acceptable because mutating
// calls always re-read the committed row.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
	InvalidatePrefix(ctx context.Context, prefix string)
}

type RedisStore struct{ rdb *redis.Client }

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	v, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	// best effort; a failed Set only costs a cache miss
	_ = s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	_ = s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) InvalidatePrefix(ctx context.Context, prefix string) {
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = s.rdb.Del(ctx, keys...).Err()
	}
}

// Cache key conventions shared by readers and invalidators.
func ApplicationKey(displayOrAppID string) string { return "app:" + displayOrAppID }
func BusinessPrefix(businessID string) string     { return "biz:" + businessID + ":" }
func UserPrefix(userID string) string             { return "user:" + userID + ":" }
