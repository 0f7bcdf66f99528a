package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces rate limit keys.
const redisKeyPrefix = "forkful:ratelimit:"

// fixedWindowScript increments the window counter, starts the window on the
// first hit and returns {count, ttl_ms}.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisRateLimitStore is a fixed-window counter shared by every API
// instance through Redis.
type RedisRateLimitStore struct {
	client redis.UniversalClient
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client redis.UniversalClient) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

// Allow implements RateLimitStore.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (RateLimitDecision, error) {
	res, err := fixedWindowScript.Run(ctx, s.client,
		[]string{redisKeyPrefix + key},
		config.WindowDuration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return RateLimitDecision{}, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(res) != 2 {
		return RateLimitDecision{}, fmt.Errorf("redis rate limit: unexpected reply length %d", len(res))
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if count <= config.RequestsPerWindow {
		return RateLimitDecision{Allowed: true, Remaining: config.RequestsPerWindow - count}, nil
	}
	return RateLimitDecision{RetryAfter: retryAfterSeconds(ttl)}, nil
}
