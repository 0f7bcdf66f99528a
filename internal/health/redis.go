// Package health provides readiness checks for the catalog database and
// the Redis instance backing the shared rate limiter.
package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker checks a Redis instance with PING.
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck sends a PING command.
func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
