package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OpenRedisPool initializes a Redis connection pool and checks it with a ping.
func OpenRedisPool(ctx context.Context, dsn string) (*redis.Client, error) {
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opt.PoolSize = 50
	opt.MinIdleConns = 2
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 2 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// RedisLimiter counts requests in fixed windows shared by every instance
// pointed at the same Redis.
type RedisLimiter struct {
	client *redis.Client
	limits []RateLimit
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, limits []RateLimit) *RedisLimiter {
	return &RedisLimiter{client: client, limits: limits, now: time.Now}
}

// Allow charges one request for key against every window. The counters and
// their expiry are set in a single MULTI so a crash cannot leave a key without TTL.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if len(l.limits) == 0 {
		return Decision{Allowed: true}, nil
	}
	now := l.now()

	counts := make([]*redis.IntCmd, len(l.limits))
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, limit := range l.limits {
			bucketKey := fmt.Sprintf("ratelimit:%s:%d:%d", key, int64(limit.Window/time.Second), windowStart(now, limit.Window).Unix())
			counts[i] = pipe.Incr(ctx, bucketKey)
			pipe.Expire(ctx, bucketKey, limit.Window)
		}
		return nil
	})
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("rate limit counters: %w", err)
	}

	hits := make([]int64, len(counts))
	for i, cmd := range counts {
		hits[i] = cmd.Val()
	}
	return decide(now, l.limits, hits), nil
}
