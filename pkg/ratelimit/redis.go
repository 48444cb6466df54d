package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared by every replica that points
// at the same redis.
type RedisLimiter struct {
	Client *redis.Client
	Limit  int64
	Window time.Duration
	Prefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		Client: client,
		Limit:  int64(limit),
		Window: window,
		Prefix: "ratelimit:",
	}
}

// Allow counts one hit for key and reports whether it is within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.Prefix + key

	n, err := l.Client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	// first hit opens the window
	if n == 1 {
		if err := l.Client.Expire(ctx, k, l.Window).Err(); err != nil {
			return false, fmt.Errorf("rate limit %s: %w", key, err)
		}
	}

	return n <= l.Limit, nil
}

func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}
