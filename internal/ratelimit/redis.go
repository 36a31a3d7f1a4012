package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// redisCounterStore 把窗口计数放在 Redis 中，多个服务进程共享同一份限额。
type redisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore 创建一个基于 Redis 的计数器存储。
func NewRedisCounterStore(client *redis.Client) CounterStore {
	return &redisCounterStore{client: client}
}

// Incr 用 INCR + 首次命中设置过期时间实现固定窗口。
// INCR 自身是原子的，并发请求不会丢失计数。
func (s *redisCounterStore) Incr(ctx context.Context, key string, window time.Duration, max int64) (Result, error) {
	redisKey := "ratelimit:" + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("failed to increment counter: %w", err)
	}
	if count == 1 {
		// 窗口的第一个请求负责设置过期时间
		if err := s.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return Result{}, fmt.Errorf("failed to set counter expiry: %w", err)
		}
	}

	resetAt := time.Now().Add(window)
	if ttl, err := s.client.PTTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
		resetAt = time.Now().Add(ttl)
	}

	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
