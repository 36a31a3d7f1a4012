// Package ratelimit 实现固定窗口的请求计数。
// 窗口在边界处整体重置，跨边界最多放行 2×max 个请求，这是已知并接受的近似。
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Result 是一次计数的判定结果。
type Result struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

// CounterStore 是可注入的计数器存储。
// 单进程部署用内存实现，多进程共享限额时换用 Redis 实现。
type CounterStore interface {
	// Incr 先对 key 在当前窗口内的计数加一，再与 max 比较。
	Incr(ctx context.Context, key string, window time.Duration, max int64) (Result, error)
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// memoryCounterStore 是进程内的计数器实现，计数不跨进程共享。
type memoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

// NewMemoryCounterStore 创建一个内存计数器存储。
func NewMemoryCounterStore() CounterStore {
	return &memoryCounterStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

// Incr 原子地对 key 计数；窗口到期时惰性重置。
func (s *memoryCounterStore) Incr(_ context.Context, key string, window time.Duration, max int64) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++

	remaining := max - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   w.count <= max,
		Remaining: remaining,
		ResetAt:   w.resetAt,
	}, nil
}
