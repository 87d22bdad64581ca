package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryGuard is an in-process Guard for tests and single-node development
// runs. It serializes check-then-mark with a mutex, which is only correct
// within one process; production uses RedisGuard.
type MemoryGuard struct {
	mu       sync.Mutex
	consumed map[string]time.Time
	counters map[string]*windowCounter
	now      func() time.Time
}

type windowCounter struct {
	count   int64
	expires time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		consumed: make(map[string]time.Time),
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

func (g *MemoryGuard) MarkConsumed(_ context.Context, tokenID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if exp, ok := g.consumed[tokenID]; ok && exp.After(now) {
		return false, nil
	}
	g.consumed[tokenID] = now.Add(ttl)
	return true, nil
}

func (g *MemoryGuard) IsConsumed(_ context.Context, tokenID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	exp, ok := g.consumed[tokenID]
	if !ok || !exp.After(g.now()) {
		return false, nil
	}
	return true, nil
}

func (g *MemoryGuard) IncrAttempt(_ context.Context, key string, window time.Duration) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	c, ok := g.counters[key]
	if !ok || !c.expires.After(now) {
		c = &windowCounter{expires: now.Add(window)}
		g.counters[key] = c
	}
	c.count++
	return c.count, nil
}

func (g *MemoryGuard) Attempts(_ context.Context, key string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.counters[key]
	if !ok || !c.expires.After(g.now()) {
		return 0, nil
	}
	return c.count, nil
}
