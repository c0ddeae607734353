package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

type memoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

// NewMemory returns a process-local fixed-window limiter. Counters roll over
// when their window elapses; stale entries are swept opportunistically on
// each rollover to bound memory.
func NewMemory(limit int, period time.Duration) Limiter {
	return &memoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		if !ok && len(l.windows) > 0 && len(l.windows)%1024 == 0 {
			l.sweep(now)
		}
		w = &window{resetAt: now.Add(l.period)}
		l.windows[key] = w
	}

	res := Result{Limit: l.limit, ResetAt: w.resetAt}
	if w.count >= l.limit {
		res.OK = false
		res.Remaining = 0
		return res, nil
	}
	w.count++
	res.OK = true
	res.Remaining = l.limit - w.count
	return res, nil
}

func (l *memoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
