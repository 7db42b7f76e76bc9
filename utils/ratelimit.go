package utils

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of charging one request against the configured limits.
type Decision struct {
	Allowed    bool
	Limit      RateLimit
	RetryAfter time.Duration
}

// windowStart aligns t to the start of its fixed window.
func windowStart(t time.Time, window time.Duration) time.Time {
	return t.Truncate(window)
}

// decide reports the first limit exceeded by hits, where hits[i] is the count
// for limits[i] including the current request.
func decide(now time.Time, limits []RateLimit, hits []int64) Decision {
	for i, limit := range limits {
		if hits[i] > int64(limit.Requests) {
			return Decision{
				Allowed:    false,
				Limit:      limit,
				RetryAfter: windowStart(now, limit.Window).Add(limit.Window).Sub(now),
			}
		}
	}
	return Decision{Allowed: true}
}

// MemoryLimiter is the single-process fallback used when no Redis is configured.
type MemoryLimiter struct {
	limits []RateLimit
	now    func() time.Time

	mu       sync.Mutex
	counters map[memoryKey]int64
	swept    time.Time
}

type memoryKey struct {
	client string
	window time.Duration
	start  int64
}

func NewMemoryLimiter(limits []RateLimit) *MemoryLimiter {
	return &MemoryLimiter{
		limits:   limits,
		now:      time.Now,
		counters: make(map[memoryKey]int64),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	if len(l.limits) == 0 {
		return Decision{Allowed: true}, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	hits := make([]int64, len(l.limits))
	for i, limit := range l.limits {
		k := memoryKey{client: key, window: limit.Window, start: windowStart(now, limit.Window).Unix()}
		l.counters[k]++
		hits[i] = l.counters[k]
	}
	return decide(now, l.limits, hits), nil
}

// sweep drops counters for windows that have closed, at most once a minute.
func (l *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(l.swept) < time.Minute {
		return
	}
	l.swept = now
	for k := range l.counters {
		if time.Unix(k.start, 0).Add(k.window).Before(now) {
			delete(l.counters, k)
		}
	}
}
