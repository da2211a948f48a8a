package guard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned by non-blocking checks when the window is full.
// Distinct from remote-call failures: the remote was never contacted.
var ErrRateLimited = errors.New("rate limit window full")

// RateLimiter throttles outbound calls with a sliding window of call
// timestamps. It is a soft guardrail: it delays work, never drops it.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time

	now func() time.Time
}

// NewRateLimiter creates a limiter allowing limit calls per window.
// Non-positive values fall back to a usable configuration; a limiter can
// throttle throughput but must never wedge or panic.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow reports whether a call may proceed right now, without recording it.
func (l *RateLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.stamps) < l.limit
}

// Record registers one call in the window.
func (l *RateLimiter) Record() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.prune(now)
	l.stamps = append(l.stamps, now)
}

// Wait blocks until a slot is free (or ctx is done), then records the call.
func (l *RateLimiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.now()
		l.prune(now)
		if len(l.stamps) < l.limit {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()
			return nil
		}
		// Sleep until the oldest stamp falls out of the window.
		wakeAt := l.stamps[0].Add(l.window)
		l.mu.Unlock()

		timer := time.NewTimer(time.Until(wakeAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InFlight returns the number of calls currently inside the window.
func (l *RateLimiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.stamps)
}

// prune drops stamps older than the window. Caller holds the lock.
func (l *RateLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}
