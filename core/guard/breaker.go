package guard

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Allow while the breaker rejects calls.
// Callers can distinguish "we refused to call" from "the remote refused".
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerState is the circuit breaker state machine position.
type BreakerState int

const (
	// StateClosed allows all calls.
	StateClosed BreakerState = iota
	// StateOpen rejects all calls without attempting the remote.
	StateOpen
	// StateHalfOpen allows a single trial call to probe recovery.
	StateHalfOpen
)

// String returns the state name for logs.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a CircuitBreaker.
type BreakerConfig struct {
	// Threshold is the consecutive-failure count that opens the breaker.
	Threshold int
	// Window bounds how long failures accumulate before the counter resets.
	Window time.Duration
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
}

// CircuitBreaker protects a rate-limited remote endpoint from being
// hammered during an outage. State is mutated only through Allow,
// RecordSuccess and RecordFailure.
type CircuitBreaker struct {
	mu sync.Mutex

	cfg          BreakerConfig
	state        BreakerState
	failures     int
	windowStart  time.Time
	openedAt     time.Time
	probing      bool
	probeStarted time.Time

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker with the given config.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, state: StateClosed, now: time.Now}
}

// Allow reports whether a call may be attempted. While open it fails fast
// with ErrCircuitOpen; after the cooldown it admits exactly one trial call.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if now.Sub(b.openedAt) < b.cfg.Cooldown {
			return fmt.Errorf("%w (cooldown remaining)", ErrCircuitOpen)
		}
		b.state = StateHalfOpen
		b.probing = true
		b.probeStarted = now
		return nil
	case StateHalfOpen:
		// A trial whose outcome was never recorded (caller aborted before
		// the remote call) goes stale after a cooldown; admit a new one so
		// the breaker keeps probing recovery.
		if b.probing && now.Sub(b.probeStarted) < b.cfg.Cooldown {
			return fmt.Errorf("%w (trial call in flight)", ErrCircuitOpen)
		}
		b.probing = true
		b.probeStarted = now
		return nil
	default:
		return fmt.Errorf("%w (unknown state)", ErrCircuitOpen)
	}
}

// RecordSuccess notes a successful remote call. In half-open state it
// closes the breaker and clears the failure counter.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	b.failures = 0
	b.state = StateClosed
}

// RecordFailure notes a failed remote call. Crossing the threshold within
// the window opens the breaker; any failure in half-open reopens it.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	if b.state == StateHalfOpen {
		b.probing = false
		b.open(now)
		return
	}

	if b.windowStart.IsZero() || now.Sub(b.windowStart) > b.cfg.Window {
		b.windowStart = now
		b.failures = 0
	}
	b.failures++
	if b.failures >= b.cfg.Threshold {
		b.open(now)
	}
}

// State returns the current state.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// open transitions to StateOpen. Caller holds the lock.
func (b *CircuitBreaker) open(now time.Time) {
	b.state = StateOpen
	b.openedAt = now
	b.failures = 0
	b.windowStart = time.Time{}
}
