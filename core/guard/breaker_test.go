package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := NewCircuitBreaker(BreakerConfig{
		Threshold: threshold,
		Window:    time.Minute,
		Cooldown:  cooldown,
	})
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, 30*time.Second)

	require.NoError(t, b.Allow())
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b, now := newTestBreaker(1, 30*time.Second)

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	require.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	// After the cooldown one trial call is admitted.
	*now = now.Add(31 * time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	// A second caller is rejected while the trial is in flight.
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b, now := newTestBreaker(1, 30*time.Second)

	b.RecordFailure()
	*now = now.Add(31 * time.Second)
	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreakerStaleTrialTimesOut(t *testing.T) {
	b, now := newTestBreaker(1, 30*time.Second)

	b.RecordFailure()
	*now = now.Add(31 * time.Second)
	require.NoError(t, b.Allow())
	require.Equal(t, StateHalfOpen, b.State())

	// The admitted trial never reports an outcome (the caller aborted
	// before reaching the remote). The breaker must not stay wedged.
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	*now = now.Add(time.Hour)
	require.NoError(t, b.Allow(), "a stale trial is released after a cooldown")
	assert.Equal(t, StateHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerWindowResetsCounter(t *testing.T) {
	b, now := newTestBreaker(3, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()

	// Window elapses; stale failures no longer count toward the threshold.
	*now = now.Add(2 * time.Minute)
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}
