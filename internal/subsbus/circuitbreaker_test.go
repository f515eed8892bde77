package subsbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	now := time.Now()

	for i := 0; i < 3; i++ {
		ok, err := cb.Allow(now)
		require.NoError(t, err)
		assert.True(t, ok)
		cb.RecordFailure(now)
	}

	assert.Equal(t, Open, cb.State())
	ok, err := cb.Allow(now)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCircuitBreakerHalfOpenProbeSuccessCloses(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Second)
	now := time.Now()

	ok, _ := cb.Allow(now)
	require.True(t, ok)
	cb.RecordFailure(now)
	require.Equal(t, Open, cb.State())

	later := now.Add(2 * time.Second)
	ok, err := cb.Allow(later)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, HalfOpen, cb.State())

	cb.RecordSuccess()
	assert.Equal(t, Closed, cb.State())
}

func TestCircuitBreakerHalfOpenProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Second)
	now := time.Now()

	cb.Allow(now)
	cb.RecordFailure(now)

	later := now.Add(2 * time.Second)
	ok, _ := cb.Allow(later)
	require.True(t, ok)

	cb.RecordFailure(later)
	assert.Equal(t, Open, cb.State())
}

func TestCircuitBreakerHalfOpenRejectsConcurrentProbe(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Second)
	now := time.Now()
	cb.Allow(now)
	cb.RecordFailure(now)

	later := now.Add(2 * time.Second)
	ok, err := cb.Allow(later)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = cb.Allow(later)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)
	now := time.Now()

	cb.Allow(now)
	cb.RecordFailure(now)
	cb.Allow(now)
	cb.RecordSuccess()
	cb.Allow(now)
	cb.RecordFailure(now)
	cb.Allow(now)
	cb.RecordFailure(now)

	assert.Equal(t, Closed, cb.State())
}
