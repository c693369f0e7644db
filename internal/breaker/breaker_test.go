package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 3, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 2})

	require.True(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, Closed, b.State())

	b.RecordFailure()
	require.Equal(t, Closed, b.State())

	b.RecordFailure()
	assert.Equal(t, Open, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_HalfOpenRequiresConsecutiveSuccesses(t *testing.T) {
	b := New(Config{FailureThreshold: 3, RecoveryTimeout: 100 * time.Millisecond, HalfOpenMaxCalls: 2})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	require.Equal(t, Open, b.State())

	time.Sleep(150 * time.Millisecond)

	require.True(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, HalfOpen, b.State(), "a single success must not close the circuit")

	b.RecordSuccess()
	assert.Equal(t, Closed, b.State(), "two consecutive successes should close with HalfOpenMaxCalls=2")
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := New(Config{FailureThreshold: 3, RecoveryTimeout: 100 * time.Millisecond, HalfOpenMaxCalls: 2})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordFailure()
	time.Sleep(150 * time.Millisecond)

	require.True(t, b.Allow())
	require.Equal(t, HalfOpen, b.State())

	b.RecordSuccess()
	require.Equal(t, HalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, Open, b.State())
}

func TestBreaker_HalfOpenLimitsConcurrentCalls(t *testing.T) {
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: 100 * time.Millisecond, HalfOpenMaxCalls: 2})

	b.RecordFailure()
	require.Equal(t, Open, b.State())
	time.Sleep(150 * time.Millisecond)

	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow(), "third half-open call should be rejected")
}

func TestRegistry_PerDomainIsolation(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, RecoveryTimeout: time.Hour, HalfOpenMaxCalls: 1})

	a := r.Get("http", "example.com")
	a.RecordFailure()
	assert.Equal(t, Open, a.State())

	b := r.Get("http", "other.com")
	assert.Equal(t, Closed, b.State())

	again := r.Get("http", "example.com")
	assert.Same(t, a, again)
}
