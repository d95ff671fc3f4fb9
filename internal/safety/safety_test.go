package safety

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("klines", CircuitBreakerConfig{FailureThreshold: 2, Timeout: 30 * time.Second})
	cb.SetClock(func() time.Time { return now })

	var transitions []string
	cb.SetStateChangeCallback(func(from, to CircuitBreakerState) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	boom := errors.New("boom")
	assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.ErrorIs(t, cb.Call(func() error { return boom }), boom)
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(31 * time.Second)
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("klines", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Second})
	cb.SetClock(func() time.Time { return now })

	_ = cb.Call(func() error { return errors.New("x") })
	now = now.Add(2 * time.Second)
	_ = cb.Call(func() error { return errors.New("y") })
	assert.Equal(t, StateOpen, cb.GetState())
	assert.Equal(t, "OPEN", cb.GetStats().State)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestRateLimiter_Refill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter("klines", 2, 4)
	rl.SetClock(func() time.Time { return now })

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	now = now.Add(250 * time.Millisecond)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	now = now.Add(10 * time.Second)
	assert.Equal(t, 2.0, rl.GetStats().Tokens)
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	rl := NewRateLimiter("klines", 1, 0.001)
	assert.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, rl.Wait(ctx), context.DeadlineExceeded)
}
