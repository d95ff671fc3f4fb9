package safety

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call while the breaker rejects requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of the circuit breaker state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold uint32        // consecutive failures before opening
	SuccessThreshold uint32        // successes in half-open before closing
	Timeout          time.Duration // time spent open before a trial call
}

// CircuitBreaker stops calls to a failing dependency for a cool-down period.
type CircuitBreaker struct {
	config        CircuitBreakerConfig
	name          string
	now           func() time.Time
	onStateChange func(from, to CircuitBreakerState)

	mutex       sync.Mutex
	state       CircuitBreakerState
	failures    uint32
	successes   uint32
	lastFailure time.Time
	nextAttempt time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &CircuitBreaker{
		config: config,
		name:   name,
		now:    time.Now,
		state:  StateClosed,
	}
}

// SetClock overrides time.Now.
func (cb *CircuitBreaker) SetClock(now func() time.Time) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.now = now
}

// SetStateChangeCallback sets a callback run on every transition. It is
// called synchronously without the breaker lock held.
func (cb *CircuitBreaker) SetStateChangeCallback(callback func(from, to CircuitBreakerState)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = callback
}

// Call executes fn unless the breaker is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.canExecute() {
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	}

	if err := fn(); err != nil {
		cb.record(false)
		return err
	}
	cb.record(true)
	return nil
}

func (cb *CircuitBreaker) canExecute() bool {
	cb.mutex.Lock()
	from, to, allowed := cb.state, cb.state, true
	if cb.state == StateOpen {
		if cb.now().Before(cb.nextAttempt) {
			allowed = false
		} else {
			cb.state = StateHalfOpen
			cb.successes = 0
			to = StateHalfOpen
		}
	}
	callback := cb.onStateChange
	cb.mutex.Unlock()

	if callback != nil && from != to {
		callback(from, to)
	}
	return allowed
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mutex.Lock()
	from := cb.state
	if success {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				cb.state = StateClosed
				cb.successes = 0
			}
		}
	} else {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.successes = 0
			cb.nextAttempt = cb.now().Add(cb.config.Timeout)
		}
	}
	to := cb.state
	callback := cb.onStateChange
	cb.mutex.Unlock()

	if callback != nil && from != to {
		callback(from, to)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// CircuitBreakerStats holds statistics about a circuit breaker
type CircuitBreakerStats struct {
	Name        string    `json:"name"`
	State       string    `json:"state"`
	Failures    uint32    `json:"failures"`
	LastFailure time.Time `json:"last_failure"`
	NextAttempt time.Time `json:"next_attempt"`
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return CircuitBreakerStats{
		Name:        cb.name,
		State:       cb.state.String(),
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
		NextAttempt: cb.nextAttempt,
	}
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
}
