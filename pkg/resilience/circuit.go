// Package resilience provides the circuit breaker guarding external calls,
// so a failing dependency degrades to a fast fallback instead of cascading.
package resilience

import (
	"fmt"
	"sync"
	"time"
)

// State represents the state of a circuit breaker
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the breaker rejects a call without attempting it.
type ErrOpen struct {
	Name        string
	NextAttempt time.Time
}

func (e ErrOpen) Error() string {
	return fmt.Sprintf("circuit breaker '%s' is open until %s", e.Name, e.NextAttempt.Format(time.RFC3339))
}

// Config holds configuration for a circuit breaker
type Config struct {
	// WindowSize is the number of recent calls the failure rate is computed over
	WindowSize int

	// FailureRatePct opens the circuit when the windowed failure rate exceeds it
	FailureRatePct float64

	// MinCalls is the minimum window population before the rate is trusted
	MinCalls int

	// Cooldown is the period the circuit stays open before probing
	Cooldown time.Duration

	// OnStateChange is called when the state changes
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns the stock breaker tuning
func DefaultConfig() Config {
	return Config{
		WindowSize:     10,
		FailureRatePct: 50,
		MinCalls:       5,
		Cooldown:       60 * time.Second,
	}
}

// Stats holds statistics about circuit breaker operations
type Stats struct {
	TotalRequests   int64 `json:"total_requests"`
	TotalSuccesses  int64 `json:"total_successes"`
	TotalFailures   int64 `json:"total_failures"`
	TotalRejections int64 `json:"total_rejections"`
}

// CircuitBreaker tracks the outcome of recent calls over a sliding window and
// short-circuits when the failure rate crosses the configured threshold.
// After the cooldown a single probe call decides between closing and
// re-opening.
type CircuitBreaker struct {
	name        string
	config      Config
	state       State
	window      []bool // true = failure
	windowPos   int
	windowFill  int
	stats       Stats
	nextAttempt time.Time
	mu          sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration
func NewCircuitBreaker(name string, config Config) *CircuitBreaker {
	def := DefaultConfig()
	if config.WindowSize <= 0 {
		config.WindowSize = def.WindowSize
	}
	if config.FailureRatePct <= 0 {
		config.FailureRatePct = def.FailureRatePct
	}
	if config.MinCalls <= 0 {
		config.MinCalls = def.MinCalls
	}
	if config.Cooldown <= 0 {
		config.Cooldown = def.Cooldown
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
		window: make([]bool, config.WindowSize),
	}
}

// Allow reports whether a call may proceed. An OPEN circuit past its cooldown
// transitions to HALF_OPEN and admits one probe.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.TotalRequests++

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Now().After(cb.nextAttempt) {
			cb.setState(StateHalfOpen)
			return nil
		}
		cb.stats.TotalRejections++
		return ErrOpen{Name: cb.name, NextAttempt: cb.nextAttempt}
	case StateHalfOpen:
		// Only the probe that triggered the transition is in flight.
		cb.stats.TotalRejections++
		return ErrOpen{Name: cb.name, NextAttempt: cb.nextAttempt}
	default:
		cb.stats.TotalRejections++
		return ErrOpen{Name: cb.name, NextAttempt: cb.nextAttempt}
	}
}

// RecordSuccess reports a successful call outcome.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.TotalSuccesses++
	cb.push(false)

	if cb.state == StateHalfOpen {
		cb.resetWindow()
		cb.setState(StateClosed)
	}
}

// RecordFailure reports a failed call outcome and opens the circuit when the
// windowed failure rate crosses the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.TotalFailures++
	cb.push(true)

	switch cb.state {
	case StateClosed:
		if cb.windowFill >= cb.config.MinCalls && cb.failureRate() > cb.config.FailureRatePct {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		// The probe failed.
		cb.setState(StateOpen)
	}
}

// push records one outcome in the sliding window.
func (cb *CircuitBreaker) push(failure bool) {
	cb.window[cb.windowPos] = failure
	cb.windowPos = (cb.windowPos + 1) % len(cb.window)
	if cb.windowFill < len(cb.window) {
		cb.windowFill++
	}
}

// failureRate returns the failure percentage over the populated window.
func (cb *CircuitBreaker) failureRate() float64 {
	if cb.windowFill == 0 {
		return 0
	}
	failures := 0
	for i := 0; i < cb.windowFill; i++ {
		if cb.window[i] {
			failures++
		}
	}
	return float64(failures) / float64(cb.windowFill) * 100
}

func (cb *CircuitBreaker) resetWindow() {
	for i := range cb.window {
		cb.window[i] = false
	}
	cb.windowPos = 0
	cb.windowFill = 0
}

// setState changes the circuit breaker state and handles side effects
func (cb *CircuitBreaker) setState(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState

	if newState == StateOpen {
		cb.nextAttempt = time.Now().Add(cb.config.Cooldown)
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.name, oldState, newState)
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// Reset resets the circuit breaker to its initial state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.stats = Stats{}
	cb.resetWindow()
	cb.nextAttempt = time.Time{}

	if cb.config.OnStateChange != nil && oldState != StateClosed {
		cb.config.OnStateChange(cb.name, oldState, StateClosed)
	}
}
