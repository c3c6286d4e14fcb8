// Package circuitbreaker stops calling an upstream operation after repeated
// failures and lets a single trial request through once the cooldown has passed.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

type keyState struct {
	state               state
	consecutiveFailures int
	openedAt            time.Time
}

// CircuitBreaker tracks one independent circuit per key (for example one per
// gateway operation). A threshold of 0 disables it.
type CircuitBreaker struct {
	mu        sync.Mutex
	states    map[string]*keyState
	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

func New(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		states:    make(map[string]*keyState),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

func (cb *CircuitBreaker) Allow(key string) error {
	if cb.threshold <= 0 {
		return nil
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.states[key]
	if !ok {
		return nil
	}

	switch s.state {
	case stateOpen:
		if cb.now().Sub(s.openedAt) >= cb.cooldown {
			s.state = stateHalfOpen
			return nil
		}
		return ErrCircuitOpen
	case stateHalfOpen:
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (cb *CircuitBreaker) RecordSuccess(key string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.states[key]
	if !ok {
		return
	}
	s.state = stateClosed
	s.consecutiveFailures = 0
}

func (cb *CircuitBreaker) RecordFailure(key string) {
	if cb.threshold <= 0 {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.states[key]
	if !ok {
		s = &keyState{}
		cb.states[key] = s
	}

	s.consecutiveFailures++
	// A failed half-open trial reopens immediately.
	if s.state == stateHalfOpen || s.consecutiveFailures >= cb.threshold {
		s.state = stateOpen
		s.openedAt = cb.now()
	}
}

// State returns the circuit state for key as "closed", "open" or "half_open".
func (cb *CircuitBreaker) State(key string) string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if s, ok := cb.states[key]; ok {
		return s.state.String()
	}
	return stateClosed.String()
}

// Execute runs fn under the circuit for key. Errors for which countable
// returns false (caller errors such as a rejected request) do not count
// towards the threshold. countable may be nil, in which case every error counts.
func (cb *CircuitBreaker) Execute(key string, countable func(error) bool, fn func() error) error {
	if err := cb.Allow(key); err != nil {
		return err
	}
	err := fn()
	if err == nil || (countable != nil && !countable(err)) {
		cb.RecordSuccess(key)
		return err
	}
	cb.RecordFailure(key)
	return err
}
