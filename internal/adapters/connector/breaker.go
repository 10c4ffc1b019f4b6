package connector

import (
	"sync"
	"time"
)

// State is the state of a circuit breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota

	// StateOpen blocks calls until the cooldown has passed.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

// String returns a human-readable name for the state.
func (s State) String() string {
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

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int

	// Cooldown is how long the circuit stays open before probing.
	Cooldown time.Duration

	// HalfOpenLimit bounds the probes in flight, and is also the number of
	// consecutive successful probes that close the circuit.
	HalfOpenLimit int
}

// Breaker is a consecutive-failure circuit breaker.
//
//	closed --MaxFailures failures--> open --Cooldown--> half-open
//	half-open --HalfOpenLimit successes--> closed
//	half-open --any failure--> open
type Breaker struct {
	mu        sync.Mutex
	cfg       BreakerConfig
	state     State
	failures  int
	successes int
	probes    int
	openedAt  time.Time
	onChange  func(from, to State)
	now       func() time.Time
}

// NewBreaker creates a closed breaker. onChange, when non-nil, is called
// after every state transition, outside the breaker's lock.
func NewBreaker(cfg BreakerConfig, onChange func(from, to State)) *Breaker {
	return &Breaker{cfg: cfg, onChange: onChange, now: time.Now}
}

// Allow reports whether a call may proceed. An open breaker whose cooldown
// has passed turns half-open and admits the caller as its first probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()

	var from State

	changed := false
	allowed := false

	switch b.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
			from, changed = b.transition(StateHalfOpen)
			b.probes = 1
			allowed = true
		}
	case StateHalfOpen:
		if b.probes < b.cfg.HalfOpenLimit {
			b.probes++
			allowed = true
		}
	}

	b.mu.Unlock()

	if changed {
		b.notify(from, StateHalfOpen)
	}

	return allowed
}

// Success records a successful call.
func (b *Breaker) Success() {
	b.mu.Lock()

	var from State

	changed := false

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.probes--
		b.successes++

		if b.successes >= b.cfg.HalfOpenLimit {
			from, changed = b.transition(StateClosed)
		}
	}

	b.mu.Unlock()

	if changed {
		b.notify(from, StateClosed)
	}
}

// Failure records a failed call.
func (b *Breaker) Failure() {
	b.mu.Lock()

	var from State

	changed := false

	switch b.state {
	case StateClosed:
		b.failures++

		if b.failures >= b.cfg.MaxFailures {
			from, changed = b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.probes--
		from, changed = b.transition(StateOpen)
	}

	b.mu.Unlock()

	if changed {
		b.notify(from, StateOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// transition must be called with the lock held.
func (b *Breaker) transition(to State) (State, bool) {
	from := b.state
	if from == to {
		return from, false
	}

	b.state = to
	b.failures = 0
	b.successes = 0

	if to == StateOpen {
		b.openedAt = b.now()
		b.probes = 0
	}

	return from, true
}

func (b *Breaker) notify(from, to State) {
	if b.onChange != nil {
		b.onChange(from, to)
	}
}
