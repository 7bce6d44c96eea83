// Package circuit provides a consecutive-failure circuit breaker for calls to
// external systems such as the chain RPC endpoint.
package circuit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Do while the circuit is open and the cooldown has not elapsed.
var ErrOpen = errors.New("circuit open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	// StateHalfOpen admits trial calls after the cooldown. One failure reopens.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// StateChange reports a transition caused by a recorded outcome.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker opens after FailureThreshold consecutive failures, rejects calls for
// Cooldown, then closes again after SuccessThreshold consecutive trial successes.
type Breaker struct {
	mu               sync.Mutex
	name             string
	state            State
	failureCount     int
	successCount     int
	openedAt         time.Time
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	now              func() time.Time
	onChange         func(name string, from, to State)
}

// Option configures a Breaker instance.
type Option func(*Breaker)

// WithFailureThreshold defaults to 5.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold defaults to 2.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// WithCooldown defaults to 30s.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithStateChangeHook is called, outside the lock, on every transition.
func WithStateChangeHook(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onChange = fn
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 2,
		cooldown:         30 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state, moving open to half-open once the cooldown elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	return b.State() != StateOpen
}

// Do runs fn unless the circuit is open. Errors for which countable returns
// false (for example caller cancellation) do not move the breaker.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error, countable func(error) bool) error {
	if !b.Allow() {
		return ErrOpen
	}
	err := fn(ctx)
	switch {
	case err == nil:
		b.RecordSuccess()
	case countable == nil || countable(err):
		b.RecordFailure()
	}
	return err
}

// RecordFailure returns whether the circuit is open after the failure.
func (b *Breaker) RecordFailure() (open bool, change StateChange) {
	b.mu.Lock()
	from := b.state
	b.failureCount++
	b.successCount = 0
	if b.state == StateHalfOpen || (b.state == StateClosed && b.failureCount >= b.failureThreshold) {
		b.state = StateOpen
		b.openedAt = b.now()
		change.Opened = true
	}
	open = b.state == StateOpen
	b.mu.Unlock()

	if change.Opened {
		b.notify(from, StateOpen)
	}
	return open, change
}

// RecordSuccess returns whether the circuit is closed after the success.
func (b *Breaker) RecordSuccess() (closed bool, change StateChange) {
	b.mu.Lock()
	b.maybeHalfOpenLocked()
	from := b.state
	switch b.state {
	case StateHalfOpen:
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
			change.Closed = true
		}
	case StateClosed:
		b.failureCount = 0
	}
	closed = b.state == StateClosed
	b.mu.Unlock()

	if change.Closed {
		b.notify(from, StateClosed)
	}
	return closed, change
}

// Reset closes the circuit and clears counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
}

func (b *Breaker) maybeHalfOpenLocked() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.state = StateHalfOpen
		b.successCount = 0
	}
}

func (b *Breaker) notify(from, to State) {
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
