// Package resilience guards calls to the advice backend so that a dead
// endpoint fails fast instead of stalling every panel request.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the state of a circuit breaker
type State int32

const (
	// StateClosed lets requests through
	StateClosed State = iota
	// StateOpen rejects requests until the timeout elapses
	StateOpen
	// StateHalfOpen lets a single probe through
	StateHalfOpen
)

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

// ErrCircuitOpen is returned when the breaker rejects a call
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds breaker settings
type Config struct {
	// Name identifies the breaker in logs and metrics
	Name string

	// MaxFailures is the number of consecutive failures that opens the breaker
	MaxFailures int

	// Timeout is how long the breaker stays open before probing
	Timeout time.Duration

	// IsFailure decides whether an error counts against the breaker.
	// Defaults to any non-nil error except context cancellation.
	IsFailure func(err error) bool

	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from, to State)
}

// Breaker is a consecutive-failure circuit breaker
type Breaker struct {
	name          string
	maxFailures   int
	timeout       time.Duration
	isFailure     func(err error) bool
	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a breaker, filling unset config with defaults
func New(cfg Config) *Breaker {
	b := &Breaker{
		name:          cfg.Name,
		maxFailures:   cfg.MaxFailures,
		timeout:       cfg.Timeout,
		isFailure:     cfg.IsFailure,
		onStateChange: cfg.OnStateChange,
		now:           time.Now,
	}
	if b.maxFailures <= 0 {
		b.maxFailures = 5
	}
	if b.timeout <= 0 {
		b.timeout = 30 * time.Second
	}
	if b.isFailure == nil {
		b.isFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}
	return b
}

// Name returns the breaker name
func (b *Breaker) Name() string { return b.name }

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Do runs fn if the breaker allows it and records the outcome
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		b.release()
		return err
	}

	err := fn(ctx)
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

// release gives back a half-open probe slot that was never used
func (b *Breaker) release() {
	b.mu.Lock()
	b.probing = false
	b.mu.Unlock()
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentState()
	b.probing = false

	if !b.isFailure(err) {
		b.failures = 0
		if state != StateClosed {
			b.setState(StateClosed)
		}
		return
	}

	b.failures++
	if state == StateHalfOpen || b.failures >= b.maxFailures {
		b.openedAt = b.now()
		b.setState(StateOpen)
	}
}

func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.timeout {
		b.setState(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	if state == StateClosed {
		b.failures = 0
	}
	if b.onStateChange != nil {
		b.onStateChange(b.name, prev, state)
	}
}
