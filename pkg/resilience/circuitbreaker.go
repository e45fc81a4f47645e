// Package resilience provides the circuit breaker that guards remote
// listing fetches.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/WessleyAI/wessley-marketplace/pkg/fn"
)

// Circuit breaker states.
type State int

const (
	StateClosed   State = iota // normal operation
	StateOpen                  // tripping, reject calls
	StateHalfOpen              // allowing a probe call
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

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// BreakerOpts configures the circuit breaker.
type BreakerOpts struct {
	// FailThreshold is how many consecutive failures trip the breaker.
	FailThreshold int
	// Timeout is how long the breaker stays open before entering half-open.
	Timeout time.Duration
	// HalfOpenMax is the number of probe calls allowed in half-open state.
	HalfOpenMax int
	// IsFailure decides whether an error counts against the breaker. Nil
	// counts every error except context cancellation, which callers use to
	// abandon superseded requests.
	IsFailure func(error) bool
	// OnStateChange, if set, is called with the lock released after every
	// transition.
	OnStateChange func(from, to State)
}

// DefaultBreakerOpts provides sensible defaults.
var DefaultBreakerOpts = BreakerOpts{
	FailThreshold: 5,
	Timeout:       30 * time.Second,
	HalfOpenMax:   1,
}

// Breaker implements a circuit breaker with closed/open/half-open states.
type Breaker struct {
	mu            sync.Mutex
	opts          BreakerOpts
	state         State
	failures      int
	openedAt      time.Time
	halfOpenCount int
	now           func() time.Time // for testing
}

// NewBreaker creates a circuit breaker with the given options.
func NewBreaker(opts BreakerOpts) *Breaker {
	if opts.FailThreshold <= 0 {
		opts.FailThreshold = DefaultBreakerOpts.FailThreshold
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBreakerOpts.Timeout
	}
	if opts.HalfOpenMax <= 0 {
		opts.HalfOpenMax = DefaultBreakerOpts.HalfOpenMax
	}
	if opts.IsFailure == nil {
		opts.IsFailure = countsAsFailure
	}
	return &Breaker{opts: opts, now: time.Now}
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	st, changed := b.currentState()
	b.mu.Unlock()
	if changed {
		b.notify(StateOpen, StateHalfOpen)
	}
	return st
}

// currentState returns state, transitioning open→half-open if timeout
// elapsed. changed reports that transition. Must hold mu.
func (b *Breaker) currentState() (st State, changed bool) {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.opts.Timeout {
		b.state = StateHalfOpen
		b.halfOpenCount = 0
		changed = true
	}
	return b.state, changed
}

func (b *Breaker) notify(from, to State) {
	if b.opts.OnStateChange != nil && from != to {
		b.opts.OnStateChange(from, to)
	}
}

// Call executes f through the circuit breaker.
func (b *Breaker) Call(ctx context.Context, f func(context.Context) error) error {
	_, err := CallResult(b, ctx, func(ctx context.Context) fn.Result[struct{}] {
		return fn.FromPair(struct{}{}, f(ctx))
	}).Unwrap()
	return err
}

// admit reports whether a call may proceed. Must not hold mu.
func (b *Breaker) admit() bool {
	b.mu.Lock()
	st, changed := b.currentState()
	ok := true
	switch st {
	case StateOpen:
		ok = false
	case StateHalfOpen:
		if b.halfOpenCount >= b.opts.HalfOpenMax {
			ok = false
		} else {
			b.halfOpenCount++
		}
	}
	b.mu.Unlock()
	if changed {
		b.notify(StateOpen, StateHalfOpen)
	}
	return ok
}

// record applies the outcome of an admitted call.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	from := b.state
	switch {
	case err == nil:
		if b.state == StateHalfOpen {
			b.state = StateClosed
		}
		b.failures = 0
	case b.opts.IsFailure(err):
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.opts.FailThreshold {
			b.state = StateOpen
			b.openedAt = b.now()
			b.failures = 0
			b.halfOpenCount = 0
		}
	case b.state == StateHalfOpen:
		// An abandoned probe neither closes nor reopens; free its slot.
		b.halfOpenCount--
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
}

// CallResult is a generic version of Call that works with fn.Result.
func CallResult[T any](b *Breaker, ctx context.Context, f func(context.Context) fn.Result[T]) fn.Result[T] {
	if !b.admit() {
		return fn.Err[T](ErrCircuitOpen)
	}
	result := f(ctx)
	_, err := result.Unwrap()
	b.record(err)
	return result
}

// BreakerStage wraps an fn.Stage with circuit breaker protection.
func BreakerStage[In, Out any](b *Breaker, stage fn.Stage[In, Out]) fn.Stage[In, Out] {
	return func(ctx context.Context, in In) fn.Result[Out] {
		return CallResult(b, ctx, func(ctx context.Context) fn.Result[Out] {
			return stage(ctx, in)
		})
	}
}
