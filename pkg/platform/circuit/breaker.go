// Package circuit implements a rolling-window circuit breaker for calls to a
// shared downstream endpoint.
//
// The breaker is the only long-lived state machine in the process:
// closed lets calls through and records outcomes; open short-circuits
// immediately without making the call; half-open (after a cool-down) allows a
// single trial call to decide whether to close again.
package circuit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Do when the breaker short-circuits a call. Callers
// classify it separately from call failures so monitoring can tell capacity
// exhaustion from transient faults.
var ErrOpen = errors.New("circuit breaker is open")

// State is the breaker's position in the closed/open/half-open cycle.
type State int

const (
	StateClosed State = iota
	StateOpen
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

type outcome struct {
	at time.Time
	ok bool
}

// Breaker guards a single downstream call type. It must be shared process-wide
// by everything calling that endpoint, since its purpose is to protect the
// shared downstream, not any one caller.
type Breaker struct {
	name string

	errorThresholdPct int
	window            time.Duration
	volumeThreshold   int
	cooldown          time.Duration
	callTimeout       time.Duration
	now               func() time.Time
	onStateChange     func(name string, from, to State)

	mu            sync.Mutex
	state         State
	outcomes      []outcome
	openedAt      time.Time
	trialInFlight bool
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithErrorThresholdPercentage sets the error rate (0-100) within the rolling
// window at which the breaker trips.
func WithErrorThresholdPercentage(pct int) Option {
	return func(b *Breaker) { b.errorThresholdPct = pct }
}

// WithWindow sets the width of the rolling statistical window.
func WithWindow(d time.Duration) Option {
	return func(b *Breaker) { b.window = d }
}

// WithVolumeThreshold sets the minimum number of calls within the window
// before the breaker is eligible to trip.
func WithVolumeThreshold(n int) Option {
	return func(b *Breaker) { b.volumeThreshold = n }
}

// WithCooldown sets how long the breaker stays open before allowing a
// half-open trial call.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) { b.cooldown = d }
}

// WithCallTimeout sets the per-call deadline applied by Do. A timed-out call
// counts as a failure for breaker accounting.
func WithCallTimeout(d time.Duration) Option {
	return func(b *Breaker) { b.callTimeout = d }
}

// WithOnStateChange registers a hook invoked on every state transition. The
// hook runs while the breaker's lock is held and must not call back into the
// breaker or block.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.onStateChange = fn }
}

// WithClock sets the time source for testability.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// New constructs a breaker with the defaults used against the identity
// provider: trip at 80% errors over a 30s window once 5 calls have been seen,
// 5s per-call timeout, 10s cool-down before a trial.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:              name,
		errorThresholdPct: 80,
		window:            30 * time.Second,
		volumeThreshold:   5,
		cooldown:          10 * time.Second,
		callTimeout:       5 * time.Second,
		now:               time.Now,
		state:             StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker's name, used in logs and metrics labels.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether calls are currently short-circuited.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Reset closes the breaker and clears the rolling window.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.outcomes = nil
	b.trialInFlight = false
}

// transition moves to a new state and fires the hook. Caller holds b.mu.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}

// Do runs fn under the breaker. When open it returns ErrOpen without invoking
// fn. The per-call timeout is applied through the context; fn must honor
// cancellation for the timeout to bound the call.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.allow() {
		return ErrOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
	defer cancel()

	err := fn(callCtx)
	b.record(err == nil)
	return err
}

// allow decides whether a call may proceed, transitioning open breakers to
// half-open after the cool-down. At most one trial call runs in half-open.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.transition(StateHalfOpen)
		b.trialInFlight = true
		return true
	case StateHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	default:
		return false
	}
}

func (b *Breaker) record(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	if b.state == StateHalfOpen {
		b.trialInFlight = false
		if ok {
			b.transition(StateClosed)
			b.outcomes = nil
		} else {
			b.transition(StateOpen)
			b.openedAt = now
		}
		return
	}

	b.outcomes = append(b.outcomes, outcome{at: now, ok: ok})
	b.prune(now)

	total := len(b.outcomes)
	if total < b.volumeThreshold {
		return
	}
	failures := 0
	for _, o := range b.outcomes {
		if !o.ok {
			failures++
		}
	}
	if failures*100 >= b.errorThresholdPct*total {
		b.transition(StateOpen)
		b.openedAt = now
	}
}

// prune drops outcomes outside the rolling window. Caller holds b.mu.
func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for ; i < len(b.outcomes); i++ {
		if b.outcomes[i].at.After(cutoff) {
			break
		}
	}
	if i > 0 {
		b.outcomes = append(b.outcomes[:0], b.outcomes[i:]...)
	}
}
