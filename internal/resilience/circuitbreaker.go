// Package resilience guards calls to optional backends (the attempt store)
// so that a failing dependency degrades a feature instead of every request.
//
// The central type is [Breaker], a three-state breaker
// (closed → open → half-open). All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Do] when the breaker is open and the
// cool-down has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the current operating mode of a [Breaker].
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the cool-down
	// elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through. Enough
	// successes close the breaker; any failure re-opens it.
	StateHalfOpen
)

// String returns the human-readable name of the state.
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

// BreakerConfig holds tuning knobs for a [Breaker].
type BreakerConfig struct {
	// Name labels log lines and state-change callbacks.
	Name string

	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 5.
	MaxFailures int

	// Cooldown is how long the breaker stays open before probing.
	// Default: 30s.
	Cooldown time.Duration

	// HalfOpenProbes is the number of successful probes needed to close the
	// breaker again. Default: 3.
	HalfOpenProbes int

	// OnStateChange, if set, is called after every transition with the mutex
	// released.
	OnStateChange func(name string, from, to State)
}

// Breaker implements the three-state circuit breaker pattern.
type Breaker struct {
	name          string
	maxFailures   int
	cooldown      time.Duration
	probes        int
	onStateChange func(name string, from, to State)
	now           func() time.Time

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
	probesInFlight  int
	probeSuccesses  int
}

// NewBreaker creates a [Breaker]. Zero-value config fields are replaced with
// defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 3
	}
	return &Breaker{
		name:          cfg.Name,
		maxFailures:   cfg.MaxFailures,
		cooldown:      cfg.Cooldown,
		probes:        cfg.HalfOpenProbes,
		onStateChange: cfg.OnStateChange,
		now:           time.Now,
		state:         StateClosed,
	}
}

// Do runs fn if the breaker allows it and records the outcome.
//
// Errors caused by ctx itself being cancelled or timing out are returned but
// not counted as backend failures.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	probe, err := b.admit()
	if err != nil {
		return err
	}

	err = fn(ctx)

	switch {
	case err == nil:
		b.record(probe, true)
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		b.release(probe)
	default:
		b.record(probe, false)
	}
	return err
}

// admit decides whether a call may proceed and whether it is a probe.
func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	from := b.state
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return false, ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.probesInFlight = 0
		b.probeSuccesses = 0
	}
	if b.state == StateHalfOpen {
		if b.probesInFlight+b.probeSuccesses >= b.probes {
			b.mu.Unlock()
			b.notify(from, StateHalfOpen)
			return false, ErrCircuitOpen
		}
		b.probesInFlight++
		probe = true
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
	return probe, nil
}

func (b *Breaker) record(probe, ok bool) {
	b.mu.Lock()
	from := b.state
	if probe && b.probesInFlight > 0 {
		b.probesInFlight--
	}
	// A probe that returns after another probe already decided the outcome
	// is ignored.
	if probe && b.state != StateHalfOpen {
		b.mu.Unlock()
		return
	}

	switch {
	case ok && probe:
		b.probeSuccesses++
		if b.probeSuccesses >= b.probes {
			b.state = StateClosed
			b.consecutiveFail = 0
		}
	case ok:
		b.consecutiveFail = 0
	case probe:
		b.trip()
	default:
		b.consecutiveFail++
		if b.state == StateClosed && b.consecutiveFail >= b.maxFailures {
			b.trip()
		}
	}
	to := b.state
	failures := b.consecutiveFail
	b.mu.Unlock()

	if from != to {
		slog.Info("circuit breaker state change",
			"name", b.name,
			"from", from.String(),
			"to", to.String(),
			"consecutive_failures", failures)
	}
	b.notify(from, to)
}

// release returns a probe slot without recording an outcome.
func (b *Breaker) release(probe bool) {
	if !probe {
		return
	}
	b.mu.Lock()
	if b.probesInFlight > 0 {
		b.probesInFlight--
	}
	b.mu.Unlock()
}

// trip opens the breaker. Must be called with b.mu held.
func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.probesInFlight = 0
	b.probeSuccesses = 0
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onStateChange != nil {
		b.onStateChange(b.name, from, to)
	}
}

// State returns the current [State]. An open breaker whose cool-down has
// elapsed reports [StateHalfOpen]; the transition itself happens on the next
// [Breaker.Do].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to [StateClosed].
func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = StateClosed
	b.consecutiveFail = 0
	b.probesInFlight = 0
	b.probeSuccesses = 0
	b.mu.Unlock()

	slog.Info("circuit breaker manually reset", "name", b.name)
	b.notify(from, StateClosed)
}
