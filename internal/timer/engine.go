// Package timer implements the countdown clock that drives a quiz session.
package timer

import (
	"errors"
	"sync"
	"time"
)

// ErrNegativeDuration is returned by Start for minutes < 0.
var ErrNegativeDuration = errors.New("timer minutes must not be negative")

// Ticker is the periodic source the engine decrements on. *time.Ticker satisfies it through
// realTicker; tests substitute a manual one.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker adapts time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Option configures an Engine.
type Option func(*Engine)

// WithInterval overrides the one-second tick period.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithTicker swaps the ticker factory, mainly for deterministic tests.
func WithTicker(factory func(time.Duration) Ticker) Option {
	return func(e *Engine) {
		if factory != nil {
			e.newTicker = factory
		}
	}
}

// State is a point-in-time copy of the engine's counters.
type State struct {
	Remaining int  `json:"remaining"`
	Initial   int  `json:"initial"`
	Running   bool `json:"running"`
	Paused    bool `json:"paused"`
}

// Engine is a countdown in whole seconds. Each Start begins a new cycle with its own
// schedule; ticks from an earlier cycle are discarded, so at most one schedule ever
// decrements the counter.
type Engine struct {
	interval  time.Duration
	newTicker func(time.Duration) Ticker

	mu        sync.Mutex
	remaining int
	initial   int
	running   bool
	paused    bool
	cycle     uint64
	stop      chan struct{}
	onExpire  func()
	onTick    func(remaining int)
}

// New returns an idle engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		interval:  time.Second,
		newTicker: NewRealTicker,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnExpire registers the single expiry listener, replacing any previous one. The listener
// runs on the goroutine that observed expiry and never under the engine lock.
func (e *Engine) OnExpire(fn func()) {
	e.mu.Lock()
	e.onExpire = fn
	e.mu.Unlock()
}

// OnTick registers a listener called with the remaining seconds after every decrement.
func (e *Engine) OnTick(fn func(remaining int)) {
	e.mu.Lock()
	e.onTick = fn
	e.mu.Unlock()
}

// Start resets the countdown to minutes*60 seconds and begins ticking. Any schedule from a
// previous Start is cancelled first. Start(0) expires immediately and fires the listener
// before returning.
func (e *Engine) Start(minutes int) error {
	if minutes < 0 {
		return ErrNegativeDuration
	}

	e.mu.Lock()
	e.cancelLocked()
	e.cycle++
	cycle := e.cycle
	e.remaining = minutes * 60
	e.initial = e.remaining
	e.paused = false

	if e.remaining == 0 {
		e.running = false
		expire := e.onExpire
		e.mu.Unlock()
		if expire != nil {
			expire()
		}
		return nil
	}

	e.running = true
	stop := make(chan struct{})
	e.stop = stop
	ticker := e.newTicker(e.interval)
	e.mu.Unlock()

	go e.loop(cycle, ticker, stop)
	return nil
}

// Pause freezes the countdown. It reports false when the engine is not running or is
// already paused.
func (e *Engine) Pause() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || e.paused {
		return false
	}
	e.paused = true
	return true
}

// Resume unfreezes a paused countdown. It reports false unless the engine was paused.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running || !e.paused {
		return false
	}
	e.paused = false
	return true
}

// Stop halts the countdown and zeroes it without firing the expiry listener.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelLocked()
	e.cycle++
	e.running = false
	e.paused = false
	e.remaining = 0
}

func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remaining
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// State returns all counters under one lock acquisition.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Remaining: e.remaining,
		Initial:   e.initial,
		Running:   e.running,
		Paused:    e.paused,
	}
}

func (e *Engine) cancelLocked() {
	if e.stop != nil {
		close(e.stop)
		e.stop = nil
	}
}

func (e *Engine) loop(cycle uint64, ticker Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if done := e.tick(cycle); done {
				return
			}
		}
	}
}

// tick applies one decrement for the given cycle and reports whether the schedule is over.
func (e *Engine) tick(cycle uint64) bool {
	e.mu.Lock()
	if cycle != e.cycle || !e.running {
		e.mu.Unlock()
		return true
	}
	if e.paused || e.remaining <= 0 {
		e.mu.Unlock()
		return false
	}

	e.remaining--
	remaining := e.remaining
	onTick := e.onTick
	if remaining > 0 {
		e.mu.Unlock()
		if onTick != nil {
			onTick(remaining)
		}
		return false
	}

	// The loop exits after this tick, so there is no schedule left to cancel.
	e.running = false
	e.stop = nil
	onExpire := e.onExpire
	e.mu.Unlock()

	if onTick != nil {
		onTick(0)
	}
	if onExpire != nil {
		onExpire()
	}
	return true
}
