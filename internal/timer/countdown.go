// Package timer provides the one-second-tick countdown and count-up timers
// that drive workout session phases. Both timers are safe for concurrent use;
// callbacks are invoked from the timer's own goroutine without holding the
// timer's lock, so hooks may call back into the timer.
package timer

import (
	"sync"
	"time"
)

// DefaultThresholds are the remaining-second marks at which OnThreshold fires,
// used for haptic/audio cues near the end of a countdown.
var DefaultThresholds = []int{5, 3, 2, 1}

// Hooks are the callbacks a Countdown invokes during a run. Any hook may be
// nil. Thresholds defaults to DefaultThresholds when nil.
type Hooks struct {
	OnTick      func(remaining int)
	OnThreshold func(remaining int)
	Thresholds  []int
	OnComplete  func()
}

// Countdown ticks once per interval from a starting number of seconds down to
// zero. A Countdown is reusable: Start cancels any prior run before beginning
// a new one, so at most one run is ever ticking.
type Countdown struct {
	mu        sync.Mutex
	interval  time.Duration
	remaining int
	paused    bool
	done      bool
	gen       int // run generation; stale tick goroutines exit
	fired     map[int]bool
	hooks     Hooks
}

// NewCountdown returns a Countdown that ticks once per second. A fresh
// Countdown is not running; done starts true so Skip and Running treat the
// zero state as a finished run.
func NewCountdown() *Countdown {
	return &Countdown{interval: time.Second, done: true}
}

// NewCountdownInterval returns a Countdown with a custom tick interval.
// Intended for tests; production code uses NewCountdown.
func NewCountdownInterval(interval time.Duration) *Countdown {
	return &Countdown{interval: interval, done: true}
}

// Start begins a new run of durationSeconds. Any prior run is cancelled
// first. A duration of zero or less completes immediately.
func (c *Countdown) Start(durationSeconds int, hooks Hooks) {
	if hooks.Thresholds == nil {
		hooks.Thresholds = DefaultThresholds
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.remaining = durationSeconds
	c.paused = false
	c.fired = make(map[int]bool)
	c.hooks = hooks

	if durationSeconds <= 0 {
		c.done = true
		c.mu.Unlock()
		if hooks.OnComplete != nil {
			hooks.OnComplete()
		}
		return
	}
	c.done = false
	c.mu.Unlock()

	go c.run(gen)
}

func (c *Countdown) run(gen int) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for range ticker.C {
		tick, threshold, complete, hooks := c.applyTick(gen)
		if hooks == nil {
			return
		}
		if tick >= 0 && hooks.OnTick != nil {
			hooks.OnTick(tick)
		}
		if threshold >= 0 && hooks.OnThreshold != nil {
			hooks.OnThreshold(threshold)
		}
		if complete {
			if hooks.OnComplete != nil {
				hooks.OnComplete()
			}
			return
		}
	}
}

// applyTick advances the countdown by one tick. It returns the remaining
// value to report via OnTick (-1 to skip), a threshold to fire (-1 for none),
// whether the run completed on this tick, and the hooks to invoke. A nil
// hooks return means the run is stale and the goroutine must exit.
func (c *Countdown) applyTick(gen int) (tick, threshold int, complete bool, hooks *Hooks) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.done {
		return 0, 0, false, nil
	}
	if c.paused {
		h := c.hooks
		return -1, -1, false, &h
	}

	c.remaining--
	tick = c.remaining
	threshold = -1
	for _, t := range c.hooks.Thresholds {
		if c.remaining == t && !c.fired[t] {
			c.fired[t] = true
			threshold = t
			break
		}
	}
	if c.remaining <= 0 {
		c.done = true
		complete = true
	}
	h := c.hooks
	return tick, threshold, complete, &h
}

// Pause suspends ticking without resetting the remaining time.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
}

// Resume restarts ticking after a Pause. No-op if not paused or not running.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

// Cancel stops the current run. After Cancel no callback fires.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.done = true
}

// Skip completes the current run immediately: OnComplete fires once and the
// run is cancelled. Skipping a finished or cancelled run is a no-op.
func (c *Countdown) Skip() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.done = true
	hooks := c.hooks
	c.mu.Unlock()

	if hooks.OnComplete != nil {
		hooks.OnComplete()
	}
}

// Remaining reports the seconds left in the current run.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Running reports whether a run is ticking (paused counts as running).
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.done
}

// Paused reports whether the current run is paused.
func (c *Countdown) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused && !c.done
}
