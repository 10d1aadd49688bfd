package timer

import (
	"sync"
	"time"
)

// Elapsed counts up one second at a time, tracking total session duration.
// Pausing freezes the count; resuming continues from where it stopped, so a
// pause of T seconds reduces the final count by exactly T relative to
// wall-clock time.
type Elapsed struct {
	mu       sync.Mutex
	interval time.Duration
	seconds  int
	paused   bool
	done     bool
	gen      int
	onTick   func(seconds int)
}

// NewElapsed returns an Elapsed timer that ticks once per second. The zero
// state reads as stopped; only Start begins a run.
func NewElapsed() *Elapsed {
	return &Elapsed{interval: time.Second, done: true}
}

// NewElapsedInterval returns an Elapsed timer with a custom tick interval,
// for tests.
func NewElapsedInterval(interval time.Duration) *Elapsed {
	return &Elapsed{interval: interval, done: true}
}

// Start begins counting from zero. Any prior run is cancelled first.
func (e *Elapsed) Start(onTick func(seconds int)) {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.seconds = 0
	e.paused = false
	e.done = false
	e.onTick = onTick
	e.mu.Unlock()

	go e.run(gen)
}

func (e *Elapsed) run(gen int) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for range ticker.C {
		e.mu.Lock()
		if e.gen != gen || e.done {
			e.mu.Unlock()
			return
		}
		if e.paused {
			e.mu.Unlock()
			continue
		}
		e.seconds++
		secs := e.seconds
		onTick := e.onTick
		e.mu.Unlock()

		if onTick != nil {
			onTick(secs)
		}
	}
}

// Pause freezes the count.
func (e *Elapsed) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

// Resume continues counting after a Pause.
func (e *Elapsed) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
}

// Stop ends the run. The final count stays readable via Seconds.
func (e *Elapsed) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.done = true
}

// Seconds reports the accumulated count.
func (e *Elapsed) Seconds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seconds
}
