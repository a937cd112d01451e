package progress

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	// DefaultTickInterval is how often the tracker advances while a call
	// is in flight.
	DefaultTickInterval = 300 * time.Millisecond

	// Ceiling is the highest value the tracker may report before the call
	// resolves. Completion jumps straight to 100.
	Ceiling = 90
)

// AdvanceFunc computes the next progress value from the current one. The
// tracker enforces monotonicity and the ceiling regardless of what the
// policy returns, so a policy only has to pick a step.
type AdvanceFunc func(current float64) float64

// DefaultAdvance steps by a pseudo-random increment in [5, 15].
func DefaultAdvance(current float64) float64 {
	return current + 5 + rand.Float64()*10
}

// Config controls tracker behavior. Zero values take defaults.
type Config struct {
	TickInterval time.Duration
	Advance      AdvanceFunc
}

// Tracker emits a monotonically non-decreasing synthetic progress value on a
// fixed tick. It never reaches 100 before Complete is called, and Clear
// resets it to zero when the tracked call fails.
type Tracker struct {
	tick    time.Duration
	advance AdvanceFunc

	mu     sync.Mutex
	value  float64
	ended  bool
	cancel context.CancelFunc
	wg     sync.WaitGroup

	updates chan float64
}

// NewTracker creates a stopped tracker. Call Start to begin ticking.
func NewTracker(config Config) *Tracker {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.Advance == nil {
		config.Advance = DefaultAdvance
	}

	return &Tracker{
		tick:    config.TickInterval,
		advance: config.Advance,
		updates: make(chan float64, 1),
	}
}

// Start begins advancing on each tick until Complete, Clear, or context
// cancellation.
func (t *Tracker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(ctx)
}

func (t *Tracker) run(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.step()
		}
	}
}

func (t *Tracker) step() {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return
	}

	next := t.advance(t.value)
	// Never regress, never pass the ceiling while in flight.
	if next < t.value {
		next = t.value
	}
	if next > Ceiling {
		next = Ceiling
	}
	t.value = next
	t.mu.Unlock()

	t.publish(next)
}

// publish emits the latest value, replacing a stale unread one.
func (t *Tracker) publish(v float64) {
	for {
		select {
		case t.updates <- v:
			return
		default:
			select {
			case <-t.updates:
			default:
			}
		}
	}
}

// Complete stops ticking and jumps the value to 100.
func (t *Tracker) Complete() {
	t.stop()

	t.mu.Lock()
	t.value = 100
	t.ended = true
	t.mu.Unlock()

	t.publish(100)
}

// Clear stops ticking and resets the value to zero. Used when the tracked
// call fails.
func (t *Tracker) Clear() {
	t.stop()

	t.mu.Lock()
	t.value = 0
	t.ended = true
	t.mu.Unlock()

	t.publish(0)
}

func (t *Tracker) stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.wg.Wait()
}

// Value returns the current progress value.
func (t *Tracker) Value() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Updates returns a channel carrying the latest progress value. Stale values
// are replaced, not queued.
func (t *Tracker) Updates() <-chan float64 {
	return t.updates
}
