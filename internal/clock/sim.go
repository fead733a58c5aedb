package clock

import (
	"sync"
	"time"
)

// SimClock is a deterministic, manually-advanced clock for backtests and
// simulation runs. All mutation is guarded by mu; the zero value is not
// usable, use NewSimClock.
//
// Grounded on SimulationSystemTime in
// _examples/original_source/arkin-core/src/system_time.rs, translated from
// an async RwLock<SimTimeState> to a synchronous sync.Mutex.
type SimClock struct {
	mu            sync.Mutex
	current       time.Time
	nextTick      time.Time
	initialized   bool
	end           time.Time
	tickFrequency time.Duration
}

// NewSimClock constructs a SimClock starting at start, finishing at end, and
// emitting CheckInterval boundaries every tickFrequency.
func NewSimClock(start, end time.Time, tickFrequency time.Duration) *SimClock {
	return &SimClock{
		current:       start,
		nextTick:      start.Add(tickFrequency),
		end:           end,
		tickFrequency: tickFrequency,
	}
}

func (c *SimClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AdvanceTo moves current forward to t. Time can only move forward: a t at
// or before current is a no-op.
func (c *SimClock) AdvanceTo(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.current) {
		c.current = t
	}
}

// AdvanceBy moves current forward by d.
func (c *SimClock) AdvanceBy(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func (c *SimClock) IsLive() bool { return false }

func (c *SimClock) IsFinished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.current.Before(c.end)
}

func (c *SimClock) IsFinalHour() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.current.Before(c.end.Add(-time.Hour))
}

// CheckInterval returns every tickFrequency boundary crossed since the last
// call. The first call always emits exactly one boundary (start+frequency),
// matching the original's "emit the first tick unconditionally" behavior.
func (c *SimClock) CheckInterval() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	var ticks []time.Time

	if !c.initialized {
		c.initialized = true
		ticks = append(ticks, c.nextTick)
		c.nextTick = c.nextTick.Add(c.tickFrequency)
		return ticks
	}

	for !c.current.Before(c.nextTick) {
		ticks = append(ticks, c.nextTick)
		c.nextTick = c.nextTick.Add(c.tickFrequency)
	}
	return ticks
}
