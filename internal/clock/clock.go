// Package clock implements the dual-mode clock of spec §4.1: a live variant
// backed by wall time and a simulation variant with explicit, monotonic
// advance control.
//
// Grounded on _examples/original_source/arkin-core/src/system_time.rs
// (LiveSystemTime/SimulationSystemTime), translated from async Rust to
// synchronous Go guarded by a plain mutex.
package clock

import "time"

// Clock is the single source of "now" for every component in the runtime.
type Clock interface {
	Now() time.Time
	AdvanceTo(t time.Time)
	AdvanceBy(d time.Duration)
	IsLive() bool
	IsFinished() bool
	// IsFinalHour reports whether Now is within one hour of the simulation's
	// end time; always false for a live clock.
	IsFinalHour() bool
	// CheckInterval returns every tick boundary crossed since the last call,
	// advancing the internal next-tick cursor. The first call emits the
	// initial boundary.
	CheckInterval() []time.Time
}
