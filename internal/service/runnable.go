package service

// Runnable is the lifecycle contract every long-running component
// implements: Setup (once, before tasks start), StartTasks (spawn
// goroutines via ctx.Spawn), StopTasks (signal those goroutines to exit),
// Teardown (release resources once every task has returned).
type Runnable interface {
	Identifier() string
	Setup(ctx *Ctx) error
	StartTasks(ctx *Ctx) error
	StopTasks(ctx *Ctx) error
	Teardown(ctx *Ctx) error
}

// Base gives Runnable implementors no-op defaults for whichever lifecycle
// phases they don't need, the way arkin-core/src/traits.rs's Runnable trait
// provides default (do-nothing) method bodies.
type Base struct{}

func (Base) Setup(*Ctx) error      { return nil }
func (Base) StartTasks(*Ctx) error { return nil }
func (Base) StopTasks(*Ctx) error  { return nil }
func (Base) Teardown(*Ctx) error   { return nil }
