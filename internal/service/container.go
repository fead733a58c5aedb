package service

import (
	"fmt"
	"log/slog"
)

// entry pairs one Runnable with its private Ctx.
type entry struct {
	svc Runnable
	ctx *Ctx
}

// Container orchestrates a fixed set of Runnables, starting them in
// registration order and stopping them in reverse order, so a component
// registered after its dependency is also torn down before it — mirroring
// arkin-core/src/service.rs's Service::start_service/stop_service sequence
// but applied to a whole graph of services instead of one.
type Container struct {
	logger  *slog.Logger
	entries []entry
}

// NewContainer constructs an empty Container.
func NewContainer(logger *slog.Logger) *Container {
	if logger == nil {
		logger = slog.Default()
	}
	return &Container{logger: logger}
}

// Register adds svc to the container. Call order is start order.
func (c *Container) Register(svc Runnable) {
	c.entries = append(c.entries, entry{svc: svc, ctx: NewCtx(c.logger.With("service", svc.Identifier()))})
}

// Ctx returns the private Ctx for a registered service, identified by its
// Identifier(), so callers can inspect state or share a shutdown signal.
func (c *Container) Ctx(identifier string) (*Ctx, bool) {
	for _, e := range c.entries {
		if e.svc.Identifier() == identifier {
			return e.ctx, true
		}
	}
	return nil, false
}

// Start runs Setup then StartTasks for every registered service in
// registration order. If any step fails, Start stops everything already
// started (in reverse) and returns the error.
func (c *Container) Start() error {
	started := make([]entry, 0, len(c.entries))
	for _, e := range c.entries {
		c.logger.Info("starting service", "service", e.svc.Identifier())
		e.ctx.starting()
		if err := e.svc.Setup(e.ctx); err != nil {
			e.ctx.stopped()
			c.stopAll(started)
			return fmt.Errorf("setup %s: %w", e.svc.Identifier(), err)
		}
		if err := e.svc.StartTasks(e.ctx); err != nil {
			e.ctx.stopped()
			c.stopAll(started)
			return fmt.Errorf("start_tasks %s: %w", e.svc.Identifier(), err)
		}
		e.ctx.started()
		started = append(started, e)
		c.logger.Info("started service", "service", e.svc.Identifier())
	}
	return nil
}

// Stop tears down every registered service in reverse start order.
func (c *Container) Stop() {
	c.stopAll(c.entries)
}

func (c *Container) stopAll(entries []entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.ctx.State() == Stopped {
			continue
		}
		c.logger.Info("stopping service", "service", e.svc.Identifier())
		e.ctx.stopping()
		if err := e.svc.StopTasks(e.ctx); err != nil {
			c.logger.Error("stop_tasks failed", "service", e.svc.Identifier(), "error", err)
		}
		e.ctx.SignalShutdown()
		e.ctx.Wait()
		if err := e.svc.Teardown(e.ctx); err != nil {
			c.logger.Error("teardown failed", "service", e.svc.Identifier(), "error", err)
		}
		e.ctx.stopped()
		c.logger.Info("stopped service", "service", e.svc.Identifier())
	}
}
