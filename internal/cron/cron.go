// Package cron drives periodic tick publication in live mode, grounded on
// _examples/original_source/arkin-cron/src/lib.rs's CronInterval/interval_task
// (wall-clock sleep-until-next-fire, skip-ahead when behind schedule,
// no-op when the clock isn't live because simulation ticks are driven
// reactively by the sim clock's CheckInterval instead).
//
// Live-mode scheduling itself uses github.com/robfig/cron/v3 rather than a
// hand-rolled sleep loop, substituting the pack's own scheduling library for
// the teacher's ad hoc time.Ticker idiom (internal/market/scanner.go) where
// the domain calls for cron semantics (skip-missed-ticks, multiple
// independent schedules) robfig/cron already implements correctly.
package cron

import (
	"fmt"
	"log/slog"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/arkin-run/arkin/internal/bus"
	"github.com/arkin-run/arkin/internal/clock"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/service"
)

// Kind selects which event an Interval publishes.
type Kind string

const (
	KindIntervalTick Kind = "interval_tick"
	KindInsightsTick Kind = "insights_tick"
)

// Interval is one periodic schedule.
type Interval struct {
	Kind        Kind
	Frequency   time.Duration
	Instruments []*model.Instrument
}

// Cron is the Runnable that fires every registered Interval on its own
// schedule while the clock is live; a no-op under a simulation clock.
type Cron struct {
	service.Base
	id        string
	intervals []Interval
	clock     clock.Clock
	bus       *bus.Bus
	sched     *robfigcron.Cron
	logger    *slog.Logger
}

// New constructs a Cron over the given intervals.
func New(id string, intervals []Interval, c clock.Clock, b *bus.Bus, logger *slog.Logger) *Cron {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cron{id: id, intervals: intervals, clock: c, bus: b, logger: logger.With("component", "cron", "id", id)}
}

func (c *Cron) Identifier() string { return c.id }

func (c *Cron) StartTasks(ctx *service.Ctx) error {
	if !c.clock.IsLive() {
		c.logger.Debug("cron is a no-op under a simulation clock; ticks are driven reactively by SimClock.CheckInterval")
		return nil
	}

	c.sched = robfigcron.New(robfigcron.WithSeconds())
	for _, iv := range c.intervals {
		iv := iv
		if iv.Frequency <= 0 {
			return fmt.Errorf("cron interval has zero frequency")
		}
		spec := fmt.Sprintf("@every %s", iv.Frequency)
		if _, err := c.sched.AddFunc(spec, func() { c.fire(iv) }); err != nil {
			return fmt.Errorf("schedule interval: %w", err)
		}
	}
	c.sched.Start()
	return nil
}

func (c *Cron) fire(iv Interval) {
	now := c.clock.Now()
	c.logger.Debug("firing interval", "kind", iv.Kind, "at", now)
	switch iv.Kind {
	case KindInsightsTick:
		bus.Publish(c.bus, model.InsightsTick{EventTime: now, Instruments: iv.Instruments})
	default:
		bus.Publish(c.bus, model.IntervalTick{EventTime: now, Instruments: iv.Instruments, Frequency: iv.Frequency})
	}
}

func (c *Cron) StopTasks(ctx *service.Ctx) error {
	if c.sched == nil {
		return nil
	}
	stopCtx := c.sched.Stop()
	<-stopCtx.Done()
	return nil
}

var _ service.Runnable = (*Cron)(nil)
