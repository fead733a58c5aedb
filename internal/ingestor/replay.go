package ingestor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/arkin-run/arkin/internal/bus"
	"github.com/arkin-run/arkin/internal/clock"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/persistence"
	"github.com/arkin-run/arkin/internal/service"
)

// ReplayIngestor merges the tick and agg-trade histories for a fixed set of
// instruments into one timestamp-ordered stream, advancing a SimClock to
// each event's time before publishing it — the deterministic substitute for
// a live venue.Feed used by `arkin simulation`.
//
// Grounded on
// _examples/original_source/arkin-ingestor-binance/src/sim.rs's
// SimBinanceIngestor::start_tasks: two buffered streams merged by comparing
// next-available timestamps, replayed until both are exhausted.
type ReplayIngestor struct {
	service.Base
	id          string
	gateway     persistence.Gateway
	clock       *clock.SimClock
	bus         *bus.Bus
	instruments []uuid.UUID
	start, end  time.Time
	bufferSize  int
	frequency   time.Duration
	logger      *slog.Logger

	seen map[uuid.UUID]*model.Instrument
}

// NewReplayIngestor constructs a ReplayIngestor over [start, end).
func NewReplayIngestor(id string, gw persistence.Gateway, c *clock.SimClock, b *bus.Bus, instruments []uuid.UUID, start, end time.Time, logger *slog.Logger) *ReplayIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	freq := time.Hour
	if end.Sub(start) >= 24*time.Hour {
		freq = 24 * time.Hour
	}
	return &ReplayIngestor{
		id:          id,
		gateway:     gw,
		clock:       c,
		bus:         b,
		instruments: instruments,
		start:       start,
		end:         end,
		bufferSize:  3,
		frequency:   freq,
		logger:      logger.With("component", "replay_ingestor", "id", id),
		seen:        make(map[uuid.UUID]*model.Instrument),
	}
}

func (r *ReplayIngestor) Identifier() string { return r.id }

func (r *ReplayIngestor) StartTasks(ctx *service.Ctx) error {
	tickCh := make(chan any, r.bufferSize)
	tradeCh := make(chan any, r.bufferSize)

	ctx.Spawn(func(c context.Context) {
		if err := r.gateway.StreamRangeBuffered(c, "tick", r.instruments, r.start, r.end, r.bufferSize, r.frequency, tickCh); err != nil && c.Err() == nil {
			r.logger.Error("tick stream failed", "error", err)
		}
	})
	ctx.Spawn(func(c context.Context) {
		if err := r.gateway.StreamRangeBuffered(c, "agg_trade", r.instruments, r.start, r.end, r.bufferSize, r.frequency, tradeCh); err != nil && c.Err() == nil {
			r.logger.Error("trade stream failed", "error", err)
		}
	})
	ctx.Spawn(func(c context.Context) { r.merge(c, tickCh, tradeCh) })
	return nil
}

func (r *ReplayIngestor) merge(ctx context.Context, tickCh, tradeCh <-chan any) {
	nextTick, tickOK := recvOrDone(ctx, tickCh)
	nextTrade, tradeOK := recvOrDone(ctx, tradeCh)

	for tickOK || tradeOK {
		if ctx.Err() != nil {
			return
		}
		switch {
		case tickOK && tradeOK:
			if tickTime(nextTick).Before(tradeTime(nextTrade)) || tickTime(nextTick).Equal(tradeTime(nextTrade)) {
				r.publishTick(ctx, nextTick.(model.Tick))
				nextTick, tickOK = recvOrDone(ctx, tickCh)
			} else {
				r.publishTrade(ctx, nextTrade.(model.AggTrade))
				nextTrade, tradeOK = recvOrDone(ctx, tradeCh)
			}
		case tickOK:
			r.publishTick(ctx, nextTick.(model.Tick))
			nextTick, tickOK = recvOrDone(ctx, tickCh)
		case tradeOK:
			r.publishTrade(ctx, nextTrade.(model.AggTrade))
			nextTrade, tradeOK = recvOrDone(ctx, tradeCh)
		}
	}
	r.logger.Info("replay finished")
	bus.Publish(r.bus, model.Finished{EventTime: r.clock.Now()})
}

func recvOrDone(ctx context.Context, ch <-chan any) (any, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case v, ok := <-ch:
		return v, ok
	}
}

func tickTime(v any) time.Time  { return v.(model.Tick).EventTime }
func tradeTime(v any) time.Time { return v.(model.AggTrade).EventTime }

func (r *ReplayIngestor) publishTick(ctx context.Context, t model.Tick) {
	r.seen[t.Instrument.ID] = t.Instrument
	r.clock.AdvanceTo(t.EventTime)
	bus.Publish(r.bus, model.TickUpdate{Tick: t})
	r.fireInsightsTicks()
}

func (r *ReplayIngestor) publishTrade(ctx context.Context, a model.AggTrade) {
	r.seen[a.Instrument.ID] = a.Instrument
	r.clock.AdvanceTo(a.EventTime)
	bus.Publish(r.bus, model.AggTradeUpdate{Trade: a})
	r.fireInsightsTicks()
}

// fireInsightsTicks publishes one InsightsTick per tick-frequency boundary
// the clock just crossed, since cron is a no-op under a SimClock and
// AdvanceTo is the only place simulated wall-clock time actually moves.
func (r *ReplayIngestor) fireInsightsTicks() {
	boundaries := r.clock.CheckInterval()
	if len(boundaries) == 0 {
		return
	}
	instruments := make([]*model.Instrument, 0, len(r.seen))
	for _, inst := range r.seen {
		instruments = append(instruments, inst)
	}
	for _, at := range boundaries {
		bus.Publish(r.bus, model.InsightsTick{EventTime: at, Instruments: instruments})
	}
}

var _ service.Runnable = (*ReplayIngestor)(nil)
