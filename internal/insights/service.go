package insights

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/arkin-run/arkin/internal/bus"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/service"
)

// Insights is the Runnable wrapping a State store and a computed feature
// Graph: it consumes raw market/metric updates into the store, and on each
// InsightsTick runs the graph for every configured instrument, publishing
// either WarmupInsightsUpdate or InsightsUpdate depending on warmupSteps.
//
// Grounded on arkin-insights/src/service.rs's Insights::{warmup_tick,
// process_tick}, with the AtomicU16 warmup counter translated to
// atomic.Int32 (spec §9's authoritative per-tick decrement semantics: the
// counter decrements exactly once per InsightsTick, never per raw update).
type Insights struct {
	service.Base
	id          string
	state       *State
	graph       *Graph
	bus         *bus.Bus
	instruments []*model.Instrument
	warmupSteps atomic.Int32
	ttl         time.Duration
	logger      *slog.Logger
}

// Config configures one Insights Runnable instance.
type Config struct {
	ID          string
	Features    []Feature
	Instruments []*model.Instrument
	WarmupSteps int32
	TTL         time.Duration
}

// New constructs an Insights Runnable from the given Config. Returns an
// error if the feature graph contains a cycle.
func New(cfg Config, b *bus.Bus, logger *slog.Logger) (*Insights, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "insights", "id", cfg.ID)

	graph, err := NewGraph(cfg.Features, logger)
	if err != nil {
		return nil, err
	}

	in := &Insights{
		id:          cfg.ID,
		state:       NewState(cfg.TTL),
		graph:       graph,
		bus:         b,
		instruments: cfg.Instruments,
		ttl:         cfg.TTL,
		logger:      logger,
	}
	in.warmupSteps.Store(cfg.WarmupSteps)
	return in, nil
}

func (in *Insights) Identifier() string { return in.id }

func (in *Insights) StartTasks(ctx *service.Ctx) error {
	ticks := bus.Subscribe[model.InsightsTick](in.bus)
	tickUpdates := bus.Subscribe[model.TickUpdate](in.bus)
	tradeUpdates := bus.Subscribe[model.AggTradeUpdate](in.bus)
	metricUpdates := bus.Subscribe[model.MetricUpdate](in.bus)

	ctx.Spawn(func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case v, ok := <-tickUpdates.C():
				if !ok {
					return
				}
				in.ingestTick(v.(model.TickUpdate))
			case v, ok := <-tradeUpdates.C():
				if !ok {
					return
				}
				in.ingestTrade(v.(model.AggTradeUpdate))
			case v, ok := <-metricUpdates.C():
				if !ok {
					return
				}
				in.ingestMetric(v.(model.MetricUpdate))
			case v, ok := <-ticks.C():
				if !ok {
					return
				}
				in.processTick(v.(model.InsightsTick))
			}
		}
	})
	return nil
}

func (in *Insights) ingestTick(u model.TickUpdate) {
	mid := u.Tick.Mid()
	midFloat, _ := mid.Float64()
	in.state.Insert(model.Insight{EventTime: u.Tick.EventTime, Instrument: u.Tick.Instrument, FeatureID: "mid_price", Value: midFloat, Type: model.InsightRaw})
}

func (in *Insights) ingestTrade(u model.AggTradeUpdate) {
	price, _ := u.Trade.Price.Float64()
	in.state.Insert(model.Insight{EventTime: u.Trade.EventTime, Instrument: u.Trade.Instrument, FeatureID: "trade_price", Value: price, Type: model.InsightRaw})
}

func (in *Insights) ingestMetric(u model.MetricUpdate) {
	in.state.Insert(model.Insight{EventTime: u.EventTime, FeatureID: u.FeatureID, Value: u.Value, Type: model.InsightRaw})
}

// processTick commits the ingested raw values, then runs the feature graph
// for every configured instrument — each node's outputs land straight in
// the live store (State.InsertLive) so later nodes in the same pass see
// them — and decrements the warmup counter exactly once.
func (in *Insights) processTick(tick model.InsightsTick) {
	in.state.Commit(tick.EventTime)

	instruments := in.instruments
	if len(tick.Instruments) > 0 {
		instruments = tick.Instruments
	}

	var produced []model.Insight
	for _, inst := range instruments {
		produced = append(produced, in.graph.Calculate(inst, tick.EventTime, in.state)...)
	}
	in.state.Prune(tick.EventTime)

	if in.warmupSteps.Load() > 0 {
		in.warmupSteps.Add(-1)
		bus.Publish(in.bus, model.WarmupInsightsUpdate{EventTime: tick.EventTime, Instruments: instruments, Insights: produced})
		return
	}
	bus.Publish(in.bus, model.InsightsUpdate{EventTime: tick.EventTime, Instruments: instruments, Insights: produced})
}

var _ service.Runnable = (*Insights)(nil)
