package allocation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/bus"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/service"
	"github.com/arkin-run/arkin/internal/strategy"
)

// PositionProvider answers the current held quantity for an instrument,
// satisfied by *accounting.Ledger without this package importing accounting.
type PositionProvider interface {
	Position(inst *model.Instrument) decimal.Decimal
}

// ServiceConfig wires a Service instance.
type ServiceConfig struct {
	ID           string
	Strategies   []strategy.Strategy
	Optimizer    *ReferenceOptimizer
	Positions    PositionProvider
	TotalCapital decimal.Decimal
}

// Service is the Runnable that drives Strategy & Allocation end to end
// (spec §4.5): on every InsightsUpdate it runs each configured Strategy,
// publishes the Signals it produced, batches them into one Allocate call
// (so max_allocation/n_signals divides across everything that fired this
// tick, not per strategy), and converts the resulting ExecutionOrders into
// VenueOrders for the executor stage.
//
// Grounded on internal/engine/engine.go's pattern of owning the
// strategy/exchange wiring in one component, and insights/service.go's
// subscribe-process-publish StartTasks shape.
type Service struct {
	service.Base
	id           string
	strategies   []strategy.Strategy
	optimizer    *ReferenceOptimizer
	positions    PositionProvider
	totalCapital decimal.Decimal
	bus          *bus.Bus
	logger       *slog.Logger

	mu        sync.Mutex
	midPrices map[uuid.UUID]decimal.Decimal
	inflight  map[uuid.UUID]*model.ExecutionOrder // keyed by VenueOrder.ID
}

// NewService constructs a Service from cfg.
func NewService(cfg ServiceConfig, b *bus.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		id:           cfg.ID,
		strategies:   cfg.Strategies,
		optimizer:    cfg.Optimizer,
		positions:    cfg.Positions,
		totalCapital: cfg.TotalCapital,
		bus:          b,
		logger:       logger.With("component", "allocation", "id", cfg.ID),
		midPrices:    make(map[uuid.UUID]decimal.Decimal),
		inflight:     make(map[uuid.UUID]*model.ExecutionOrder),
	}
}

func (s *Service) Identifier() string { return s.id }

func (s *Service) StartTasks(ctx *service.Ctx) error {
	insightsUpdates := bus.Subscribe[model.InsightsUpdate](s.bus)
	tickUpdates := bus.Subscribe[model.TickUpdate](s.bus)
	fills := bus.Subscribe[model.VenueOrderFillEvent](s.bus)

	ctx.Spawn(func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case v, ok := <-tickUpdates.C():
				if !ok {
					return
				}
				s.recordMid(v.(model.TickUpdate).Tick)
			case v, ok := <-insightsUpdates.C():
				if !ok {
					return
				}
				s.onInsightsUpdate(v.(model.InsightsUpdate))
			case v, ok := <-fills.C():
				if !ok {
					return
				}
				s.onFill(v.(model.VenueOrderFillEvent).Fill)
			}
		}
	})
	return nil
}

func (s *Service) recordMid(t model.Tick) {
	mid := t.Mid()
	s.mu.Lock()
	s.midPrices[t.Instrument.ID] = mid
	s.mu.Unlock()
}

func (s *Service) onInsightsUpdate(u model.InsightsUpdate) {
	var signals []model.Signal
	for _, strat := range s.strategies {
		for _, sig := range strat.OnInsightsUpdate(u) {
			bus.Publish(s.bus, model.SignalEvent{Signal: sig})
			signals = append(signals, sig)
		}
	}
	if len(signals) == 0 {
		return
	}

	snap := s.snapshot(u.Instruments)
	orders := s.optimizer.Allocate(u.EventTime, signals, snap)
	for _, order := range orders {
		mid, ok := snap.midPrice(order.Instrument)
		if !ok {
			s.logger.Warn("no mid price for order instrument, skipping", "instrument", order.Instrument.Symbol)
			continue
		}
		if err := order.Transition(model.ExecOrderInProgress); err != nil {
			s.logger.Warn("invalid execution order transition", "error", err)
		}
		bus.Publish(s.bus, model.ExecutionOrderEvent{Order: order})

		vo := model.VenueOrder{
			ID:               model.NewID(),
			ClientOrderID:    uuid.NewString(),
			ExecutionOrderID: order.ID,
			Instrument:       order.Instrument,
			Side:             order.Side,
			Type:             order.Type,
			TimeInForce:      order.TimeInForce,
			Price:            mid,
			Quantity:         order.Quantity,
			Status:           model.VenueOrderInflight,
		}

		s.mu.Lock()
		s.inflight[vo.ID] = order
		s.mu.Unlock()

		bus.Publish(s.bus, model.NewVenueOrder{Order: vo})
	}
}

// onFill folds a VenueOrderFill back into the ExecutionOrder it belongs to
// (spec §4.5's qty-weighted fill_price averaging), publishing the updated
// order so downstream observers see the new status. Orders reaching a
// terminal state are dropped from the in-flight map.
func (s *Service) onFill(fill model.VenueOrderFill) {
	s.mu.Lock()
	order, ok := s.inflight[fill.VenueOrderID]
	s.mu.Unlock()
	if !ok {
		return
	}

	order.ApplyFill(fill.Price, fill.Quantity, fill.Commission)
	bus.Publish(s.bus, model.ExecutionOrderEvent{Order: order})

	if order.Status == model.ExecOrderFilled || order.Status == model.ExecOrderCancelled || order.Status == model.ExecOrderPartiallyFilledCancelled {
		s.mu.Lock()
		delete(s.inflight, fill.VenueOrderID)
		s.mu.Unlock()
	}
}

func (s *Service) snapshot(instruments []*model.Instrument) *Snapshot {
	snap := NewSnapshot(s.totalCapital)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range instruments {
		if mid, ok := s.midPrices[inst.ID]; ok {
			snap.SetMidPrice(inst, mid)
		}
		if s.positions != nil {
			snap.SetPosition(inst, s.positions.Position(inst))
		}
	}
	return snap
}

var _ service.Runnable = (*Service)(nil)
