package executor

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/bus"
	"github.com/arkin-run/arkin/internal/clock"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/service"
)

// SimulationExecutor is the deterministic executor of spec §4.6: it fills
// maker orders against the next tick that crosses their limit price, and
// taker orders immediately at the order's own price. A bounded random delay
// drawn per order only stamps PlacedAt (clock time plus the delay); the
// Placed transition itself happens at once.
//
// Grounded on arkin-execution/src/executors/sim.rs's New -> Placed -> Filled
// poll loop, redesigned around the shared simulation clock (spec §9
// "Simulation determinism") instead of a free-running goroutine sleeping on
// wall time: delay draws come from one *rand.Rand seeded once per run
// rather than a global RNG, and maker fills are driven synchronously from
// TickUpdate events the caller already advances the clock to, instead of
// real sleeps.
type SimulationExecutor struct {
	service.Base
	id              string
	clock           clock.Clock
	bus             *bus.Bus
	rng             *rand.Rand
	book            *book
	makerCommission decimal.Decimal
	takerCommission decimal.Decimal
	maxDelay        time.Duration
	logger          *slog.Logger
}

// NewSimulationExecutor constructs a SimulationExecutor. seed must be fixed
// per run to keep backtests reproducible.
func NewSimulationExecutor(id string, c clock.Clock, b *bus.Bus, seed int64, makerFee, takerFee decimal.Decimal, maxDelay time.Duration, logger *slog.Logger) *SimulationExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulationExecutor{
		id:              id,
		clock:           c,
		bus:             b,
		rng:             rand.New(rand.NewSource(seed)),
		book:            newBook(),
		makerCommission: makerFee,
		takerCommission: takerFee,
		maxDelay:        maxDelay,
		logger:          logger.With("component", "sim_executor", "id", id),
	}
}

func (e *SimulationExecutor) Identifier() string { return e.id }

func (e *SimulationExecutor) StartTasks(ctx *service.Ctx) error {
	newOrders := bus.Subscribe[model.NewVenueOrder](e.bus)
	cancels := bus.Subscribe[model.CancelVenueOrder](e.bus)
	cancelAlls := bus.Subscribe[model.CancelAllVenueOrders](e.bus)
	ticks := bus.Subscribe[model.TickUpdate](e.bus)

	ctx.Spawn(func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case v, ok := <-newOrders.C():
				if !ok {
					return
				}
				order := v.(model.NewVenueOrder).Order
				e.PlaceOrder(c, &order)
			case v, ok := <-cancels.C():
				if !ok {
					return
				}
				_ = e.Cancel(c, v.(model.CancelVenueOrder).VenueOrderID)
			case v, ok := <-cancelAlls.C():
				if !ok {
					return
				}
				_ = e.CancelAll(c, v.(model.CancelAllVenueOrders).Instrument)
			case v, ok := <-ticks.C():
				if !ok {
					return
				}
				e.tryFillAgainst(v.(model.TickUpdate).Tick)
			}
		}
	})
	return nil
}

// PlaceOrder is the primary entry point used by callers that already hold a
// VenueOrder (e.g. built by the allocation stage), rather than the
// interface-shaped Place used to satisfy Executor.
func (e *SimulationExecutor) PlaceOrder(ctx context.Context, order *model.VenueOrder) {
	delay := time.Duration(e.rng.Int63n(int64(e.maxDelay) + 1))
	placedAt := e.clock.Now().Add(delay)
	order.PlacedAt = placedAt
	if err := order.Transition(model.VenueOrderPlaced); err != nil {
		e.logger.Warn("invalid venue order transition", "error", err)
		return
	}
	e.book.put(order)
	bus.Publish(e.bus, model.VenueOrderPlaced{Order: *order})

	if order.Type == model.ExecutionOrderTaker {
		e.fill(order, order.Price, order.Quantity)
	}
}

func (e *SimulationExecutor) Place(ctx context.Context, order *model.ExecutionOrder, price decimal.Decimal) error {
	vo := &model.VenueOrder{
		ID:               uuid.New(),
		ClientOrderID:    uuid.NewString(),
		ExecutionOrderID: order.ID,
		Instrument:       order.Instrument,
		Side:             order.Side,
		Type:             order.Type,
		TimeInForce:      order.TimeInForce,
		Price:            price,
		Quantity:         order.Quantity,
		Status:           model.VenueOrderInflight,
	}
	e.PlaceOrder(ctx, vo)
	return nil
}

func (e *SimulationExecutor) Cancel(ctx context.Context, clientOrderID string) error {
	vo, ok := e.book.get(clientOrderID)
	if !ok {
		return nil
	}
	if err := vo.Transition(model.VenueOrderCancelled); err != nil {
		return err
	}
	e.book.remove(clientOrderID)
	bus.Publish(e.bus, model.VenueOrderCancelled{Order: *vo})
	return nil
}

func (e *SimulationExecutor) CancelAll(ctx context.Context, inst *model.Instrument) error {
	for _, vo := range e.book.byInstrument(inst) {
		if err := e.Cancel(ctx, vo.ClientOrderID); err != nil {
			e.logger.Warn("cancel failed during CancelAll", "error", err)
		}
	}
	return nil
}

// tryFillAgainst fills any resting maker order whose limit price the latest
// tick has crossed.
func (e *SimulationExecutor) tryFillAgainst(t model.Tick) {
	for _, vo := range e.book.byInstrument(t.Instrument) {
		if vo.Status != model.VenueOrderPlaced && vo.Status != model.VenueOrderPartiallyFilled {
			continue
		}
		if vo.Type != model.ExecutionOrderMaker {
			continue
		}
		crossed := (vo.Side == model.SideBuy && t.AskPrice.LessThanOrEqual(vo.Price)) ||
			(vo.Side == model.SideSell && t.BidPrice.GreaterThanOrEqual(vo.Price))
		if crossed {
			e.fill(vo, vo.Price, vo.Quantity)
		}
	}
}

func (e *SimulationExecutor) fill(vo *model.VenueOrder, price, qty decimal.Decimal) {
	commissionRate := e.takerCommission
	if vo.Type == model.ExecutionOrderMaker {
		commissionRate = e.makerCommission
	}
	commission := price.Mul(qty).Mul(commissionRate)

	if err := vo.Transition(model.VenueOrderFilled); err != nil {
		e.logger.Warn("invalid fill transition", "error", err)
		return
	}
	e.book.remove(vo.ClientOrderID)

	fill := model.VenueOrderFill{
		EventTime:    e.clock.Now(),
		VenueOrderID: vo.ID,
		Instrument:   vo.Instrument,
		Side:         vo.Side,
		Price:        price,
		Quantity:     qty,
		Commission:   commission,
	}
	bus.Publish(e.bus, model.VenueOrderFillEvent{Fill: fill})
}

var _ service.Runnable = (*SimulationExecutor)(nil)
var _ Executor = (*SimulationExecutor)(nil)
