// Package allocation implements the allocation-optimizer stage of spec
// §4.5: turning Signals plus a portfolio/price snapshot into ExecutionOrders.
package allocation

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/model"
)

// Position is the current held quantity for one instrument, signed: positive
// is long, negative is short.
type Position struct {
	Instrument *model.Instrument
	Quantity   decimal.Decimal
}

// Snapshot is the portfolio/price state the optimizer allocates against.
type Snapshot struct {
	TotalCapital decimal.Decimal
	Positions    map[uuid.UUID]decimal.Decimal // current quantity per instrument
	MidPrices    map[uuid.UUID]decimal.Decimal // last mid price per instrument
}

// NewSnapshot constructs an empty Snapshot.
func NewSnapshot(totalCapital decimal.Decimal) *Snapshot {
	return &Snapshot{
		TotalCapital: totalCapital,
		Positions:    make(map[uuid.UUID]decimal.Decimal),
		MidPrices:    make(map[uuid.UUID]decimal.Decimal),
	}
}

// SetPosition records the current held quantity for an instrument.
func (s *Snapshot) SetPosition(inst *model.Instrument, qty decimal.Decimal) {
	s.Positions[inst.ID] = qty
}

// SetMidPrice records the last observed mid price for an instrument.
func (s *Snapshot) SetMidPrice(inst *model.Instrument, mid decimal.Decimal) {
	s.MidPrices[inst.ID] = mid
}

func (s *Snapshot) position(inst *model.Instrument) decimal.Decimal {
	if q, ok := s.Positions[inst.ID]; ok {
		return q
	}
	return decimal.Zero
}

func (s *Snapshot) midPrice(inst *model.Instrument) (decimal.Decimal, bool) {
	p, ok := s.MidPrices[inst.ID]
	return p, ok
}

// Config parametrizes the reference optimizer (spec §4.5).
type Config struct {
	MaxAllocation          decimal.Decimal // fraction of total capital deployable in aggregate, e.g. 0.5
	MaxAllocationPerSignal decimal.Decimal // fraction of total capital deployable per signal, e.g. 0.1
	RebalanceThreshold     decimal.Decimal // minimum notional below which a delta is suppressed
	OrderIDSeq             func() uint64
}

// ReferenceOptimizer is the reference allocation algorithm of spec §4.5.
//
// Grounded on the teacher's internal/strategy/maker.go computeQuotes sizing
// logic (cash-allocation-per-market -> target-position -> delta), adapted
// from float64 quote sizing to decimal.Decimal allocation/order-quantity
// math since this stage is monetary, not a statistical insight.
type ReferenceOptimizer struct {
	cfg Config
}

// NewReferenceOptimizer constructs a ReferenceOptimizer.
func NewReferenceOptimizer(cfg Config) *ReferenceOptimizer {
	return &ReferenceOptimizer{cfg: cfg}
}

// Allocate implements the four-step algorithm of spec §4.5 for one batch of
// Signals sharing an EventTime:
//
//  1. allocation = min(total_capital * max_allocation / n_signals, total_capital * max_allocation_per_signal)
//  2. expected_position = round_to_lot(allocation * weight / mid_price)
//  3. delta = expected - current
//  4. emit a maker/GTC order for each delta whose notional clears RebalanceThreshold
func (o *ReferenceOptimizer) Allocate(at time.Time, signals []model.Signal, snap *Snapshot) []*model.ExecutionOrder {
	if len(signals) == 0 {
		return nil
	}

	n := decimal.NewFromInt(int64(len(signals)))
	perSignalCap := snap.TotalCapital.Mul(o.cfg.MaxAllocation).Div(n)
	hardCap := snap.TotalCapital.Mul(o.cfg.MaxAllocationPerSignal)
	allocation := decimal.Min(perSignalCap, hardCap)

	var orders []*model.ExecutionOrder
	for _, sig := range signals {
		mid, ok := snap.midPrice(sig.Instrument)
		if !ok || !mid.IsPositive() {
			continue
		}

		expected := allocation.Mul(sig.Weight).Div(mid)
		expected = sig.Instrument.RoundToLot(expected)

		current := snap.position(sig.Instrument)
		delta := expected.Sub(current)
		if delta.IsZero() {
			continue
		}

		notional := delta.Abs().Mul(mid)
		if notional.LessThan(o.cfg.RebalanceThreshold) {
			continue
		}

		side := model.SideBuy
		if delta.IsNegative() {
			side = model.SideSell
		}

		id := uint64(0)
		if o.cfg.OrderIDSeq != nil {
			id = o.cfg.OrderIDSeq()
		}

		order := model.NewExecutionOrder(id, at, sig.Strategy, sig.Instrument, side, model.ExecutionOrderMaker, model.TimeInForceGTC, delta.Abs())
		orders = append(orders, order)
	}
	return orders
}
