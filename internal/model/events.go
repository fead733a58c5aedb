package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event bus payload kinds (spec §6). Each is a plain struct published via
// bus.Publish[T]/subscribed via bus.Subscribe[T] — Go generics take the role
// Rust's EnumDiscriminants/Any-downcast dance plays in arkin-core/src/pubsub.rs.

// IntervalTick is a periodic wall-clock/cron tick, instrument-scoped.
type IntervalTick struct {
	EventTime   time.Time
	Instruments []*Instrument
	Frequency   time.Duration
}

// InsightsTick requests the insights graph to calculate for EventTime.
type InsightsTick struct {
	EventTime   time.Time
	Instruments []*Instrument
}

// InsightsUpdate carries the insights graph's output for one tick, published
// once the warmup counter has reached zero.
type InsightsUpdate struct {
	EventTime   time.Time
	Instruments []*Instrument
	Insights    []Insight
}

// WarmupInsightsUpdate mirrors InsightsUpdate but is published while the
// pipeline is still warming up (spec §4.4/§8 scenario 2).
type WarmupInsightsUpdate struct {
	EventTime   time.Time
	Instruments []*Instrument
	Insights    []Insight
}

// TickUpdate carries one Tick.
type TickUpdate struct{ Tick Tick }

// AggTradeUpdate carries one AggTrade.
type AggTradeUpdate struct{ Trade AggTrade }

// TradeUpdate carries an executed own-trade notification, distinct from the
// market-wide AggTradeUpdate.
type TradeUpdate struct{ Fill VenueOrderFill }

// MetricUpdate carries a single named scalar destined to become a raw Insight.
type MetricUpdate struct {
	EventTime time.Time
	FeatureID string
	Value     float64
}

// SignalEvent wraps a Signal for bus transport (named to avoid clashing with
// the model.Signal struct itself).
type SignalEvent struct{ Signal Signal }

// ExecutionOrderEvent reports an ExecutionOrder the allocation optimizer
// just emitted, for persistence/observability independent of the VenueOrder
// it was converted into.
type ExecutionOrderEvent struct{ Order *ExecutionOrder }

// NewVenueOrder requests the executor place an order.
type NewVenueOrder struct{ Order VenueOrder }

// CancelVenueOrder requests the executor cancel one order.
type CancelVenueOrder struct{ VenueOrderID string }

// CancelAllVenueOrders requests the executor cancel every open order.
type CancelAllVenueOrders struct{ Instrument *Instrument }

// VenueOrderPlaced reports a successful placement.
type VenueOrderPlaced struct{ Order VenueOrder }

// VenueOrderFillEvent reports a fill.
type VenueOrderFillEvent struct{ Fill VenueOrderFill }

// VenueOrderCancelled reports a cancellation.
type VenueOrderCancelled struct{ Order VenueOrder }

// VenueOrderRejected reports a rejection.
type VenueOrderRejected struct {
	Order  VenueOrder
	Reason string
}

// BalanceUpdate is an external venue balance snapshot used for reconciliation.
type BalanceUpdate struct {
	EventTime time.Time
	Venue     *Venue
	Asset     *Asset
	Quantity  decimal.Decimal
}

// PositionUpdate is an external venue position snapshot used for reconciliation.
type PositionUpdate struct {
	EventTime  time.Time
	Venue      *Venue
	Instrument *Instrument
	Quantity   decimal.Decimal
}

// VenueAccountUpdate bundles balance+position reconciliation data from one
// account snapshot poll.
type VenueAccountUpdate struct {
	EventTime time.Time
	Venue     *Venue
	Balances  []BalanceUpdate
	Positions []PositionUpdate
}

// Finished signals the end of a simulation run or an orderly live shutdown.
type Finished struct{ EventTime time.Time }
