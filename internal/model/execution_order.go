package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionOrderStatus is the strategy-level order-intent state machine of
// spec §4.5: New -> InProgress -> {PartiallyFilled, Filled, Cancelling ->
// Cancelled}; from PartiallyFilled also -> PartiallyFilledCancelling ->
// PartiallyFilledCancelled or -> Filled.
type ExecutionOrderStatus string

const (
	ExecOrderNew                       ExecutionOrderStatus = "new"
	ExecOrderInProgress                ExecutionOrderStatus = "in_progress"
	ExecOrderPartiallyFilled           ExecutionOrderStatus = "partially_filled"
	ExecOrderFilled                    ExecutionOrderStatus = "filled"
	ExecOrderCancelling                ExecutionOrderStatus = "cancelling"
	ExecOrderCancelled                 ExecutionOrderStatus = "cancelled"
	ExecOrderPartiallyFilledCancelling ExecutionOrderStatus = "partially_filled_cancelling"
	ExecOrderPartiallyFilledCancelled  ExecutionOrderStatus = "partially_filled_cancelled"
)

// validExecOrderTransitions enumerates the only allowed edges of the state
// machine in spec §4.5. Any other transition is logged and ignored.
var validExecOrderTransitions = map[ExecutionOrderStatus]map[ExecutionOrderStatus]bool{
	ExecOrderNew: {
		ExecOrderInProgress: true,
		ExecOrderCancelling: true,
	},
	ExecOrderInProgress: {
		ExecOrderPartiallyFilled: true,
		ExecOrderFilled:          true,
		ExecOrderCancelling:      true,
	},
	ExecOrderPartiallyFilled: {
		ExecOrderFilled:                    true,
		ExecOrderPartiallyFilledCancelling: true,
	},
	ExecOrderCancelling: {
		ExecOrderCancelled: true,
	},
	ExecOrderPartiallyFilledCancelling: {
		ExecOrderPartiallyFilledCancelled: true,
		ExecOrderFilled:                   true,
	},
}

// ExecutionOrderType mirrors the teacher's OrderType vocabulary generalized
// beyond GTC-only, and arkin-allocation/src/simple.rs's Maker/Taker split.
type ExecutionOrderType string

const (
	ExecutionOrderMaker ExecutionOrderType = "maker"
	ExecutionOrderTaker ExecutionOrderType = "taker"
)

// TimeInForce is the order's time-in-force instruction.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "gtc"
	TimeInForceIOC TimeInForce = "ioc"
	TimeInForceFOK TimeInForce = "fok"
)

// ExecutionOrder aggregates a strategy-level intent (spec §4.5).
type ExecutionOrder struct {
	ID              uint64
	EventTime       time.Time
	Strategy        *Strategy
	Instrument      *Instrument
	Side            Side
	Type            ExecutionOrderType
	TimeInForce     TimeInForce
	Quantity        decimal.Decimal
	Status          ExecutionOrderStatus
	FilledQuantity  decimal.Decimal
	FillPrice       decimal.Decimal
	TotalCommission decimal.Decimal
}

// NewExecutionOrder constructs an order in the New state with zeroed fill
// accumulators, grounded on arkin-allocation/src/simple.rs's ExecutionOrder::new.
func NewExecutionOrder(id uint64, at time.Time, strategy *Strategy, instrument *Instrument, side Side, typ ExecutionOrderType, tif TimeInForce, qty decimal.Decimal) *ExecutionOrder {
	return &ExecutionOrder{
		ID:              id,
		EventTime:       at,
		Strategy:        strategy,
		Instrument:      instrument,
		Side:            side,
		Type:            typ,
		TimeInForce:     tif,
		Quantity:        qty,
		Status:          ExecOrderNew,
		FilledQuantity:  decimal.Zero,
		FillPrice:       decimal.Zero,
		TotalCommission: decimal.Zero,
	}
}

// Transition moves the order to next if the edge is valid, else logs nothing
// itself (callers log) and returns an error so the caller can warn and
// ignore it per spec §4.5 "any other is logged and ignored".
func (o *ExecutionOrder) Transition(next ExecutionOrderStatus) error {
	if next == o.Status {
		return nil
	}
	if edges, ok := validExecOrderTransitions[o.Status]; ok && edges[next] {
		o.Status = next
		return nil
	}
	return fmt.Errorf("invalid execution order transition %s -> %s", o.Status, next)
}

// ApplyFill folds one fill into the running qty-weighted average fill price
// and commission totals, then advances status to Filled or PartiallyFilled.
// The previous notional is rebuilt as fill_price*filled_quantity on every
// update, so fill_price*filled_quantity equals sum(fill.price*fill.quantity)
// up to the rounding of the decimal division.
func (o *ExecutionOrder) ApplyFill(price, qty, commission decimal.Decimal) {
	prevNotional := o.FillPrice.Mul(o.FilledQuantity)
	newNotional := prevNotional.Add(price.Mul(qty))
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	if o.FilledQuantity.IsPositive() {
		o.FillPrice = newNotional.Div(o.FilledQuantity)
	}
	o.TotalCommission = o.TotalCommission.Add(commission)

	remaining := o.Quantity.Sub(o.FilledQuantity)
	if remaining.Sign() <= 0 {
		_ = o.Transition(ExecOrderFilled)
	} else {
		_ = o.Transition(ExecOrderPartiallyFilled)
	}
}
