package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VenueOrderStatus is the exchange-observable order state machine of spec
// §4.6: Inflight -> Placed -> {PartiallyFilled* -> Filled} | Cancelled | Rejected.
type VenueOrderStatus string

const (
	VenueOrderInflight         VenueOrderStatus = "inflight"
	VenueOrderPlaced           VenueOrderStatus = "placed"
	VenueOrderPartiallyFilled  VenueOrderStatus = "partially_filled"
	VenueOrderFilled           VenueOrderStatus = "filled"
	VenueOrderCancelled        VenueOrderStatus = "cancelled"
	VenueOrderRejected         VenueOrderStatus = "rejected"
)

var validVenueOrderTransitions = map[VenueOrderStatus]map[VenueOrderStatus]bool{
	VenueOrderInflight: {
		VenueOrderPlaced:   true,
		VenueOrderRejected: true,
	},
	VenueOrderPlaced: {
		VenueOrderPartiallyFilled: true,
		VenueOrderFilled:          true,
		VenueOrderCancelled:       true,
	},
	VenueOrderPartiallyFilled: {
		VenueOrderPartiallyFilled: true,
		VenueOrderFilled:          true,
		VenueOrderCancelled:       true,
	},
}

// VenueOrder is the exchange-visible order resulting from an ExecutionOrder.
// ClientOrderID is the key the executor's in-flight book is indexed by.
type VenueOrder struct {
	ID               uuid.UUID
	ClientOrderID    string
	ExecutionOrderID uint64
	Instrument       *Instrument
	Side             Side
	Type             ExecutionOrderType
	TimeInForce      TimeInForce
	Price            decimal.Decimal // limit price for a maker order; the simulated fill price for a taker order
	Quantity         decimal.Decimal
	Status           VenueOrderStatus
	PlacedAt         time.Time
}

// Transition applies the state machine of spec §4.6; an invalid edge is
// returned as an error for the caller to log and ignore.
func (o *VenueOrder) Transition(next VenueOrderStatus) error {
	if next == o.Status {
		return nil
	}
	if edges, ok := validVenueOrderTransitions[o.Status]; ok && edges[next] {
		o.Status = next
		return nil
	}
	return fmt.Errorf("invalid venue order transition %s -> %s", o.Status, next)
}

// VenueOrderFill is a partial or complete execution of a VenueOrder.
type VenueOrderFill struct {
	EventTime       time.Time
	VenueOrderID    uuid.UUID
	Instrument      *Instrument
	Side            Side
	Price           decimal.Decimal
	Quantity        decimal.Decimal
	Commission      decimal.Decimal
	CommissionAsset *Asset // nil means "default to margin/quote asset", spec §9
}
