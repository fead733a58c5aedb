package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VenueType distinguishes a real exchange from a virtual book.
type VenueType string

const (
	VenueTypeExchange  VenueType = "exchange"
	VenueTypePersonal  VenueType = "personal"
	VenueTypeSimulated VenueType = "simulation"
)

// Venue identifies an exchange or a virtual book. Shared, read-only once
// constructed — callers hold it by pointer and never mutate it.
type Venue struct {
	ID   uuid.UUID
	Name string
	Type VenueType
}

// Asset is a fungible unit, e.g. USDT or BTC.
type Asset struct {
	ID     uuid.UUID
	Symbol string
}

// InstrumentType enumerates the tradable shapes an Instrument can take.
type InstrumentType string

const (
	InstrumentSpot      InstrumentType = "spot"
	InstrumentPerpetual InstrumentType = "perpetual"
	InstrumentFuture    InstrumentType = "future"
	InstrumentOption    InstrumentType = "option"
)

// InstrumentStatus reflects whether an instrument currently accepts orders.
type InstrumentStatus string

const (
	InstrumentStatusTrading  InstrumentStatus = "trading"
	InstrumentStatusHalted   InstrumentStatus = "halted"
	InstrumentStatusDelisted InstrumentStatus = "delisted"
)

// OptionType distinguishes calls from puts for InstrumentOption.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// Instrument is an immutable reference entity describing one tradable
// contract. tick_size and contract_size must be strictly positive; price and
// quantity precision must agree with tick_size/lot_size (checked by Validate).
type Instrument struct {
	ID                uuid.UUID
	Venue             *Venue
	Symbol            string
	VenueSymbol       string
	Type              InstrumentType
	BaseAsset         *Asset
	QuoteAsset        *Asset
	MarginAsset       *Asset
	ContractSize      decimal.Decimal
	PricePrecision    int32
	QuantityPrecision int32
	TickSize          decimal.Decimal
	LotSize           decimal.Decimal
	Status            InstrumentStatus

	// Optional, only meaningful when Type == InstrumentOption.
	Strike     *decimal.Decimal
	Maturity   *int64 // unix micros
	OptionType *OptionType
}

// Validate checks the invariants declared in spec §3.
func (i *Instrument) Validate() error {
	if !i.TickSize.IsPositive() {
		return fmt.Errorf("instrument %s: tick_size must be > 0", i.Symbol)
	}
	if !i.ContractSize.IsPositive() {
		return fmt.Errorf("instrument %s: contract_size must be > 0", i.Symbol)
	}
	if !i.LotSize.IsPositive() {
		return fmt.Errorf("instrument %s: lot_size must be > 0", i.Symbol)
	}
	minStep := decimal.New(1, -i.PricePrecision)
	if minStep.GreaterThan(i.TickSize) {
		return fmt.Errorf("instrument %s: price_precision inconsistent with tick_size", i.Symbol)
	}
	if decimal.New(1, -i.QuantityPrecision).GreaterThan(i.LotSize) {
		return fmt.Errorf("instrument %s: quantity_precision inconsistent with lot_size", i.Symbol)
	}
	return nil
}

// RoundToTick rounds price to the instrument's tick size using round-half-up,
// matching the teacher's roundUpToTick/roundDownToTick tick-clamping style in
// internal/strategy/maker.go but operating on exact decimals.
func (i *Instrument) RoundToTick(price decimal.Decimal) decimal.Decimal {
	if i.TickSize.IsZero() {
		return price
	}
	ticks := price.Div(i.TickSize).Round(0)
	return ticks.Mul(i.TickSize)
}

// RoundToLot truncates a quantity down to the nearest lot size multiple.
func (i *Instrument) RoundToLot(qty decimal.Decimal) decimal.Decimal {
	if i.LotSize.IsZero() {
		return qty
	}
	lots := qty.Div(i.LotSize).Truncate(0)
	return lots.Mul(i.LotSize)
}

// Strategy is an immutable reference entity naming a trading strategy.
type Strategy struct {
	ID          uuid.UUID
	Name        string
	Description string
}

// Pipeline is a versioned collection of feature definitions.
type Pipeline struct {
	ID      uuid.UUID
	Name    string
	Version int
}
