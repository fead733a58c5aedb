// Package venue pins the venue wire-protocol producer contract of spec §6:
// a Feed exposes Subscribe(channels, instruments) and a Run loop, receives
// opaque frames from the exchange, and hands back the canonical raw event
// shapes for the ingestor layer to resolve against reference data and
// publish onto the bus.
//
// Grounded on the teacher's internal/exchange/ws.go (gorilla/websocket
// dial/reconnect/ping loop) and
// _examples/original_source/arkin-ingestor-binance/src/provider.rs (the
// parse-then-resolve-instrument-then-publish split between the wire layer
// and the ingestor).
package venue

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RawTick is a venue tick frame before instrument resolution: VenueSymbol
// identifies the instrument by the venue's own naming, not yet the
// canonical model.Instrument.
type RawTick struct {
	VenueSymbol string
	EventTime   time.Time
	UpdateID    uint64
	BidPrice    decimal.Decimal
	BidQty      decimal.Decimal
	AskPrice    decimal.Decimal
	AskQty      decimal.Decimal
}

// RawTrade is a venue aggregate-trade frame before instrument resolution.
type RawTrade struct {
	VenueSymbol string
	EventTime   time.Time
	TradeID     uint64
	Maker       bool // true: taker sold into the book (aggressor side = sell)
	Price       decimal.Decimal
	Quantity    decimal.Decimal
}

// Feed is a live venue market-data connection.
type Feed interface {
	// Subscribe registers interest in channels (e.g. "aggTrade", "bookTicker")
	// for the given venue symbols. Safe to call before or after Run; a
	// reconnect resubscribes to everything registered so far.
	Subscribe(channels, venueSymbols []string) error
	// Run connects and maintains the feed, auto-reconnecting with backoff,
	// until ctx is cancelled.
	Run(ctx context.Context) error
	Ticks() <-chan RawTick
	Trades() <-chan RawTrade
	Close() error
}
