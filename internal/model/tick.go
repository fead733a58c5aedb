package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick is a venue's best bid/ask quote snapshot. Ordered by (EventTime, TickID).
type Tick struct {
	EventTime time.Time
	Instrument *Instrument
	TickID     uint64
	BidPrice   decimal.Decimal
	BidQty     decimal.Decimal
	AskPrice   decimal.Decimal
	AskQty     decimal.Decimal
}

// Mid returns round_to_tick((bid+ask)/2), per spec §3.
func (t *Tick) Mid() decimal.Decimal {
	mid := t.BidPrice.Add(t.AskPrice).Div(decimal.NewFromInt(2))
	return t.Instrument.RoundToTick(mid)
}

// Spread returns ask - bid.
func (t *Tick) Spread() decimal.Decimal {
	return t.AskPrice.Sub(t.BidPrice)
}

// Side distinguishes buy/sell for trades and orders.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Sign returns +1 for Buy, -1 for Sell.
func (s Side) Sign() int {
	if s == SideBuy {
		return 1
	}
	return -1
}

// AggTrade is an aggregated taker-initiated trade report. maker=true implies
// side=Sell (taker sold into the book), else Buy.
type AggTrade struct {
	EventTime  time.Time
	Instrument *Instrument
	TradeID    uint64
	Side       Side
	Price      decimal.Decimal
	Quantity   decimal.Decimal
}

// SideFromMaker derives the canonical taker side from the maker flag used by
// most venue wire protocols.
func SideFromMaker(maker bool) Side {
	if maker {
		return SideSell
	}
	return SideBuy
}
