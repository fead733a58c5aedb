// Package ingestor turns venue wire events into canonical bus events. Live
// mode wraps a venue.Feed (resolve RawTick/RawTrade against the persistence
// gateway's instrument reference data, then publish Tick/AggTrade). Replay
// mode streams historical events back from a persistence.Gateway at a
// controlled pace for simulation runs.
//
// Grounded on the teacher's internal/exchange/ws.go dispatch loop and
// _examples/original_source/arkin-ingestor-binance/src/provider.rs's
// process_event (parse -> resolve instrument -> publish, warn+drop on a
// missing instrument).
package ingestor

import (
	"context"
	"log/slog"

	"github.com/arkin-run/arkin/internal/bus"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/persistence"
	"github.com/arkin-run/arkin/internal/service"
	"github.com/arkin-run/arkin/pkg/venue"
)

// LiveIngestor drives one venue.Feed, resolving raw frames into canonical
// model entities via gateway lookups and publishing them on the bus.
type LiveIngestor struct {
	service.Base
	id      string
	feed    venue.Feed
	venue   *model.Venue
	gateway persistence.Gateway
	bus     *bus.Bus
	logger  *slog.Logger
}

// NewLiveIngestor constructs a LiveIngestor for one venue+feed pair.
func NewLiveIngestor(id string, feed venue.Feed, v *model.Venue, gw persistence.Gateway, b *bus.Bus, logger *slog.Logger) *LiveIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveIngestor{id: id, feed: feed, venue: v, gateway: gw, bus: b, logger: logger.With("component", "ingestor", "id", id)}
}

func (i *LiveIngestor) Identifier() string { return i.id }

// Subscribe forwards to the underlying feed; channels mirrors spec §6's
// Subscribe(channels, instruments) producer contract.
func (i *LiveIngestor) Subscribe(channels, venueSymbols []string) error {
	return i.feed.Subscribe(channels, venueSymbols)
}

func (i *LiveIngestor) StartTasks(ctx *service.Ctx) error {
	ctx.Spawn(func(c context.Context) {
		if err := i.feed.Run(c); err != nil && c.Err() == nil {
			i.logger.Error("feed run exited", "error", err)
		}
	})
	ctx.Spawn(func(c context.Context) { i.consumeTicks(c) })
	ctx.Spawn(func(c context.Context) { i.consumeTrades(c) })
	return nil
}

func (i *LiveIngestor) StopTasks(ctx *service.Ctx) error {
	return i.feed.Close()
}

func (i *LiveIngestor) consumeTicks(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-i.feed.Ticks():
			if !ok {
				return
			}
			i.publishTick(ctx, raw)
		}
	}
}

func (i *LiveIngestor) consumeTrades(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-i.feed.Trades():
			if !ok {
				return
			}
			i.publishTrade(ctx, raw)
		}
	}
}

func (i *LiveIngestor) resolveInstrument(ctx context.Context, venueSymbol string) (*model.Instrument, bool) {
	inst, err := i.gateway.GetInstrument(ctx, persistence.InstrumentQuery{Venue: i.venue.Name, VenueSymbol: venueSymbol})
	if err != nil {
		i.logger.Warn("instrument not found for venue symbol", "venue_symbol", venueSymbol, "error", err)
		return nil, false
	}
	return inst, true
}

func (i *LiveIngestor) publishTick(ctx context.Context, raw venue.RawTick) {
	inst, ok := i.resolveInstrument(ctx, raw.VenueSymbol)
	if !ok {
		return
	}
	tick := model.Tick{
		EventTime: raw.EventTime,
		Instrument: inst,
		TickID:    raw.UpdateID,
		BidPrice:  raw.BidPrice,
		BidQty:    raw.BidQty,
		AskPrice:  raw.AskPrice,
		AskQty:    raw.AskQty,
	}
	bus.Publish(i.bus, model.TickUpdate{Tick: tick})
	if i.gateway != nil {
		if err := i.gateway.InsertTick(ctx, tick); err != nil {
			i.logger.Warn("persist tick failed", "error", err)
		}
	}
}

func (i *LiveIngestor) publishTrade(ctx context.Context, raw venue.RawTrade) {
	inst, ok := i.resolveInstrument(ctx, raw.VenueSymbol)
	if !ok {
		return
	}
	trade := model.AggTrade{
		EventTime:  raw.EventTime,
		Instrument: inst,
		TradeID:    raw.TradeID,
		Side:       model.SideFromMaker(raw.Maker),
		Price:      raw.Price,
		Quantity:   raw.Quantity,
	}
	bus.Publish(i.bus, model.AggTradeUpdate{Trade: trade})
	if i.gateway != nil {
		if err := i.gateway.InsertTrade(ctx, trade); err != nil {
			i.logger.Warn("persist trade failed", "error", err)
		}
	}
}

var _ service.Runnable = (*LiveIngestor)(nil)
