package ingestor

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/bus"
	"github.com/arkin-run/arkin/internal/clock"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/persistence/memgateway"
	"github.com/arkin-run/arkin/internal/service"
)

func TestReplayIngestorMergesInOrder(t *testing.T) {
	gw := memgateway.New()
	inst := &model.Instrument{ID: model.NewID(), Venue: &model.Venue{Name: "binance"}, VenueSymbol: "BTCUSDT"}
	gw.PutInstrument(inst)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gw.InsertTick(context.Background(), model.Tick{EventTime: base, Instrument: inst, BidPrice: decimal.NewFromInt(1), AskPrice: decimal.NewFromInt(2)})
	gw.InsertTrade(context.Background(), model.AggTrade{EventTime: base.Add(30 * time.Second), Instrument: inst, Price: decimal.NewFromInt(1)})
	gw.InsertTick(context.Background(), model.Tick{EventTime: base.Add(time.Minute), Instrument: inst, BidPrice: decimal.NewFromInt(1), AskPrice: decimal.NewFromInt(2)})

	b := bus.New()
	ticks := bus.Subscribe[model.TickUpdate](b)
	trades := bus.Subscribe[model.AggTradeUpdate](b)
	finished := bus.Subscribe[model.Finished](b)

	simClock := clock.NewSimClock(base, base.Add(10*time.Minute), time.Minute)
	ri := NewReplayIngestor("replay-test", gw, simClock, b, []uuid.UUID{inst.ID}, base, base.Add(2*time.Minute), nil)

	ctx := service.NewCtx(nil)
	if err := ri.StartTasks(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	var order []string
	for i := 0; i < 3; i++ {
		select {
		case <-ticks.C():
			order = append(order, "tick")
		case <-trades.C():
			order = append(order, "trade")
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for replayed event")
		}
	}

	want := []string{"tick", "trade", "tick"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}

	select {
	case <-finished.C():
	case <-time.After(2 * time.Second):
		t.Fatal("expected Finished event")
	}
}
