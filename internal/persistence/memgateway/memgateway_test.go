package memgateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/errs"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/persistence"
)

func testInstrument() *model.Instrument {
	return &model.Instrument{
		ID:                model.NewID(),
		Venue:             &model.Venue{ID: model.NewID(), Name: "binance"},
		Symbol:            "BTCUSDT",
		VenueSymbol:       "BTCUSDT",
		PricePrecision:    2,
		QuantityPrecision: 3,
		TickSize:          decimal.NewFromFloat(0.01),
		LotSize:           decimal.NewFromFloat(0.001),
	}
}

func TestGetInstrumentNotFound(t *testing.T) {
	g := New()
	_, err := g.GetInstrument(context.Background(), persistence.InstrumentQuery{Venue: "binance", VenueSymbol: "BTCUSDT"})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertAndReadRangeTicks(t *testing.T) {
	g := New()
	inst := testInstrument()
	g.PutInstrument(inst)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tick := model.Tick{
			EventTime: base.Add(time.Duration(i) * time.Minute),
			Instrument: inst,
			BidPrice:  decimal.NewFromFloat(100),
			AskPrice:  decimal.NewFromFloat(101),
		}
		if err := g.InsertTick(context.Background(), tick); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	events, err := g.ReadRange(context.Background(), "tick", []uuid.UUID{inst.ID}, base.Add(time.Minute), base.Add(4*time.Minute))
	if err != nil {
		t.Fatalf("read range: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events in range, got %d", len(events))
	}
}

func TestStreamRange(t *testing.T) {
	g := New()
	inst := testInstrument()
	g.PutInstrument(inst)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		g.InsertTick(context.Background(), model.Tick{
			EventTime:  base.Add(time.Duration(i) * time.Minute),
			Instrument: inst,
		})
	}

	ch := make(chan any)
	go g.StreamRange(context.Background(), "tick", nil, base, base.Add(time.Hour), ch)

	count := 0
	for range ch {
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 streamed events, got %d", count)
	}
}

func TestExecutionOrderConflict(t *testing.T) {
	g := New()
	order := model.ExecutionOrder{ID: 1}
	if err := g.InsertExecutionOrder(context.Background(), order); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := g.InsertExecutionOrder(context.Background(), order); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}
