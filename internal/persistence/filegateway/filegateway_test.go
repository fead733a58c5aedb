package filegateway

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/model"
)

func TestInsertTickPersistsAndReads(t *testing.T) {
	dir := t.TempDir()
	g, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	inst := &model.Instrument{
		ID:          model.NewID(),
		Venue:       &model.Venue{ID: model.NewID(), Name: "binance"},
		VenueSymbol: "BTCUSDT",
	}
	g.PutInstrument(inst)

	tick := model.Tick{
		EventTime:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Instrument: inst,
		BidPrice:   decimal.NewFromFloat(100),
		AskPrice:   decimal.NewFromFloat(101),
	}
	if err := g.InsertTick(context.Background(), tick); err != nil {
		t.Fatalf("insert: %v", err)
	}

	events, err := g.ReadRange(context.Background(), "tick", nil, tick.EventTime, tick.EventTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("read range: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	// A second gateway opened against the same dir should be able to reopen
	// the file without error, proving the write was atomic and well-formed.
	if _, err := Open(dir); err != nil {
		t.Fatalf("reopen: %v", err)
	}
}
