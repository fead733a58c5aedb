package allocation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/model"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testInstrument() *model.Instrument {
	return &model.Instrument{
		ID:       model.NewID(),
		TickSize: d("0.01"),
		LotSize:  d("0.001"),
	}
}

func TestAllocateComputesDeltaOrder(t *testing.T) {
	strat := &model.Strategy{ID: model.NewID(), Name: "s"}
	inst := testInstrument()

	snap := NewSnapshot(d("100000"))
	snap.SetMidPrice(inst, d("50000"))

	opt := NewReferenceOptimizer(Config{
		MaxAllocation:          d("0.5"),
		MaxAllocationPerSignal: d("0.1"),
		RebalanceThreshold:     d("10"),
	})

	signals := []model.Signal{{Strategy: strat, Instrument: inst, Weight: d("1")}}
	orders := opt.Allocate(time.Now(), signals, snap)
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	o := orders[0]
	if o.Side != model.SideBuy {
		t.Fatalf("expected buy side, got %v", o.Side)
	}
	// allocation = min(100000*0.5/1, 100000*0.1) = 10000; expected = 10000/50000 = 0.2
	if !o.Quantity.Equal(d("0.2")) {
		t.Fatalf("expected quantity 0.2, got %v", o.Quantity)
	}
}

func TestAllocateSuppressesBelowRebalanceThreshold(t *testing.T) {
	strat := &model.Strategy{ID: model.NewID(), Name: "s"}
	inst := testInstrument()

	snap := NewSnapshot(d("1000"))
	snap.SetMidPrice(inst, d("50000"))
	snap.SetPosition(inst, d("0.001")) // already near target, delta notional below threshold

	opt := NewReferenceOptimizer(Config{
		MaxAllocation:          d("0.5"),
		MaxAllocationPerSignal: d("0.1"),
		RebalanceThreshold:     d("100"),
	})

	signals := []model.Signal{{Strategy: strat, Instrument: inst, Weight: d("1")}}
	orders := opt.Allocate(time.Now(), signals, snap)
	if len(orders) != 0 {
		t.Fatalf("expected 0 orders below rebalance threshold, got %d: %v", len(orders), orders)
	}
}

func TestAllocateSkipsMissingMidPrice(t *testing.T) {
	strat := &model.Strategy{ID: model.NewID(), Name: "s"}
	inst := testInstrument()
	snap := NewSnapshot(d("1000"))

	opt := NewReferenceOptimizer(Config{MaxAllocation: d("0.5"), MaxAllocationPerSignal: d("0.1"), RebalanceThreshold: d("1")})
	signals := []model.Signal{{Strategy: strat, Instrument: inst, Weight: d("1")}}
	if orders := opt.Allocate(time.Now(), signals, snap); len(orders) != 0 {
		t.Fatalf("expected 0 orders without a mid price, got %d", len(orders))
	}
}

func TestAllocateSplitsAcrossMultipleSignals(t *testing.T) {
	strat := &model.Strategy{ID: model.NewID(), Name: "s"}
	a, b := testInstrument(), testInstrument()
	snap := NewSnapshot(d("100000"))
	snap.SetMidPrice(a, d("50000"))
	snap.SetMidPrice(b, d("50000"))

	opt := NewReferenceOptimizer(Config{MaxAllocation: d("0.5"), MaxAllocationPerSignal: d("0.1"), RebalanceThreshold: d("1")})
	signals := []model.Signal{
		{Strategy: strat, Instrument: a, Weight: d("1")},
		{Strategy: strat, Instrument: b, Weight: d("1")},
	}
	orders := opt.Allocate(time.Now(), signals, snap)
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	// allocation = min(100000*0.5/2, 100000*0.1) = 10000 per signal.
	for _, o := range orders {
		if !o.Quantity.Equal(d("0.2")) {
			t.Fatalf("expected quantity 0.2 per signal, got %v", o.Quantity)
		}
	}
}
