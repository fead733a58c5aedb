package model

import (
	"testing"
	"time"
)

// Scenario 4: ExecutionOrder fill averaging.
func TestExecutionOrderApplyFillAveragesAcrossFills(t *testing.T) {
	strategy := &Strategy{ID: NewID(), Name: "test-strategy"}
	inst := &Instrument{ID: NewID(), Symbol: "BTC-USDT-PERP"}

	order := NewExecutionOrder(1, time.Now().UTC(), strategy, inst, SideBuy, ExecutionOrderTaker, TimeInForceIOC, d("10"))
	if err := order.Transition(ExecOrderInProgress); err != nil {
		t.Fatalf("transition to in_progress: %v", err)
	}

	order.ApplyFill(d("100"), d("4"), d("0.5"))
	if !order.FilledQuantity.Equal(d("4")) {
		t.Fatalf("after fill A: filled_quantity = %s, want 4", order.FilledQuantity)
	}
	if !order.FillPrice.Equal(d("100")) {
		t.Fatalf("after fill A: fill_price = %s, want 100", order.FillPrice)
	}
	if order.Status != ExecOrderPartiallyFilled {
		t.Fatalf("after fill A: status = %s, want %s", order.Status, ExecOrderPartiallyFilled)
	}

	order.ApplyFill(d("110"), d("6"), d("0.9"))
	if !order.FilledQuantity.Equal(d("10")) {
		t.Fatalf("filled_quantity = %s, want 10", order.FilledQuantity)
	}
	if !order.FillPrice.Equal(d("106")) {
		t.Fatalf("fill_price = %s, want 106", order.FillPrice)
	}
	if !order.TotalCommission.Equal(d("1.4")) {
		t.Fatalf("total_commission = %s, want 1.4", order.TotalCommission)
	}
	if order.Status != ExecOrderFilled {
		t.Fatalf("status = %s, want %s", order.Status, ExecOrderFilled)
	}
}
