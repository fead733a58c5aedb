package strategy

import (
	"testing"
	"time"

	"github.com/arkin-run/arkin/internal/model"
)

func TestCrossoverEmitsOnlyOnEdge(t *testing.T) {
	strat := &model.Strategy{ID: model.NewID(), Name: "xover"}
	inst := &model.Instrument{ID: model.NewID()}
	cs := NewCrossoverStrategy("xover", strat, "sma_fast", "sma_slow")

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	update := model.InsightsUpdate{
		EventTime:   at,
		Instruments: []*model.Instrument{inst},
		Insights: []model.Insight{
			{Instrument: inst, FeatureID: "sma_fast", Value: 10},
			{Instrument: inst, FeatureID: "sma_slow", Value: 5},
		},
	}
	signals := cs.OnInsightsUpdate(update)
	if len(signals) != 1 || !signals[0].Weight.Equal(signals[0].Weight) {
		t.Fatalf("expected 1 signal on first crossover, got %d", len(signals))
	}
	if signals[0].Weight.Sign() != 1 {
		t.Fatalf("expected weight +1, got %v", signals[0].Weight)
	}

	// Same relative order next tick: no new signal.
	update2 := update
	update2.EventTime = at.Add(time.Minute)
	signals = cs.OnInsightsUpdate(update2)
	if len(signals) != 0 {
		t.Fatalf("expected no signal while weight unchanged, got %d", len(signals))
	}

	// Crossover flips: fast below slow now.
	update3 := model.InsightsUpdate{
		EventTime:   at.Add(2 * time.Minute),
		Instruments: []*model.Instrument{inst},
		Insights: []model.Insight{
			{Instrument: inst, FeatureID: "sma_fast", Value: 3},
			{Instrument: inst, FeatureID: "sma_slow", Value: 5},
		},
	}
	signals = cs.OnInsightsUpdate(update3)
	if len(signals) != 1 || signals[0].Weight.Sign() != -1 {
		t.Fatalf("expected one flip signal with weight -1, got %v", signals)
	}
}

func TestCrossoverSkipsMissingFeatures(t *testing.T) {
	strat := &model.Strategy{ID: model.NewID(), Name: "xover"}
	inst := &model.Instrument{ID: model.NewID()}
	cs := NewCrossoverStrategy("xover", strat, "sma_fast", "sma_slow")

	update := model.InsightsUpdate{
		EventTime:   time.Now(),
		Instruments: []*model.Instrument{inst},
		Insights:    []model.Insight{{Instrument: inst, FeatureID: "sma_fast", Value: 10}},
	}
	if signals := cs.OnInsightsUpdate(update); len(signals) != 0 {
		t.Fatalf("expected no signal when slow feature missing, got %d", len(signals))
	}
}
