package insights

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arkin-run/arkin/internal/model"
)

func seedSeries(state *State, inst *model.Instrument, id string, base time.Time, step time.Duration, values []float64) {
	for i, v := range values {
		state.Insert(model.Insight{EventTime: base.Add(time.Duration(i) * step), Instrument: inst, FeatureID: id, Value: v})
	}
	state.Commit(base.Add(time.Duration(len(values)) * step))
}

func TestScalarLogReturn(t *testing.T) {
	state := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSeries(state, inst, "price", base, time.Minute, []float64{100, 110})

	f := &ScalarFeature{Input: "price", Output: "log_return", Op: ScalarLogReturn}
	out := f.Calculate(inst, base.Add(time.Minute), state)
	if len(out) != 1 {
		t.Fatalf("expected 1 insight, got %d", len(out))
	}
	want := math.Log(110.0 / 100.0)
	if math.Abs(out[0].Value-want) > 1e-9 {
		t.Fatalf("got %v, want %v", out[0].Value, want)
	}
}

func TestScalarClamp(t *testing.T) {
	state := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSeries(state, inst, "x", base, time.Minute, []float64{50})

	f := &ScalarFeature{Input: "x", Output: "clamped", Op: ScalarClamp, Min: 0, Max: 10}
	out := f.Calculate(inst, base, state)
	if len(out) != 1 || out[0].Value != 10 {
		t.Fatalf("got %v, want 10", out)
	}
}

func TestRangeFeatureMeanAndStdDev(t *testing.T) {
	state := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSeries(state, inst, "x", base, time.Minute, []float64{1, 2, 3, 4, 5})

	mean := &RangeFeature{Input: "x", Output: "x_mean", Algo: RangeMean, Periods: 5}
	out := mean.Calculate(inst, base.Add(4*time.Minute), state)
	if len(out) != 1 || out[0].Value != 3 {
		t.Fatalf("mean: got %v, want 3", out)
	}

	stddev := &RangeFeature{Input: "x", Output: "x_std", Algo: RangeStdDev, Periods: 5}
	out = stddev.Calculate(inst, base.Add(4*time.Minute), state)
	if len(out) != 1 {
		t.Fatalf("stddev: expected 1 insight, got %d", len(out))
	}
}

func TestRangeFeatureInsufficientData(t *testing.T) {
	state := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSeries(state, inst, "x", base, time.Minute, []float64{1})

	f := &RangeFeature{Input: "x", Output: "x_mean", Algo: RangeMean, Periods: 5}
	out := f.Calculate(inst, base, state)
	if out != nil {
		t.Fatalf("expected no output for insufficient data, got %v", out)
	}
}

func TestDualRangeCorrelation(t *testing.T) {
	state := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSeries(state, inst, "a", base, time.Minute, []float64{1, 2, 3, 4})
	seedSeries(state, inst, "b", base, time.Minute, []float64{2, 4, 6, 8})

	f := &DualRangeFeature{InputA: "a", InputB: "b", Output: "corr", Algo: DualCorrelation, Periods: 4}
	out := f.Calculate(inst, base.Add(3*time.Minute), state)
	if len(out) != 1 || math.Abs(out[0].Value-1) > 1e-9 {
		t.Fatalf("got %v, want 1", out)
	}
}

func TestMovingAverageSMA(t *testing.T) {
	state := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedSeries(state, inst, "price", base, time.Minute, []float64{1, 2, 3, 4, 5})

	f := &MovingAverageFeature{Input: "price", Output: "sma5", Kind: MASimple, Periods: 5}
	out := f.Calculate(inst, base.Add(4*time.Minute), state)
	if len(out) != 1 || out[0].Value != 3 {
		t.Fatalf("got %v, want 3", out)
	}
}

func TestSpectralFeatureProducesBands(t *testing.T) {
	state := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	xs := make([]float64, 8)
	for i := range xs {
		xs[i] = math.Sin(float64(i))
	}
	seedSeries(state, inst, "price", base, time.Minute, xs)

	f := &SpectralFeature{Input: "price", Periods: 8, NumBands: 2, BandPrefix: "band", EntropyID: "entropy"}
	out := f.Calculate(inst, base.Add(7*time.Minute), state)
	if len(out) != 3 {
		t.Fatalf("expected 2 bands + entropy, got %d: %v", len(out), out)
	}
}

func TestQuantileArtifactRoundTrip(t *testing.T) {
	art := &QuantileArtifact{
		FeatureID:  "spread",
		Quantiles:  []float64{0, 0.5, 1},
		Thresholds: []float64{0, 10, 20},
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "scaler.json")
	if err := art.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadQuantileArtifact(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	q := loaded.Transform(10)
	if math.Abs(q-0.5) > 1e-9 {
		t.Fatalf("transform: got %v, want 0.5", q)
	}
	back := loaded.InverseTransform(q)
	if math.Abs(back-10) > 1e-9 {
		t.Fatalf("round trip: got %v, want 10", back)
	}
}

func TestLoadQuantileArtifactRejectsNonMonotone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`{"feature_id":"x","quantiles":[0,0.5,0.2],"thresholds":[0,1,2]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadQuantileArtifact(path); err == nil {
		t.Fatal("expected error for non-monotone quantile artifact")
	}
}
