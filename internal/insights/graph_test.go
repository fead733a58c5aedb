package insights

import (
	"testing"
	"time"

	"github.com/arkin-run/arkin/internal/model"
)

// recordingFeature reads `in`, writes `out = in * 2`, and appends its own
// name to a shared log each time it is evaluated, letting tests assert
// evaluation order.
type recordingFeature struct {
	name string
	in   string
	out  string
	log  *[]string
}

func (f *recordingFeature) Inputs() []string  { return []string{f.in} }
func (f *recordingFeature) Outputs() []string { return []string{f.out} }

func (f *recordingFeature) Calculate(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	*f.log = append(*f.log, f.name)
	v, ok := state.Last(inst, f.in, at)
	if !ok {
		return nil
	}
	return []model.Insight{{EventTime: at, Instrument: inst, FeatureID: f.out, Value: v * 2}}
}

func TestGraphTopologicalOrder(t *testing.T) {
	var log []string
	// c depends on b depends on a (raw input); registered out of order to
	// prove the graph itself establishes the dependency order.
	c := &recordingFeature{name: "c", in: "b", out: "c", log: &log}
	a := &recordingFeature{name: "a", in: "raw", out: "a", log: &log}
	b := &recordingFeature{name: "b", in: "a", out: "b", log: &log}

	g, err := NewGraph([]Feature{c, a, b}, nil)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	state := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	state.Insert(model.Insight{EventTime: at, Instrument: inst, FeatureID: "raw", Value: 1})
	state.Commit(at)

	out := g.Calculate(inst, at, state)

	wantOrder := []string{"a", "b", "c"}
	for i := range wantOrder {
		if log[i] != wantOrder[i] {
			t.Fatalf("got evaluation order %v, want %v", log, wantOrder)
		}
	}

	want := map[string]float64{"a": 2, "b": 4, "c": 8}
	if len(out) != len(want) {
		t.Fatalf("got %d insights, want %d", len(out), len(want))
	}
	for _, in := range out {
		if in.Value != want[in.FeatureID] {
			t.Fatalf("feature %s: got %v, want %v", in.FeatureID, in.Value, want[in.FeatureID])
		}
	}
}

func TestGraphDetectsCycle(t *testing.T) {
	var log []string
	a := &recordingFeature{name: "a", in: "b", out: "a", log: &log}
	b := &recordingFeature{name: "b", in: "a", out: "b", log: &log}

	if _, err := NewGraph([]Feature{a, b}, nil); err == nil {
		t.Fatal("expected cycle detection error")
	}
}
