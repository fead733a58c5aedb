package insights

import (
	"testing"
	"time"

	"github.com/arkin-run/arkin/internal/model"
)

func TestStateCommitIsolatesPendingWrites(t *testing.T) {
	s := NewState(0)
	inst := &model.Instrument{ID: model.NewID(), VenueSymbol: "BTCUSDT"}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Insert(model.Insight{EventTime: at, Instrument: inst, FeatureID: "mid_price", Value: 100})

	if _, ok := s.Last(inst, "mid_price", at); ok {
		t.Fatal("pending write should not be visible before Commit")
	}

	s.Commit(at)

	v, ok := s.Last(inst, "mid_price", at)
	if !ok || v != 100 {
		t.Fatalf("got (%v, %v), want (100, true)", v, ok)
	}
}

func TestStateInsertLiveIsVisibleWithoutCommit(t *testing.T) {
	s := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.InsertLive(model.Insight{EventTime: at, Instrument: inst, FeatureID: "derived", Value: 42})

	v, ok := s.Last(inst, "derived", at)
	if !ok || v != 42 {
		t.Fatalf("got (%v, %v), want (42, true) without a Commit call", v, ok)
	}
}

func TestStateTiebreakerOrdersCollisions(t *testing.T) {
	s := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Insert(model.Insight{EventTime: at, Instrument: inst, FeatureID: "f", Value: 1})
	s.Insert(model.Insight{EventTime: at, Instrument: inst, FeatureID: "f", Value: 2})
	s.Commit(at)

	got := s.Intervals(inst, "f", at, 2)
	want := []float64{1, 2}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStateWindow(t *testing.T) {
	s := NewState(0)
	inst := &model.Instrument{ID: model.NewID()}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.Insert(model.Insight{EventTime: base.Add(time.Duration(i) * time.Minute), Instrument: inst, FeatureID: "f", Value: float64(i)})
	}
	s.Commit(base.Add(10 * time.Minute))

	got := s.Window(inst, "f", base.Add(4*time.Minute), 2*time.Minute)
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestStatePrune(t *testing.T) {
	s := NewState(time.Minute)
	inst := &model.Instrument{ID: model.NewID()}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Insert(model.Insight{EventTime: base, Instrument: inst, FeatureID: "f", Value: 1})
	s.Insert(model.Insight{EventTime: base.Add(2 * time.Minute), Instrument: inst, FeatureID: "f", Value: 2})
	s.Commit(base.Add(2 * time.Minute))

	s.Prune(base.Add(2 * time.Minute))

	if _, ok := s.Last(inst, "f", base); ok {
		t.Fatal("expected entry older than TTL to be pruned")
	}
	if v, ok := s.Last(inst, "f", base.Add(2*time.Minute)); !ok || v != 2 {
		t.Fatalf("expected recent entry to survive prune, got (%v, %v)", v, ok)
	}
}
