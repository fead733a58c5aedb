package insights

import (
	"math"
	"time"

	talib "github.com/markcheno/go-talib"

	"github.com/arkin-run/arkin/internal/model"
)

// MAKind selects a MovingAverageFeature's algorithm.
type MAKind int

const (
	MASimple MAKind = iota
	MAExponential
	MADoubleExponential // approximated: talib has no DMA; see DESIGN.md
	MATriangular        // approximated: talib has no TMA; see DESIGN.md
)

// MovingAverageFeature maintains a moving average of one input feature.
//
// Grounded on arkin-insights/src/ta/ma.rs's per-instrument incremental
// accumulator: since go-talib's functions take a whole slice rather than
// exposing a streaming accumulator, this recomputes over the trailing
// Periods window each tick instead of updating a running state — same
// output, O(window) instead of O(1) per tick. DMA/TMA have no talib
// equivalent, so they fall back to talib's unweighted SMA and weighted
// WMA respectively, documented in DESIGN.md as a library-gap substitution.
type MovingAverageFeature struct {
	Input   string
	Output  string
	Kind    MAKind
	Periods int
}

func (f *MovingAverageFeature) Inputs() []string  { return []string{f.Input} }
func (f *MovingAverageFeature) Outputs() []string { return []string{f.Output} }

func (f *MovingAverageFeature) Calculate(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	xs := state.Intervals(inst, f.Input, at, f.Periods)
	if len(xs) < f.Periods {
		return nil
	}

	var out []float64
	switch f.Kind {
	case MASimple, MADoubleExponential:
		out = talib.Sma(xs, f.Periods)
	case MAExponential:
		out = talib.Ema(xs, f.Periods)
	case MATriangular:
		out = talib.Wma(xs, f.Periods)
	default:
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	v := out[len(out)-1]
	if math.IsNaN(v) {
		return nil
	}
	return []model.Insight{{EventTime: at, Instrument: inst, FeatureID: f.Output, Value: v, Type: model.InsightMovingAverage}}
}
