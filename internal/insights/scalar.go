package insights

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/arkin-run/arkin/internal/model"
)

// ScalarOp selects a ScalarFeature's transform.
type ScalarOp int

const (
	ScalarLogReturn ScalarOp = iota
	ScalarZScore
	ScalarClamp
)

// ScalarFeature applies a single-input, single-output transform to the last
// value (and, for z-score, a trailing window) of one feature.
//
// Grounded on arkin-insights/src/features (the scalar-transform family
// alongside range.rs/dual_range.rs) generalized into one Go type with an Op
// switch rather than one struct per transform, matching the teacher's
// preference for small parametrized types over deep type hierarchies.
type ScalarFeature struct {
	Input      string
	Output     string
	Op         ScalarOp
	Window     time.Duration // ScalarZScore only
	Min, Max   float64       // ScalarClamp only
}

func (f *ScalarFeature) Inputs() []string  { return []string{f.Input} }
func (f *ScalarFeature) Outputs() []string { return []string{f.Output} }

func (f *ScalarFeature) Calculate(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	switch f.Op {
	case ScalarLogReturn:
		return f.logReturn(inst, at, state)
	case ScalarZScore:
		return f.zScore(inst, at, state)
	case ScalarClamp:
		return f.clamp(inst, at, state)
	default:
		return nil
	}
}

func (f *ScalarFeature) logReturn(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	values := state.Intervals(inst, f.Input, at, 2)
	if len(values) < 2 || values[0] <= 0 || values[1] <= 0 {
		return nil
	}
	v := math.Log(values[1] / values[0])
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return []model.Insight{{EventTime: at, Instrument: inst, FeatureID: f.Output, Value: v, Type: model.InsightTransformed}}
}

func (f *ScalarFeature) zScore(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	last, ok := state.Last(inst, f.Input, at)
	if !ok {
		return nil
	}
	window := state.Window(inst, f.Input, at, f.Window)
	if len(window) < 2 {
		return nil
	}
	mean, stddev := stat.MeanStdDev(window, nil)
	if stddev == 0 {
		return nil
	}
	return []model.Insight{{EventTime: at, Instrument: inst, FeatureID: f.Output, Value: (last - mean) / stddev, Type: model.InsightTransformed}}
}

func (f *ScalarFeature) clamp(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	last, ok := state.Last(inst, f.Input, at)
	if !ok {
		return nil
	}
	v := last
	if v < f.Min {
		v = f.Min
	}
	if v > f.Max {
		v = f.Max
	}
	return []model.Insight{{EventTime: at, Instrument: inst, FeatureID: f.Output, Value: v, Type: model.InsightTransformed}}
}
