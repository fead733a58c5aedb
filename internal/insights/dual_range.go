package insights

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/arkin-run/arkin/internal/model"
)

// DualRangeAlgo selects a DualRangeFeature's aggregate, grounded on
// arkin-insights/src/features/dual_range.rs.
type DualRangeAlgo int

const (
	DualCovariance DualRangeAlgo = iota
	DualCorrelation
	DualCosineSimilarity
	DualBeta
)

// DualRangeFeature computes one aggregate over a trailing window of two
// input features (e.g. an instrument's return against a market index's).
type DualRangeFeature struct {
	InputA, InputB string
	Output         string
	Algo           DualRangeAlgo
	Window         time.Duration
	Periods        int
	MinCount       int
}

func (f *DualRangeFeature) Inputs() []string  { return []string{f.InputA, f.InputB} }
func (f *DualRangeFeature) Outputs() []string { return []string{f.Output} }

func (f *DualRangeFeature) sample(inst *model.Instrument, id string, at time.Time, state *State) []float64 {
	if f.Periods > 0 {
		return state.Intervals(inst, id, at, f.Periods)
	}
	return state.Window(inst, id, at, f.Window)
}

func (f *DualRangeFeature) Calculate(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	a := f.sample(inst, f.InputA, at, state)
	b := f.sample(inst, f.InputB, at, state)
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	min := f.MinCount
	if min == 0 {
		min = 2
	}
	if n < min {
		return nil
	}
	a, b = a[len(a)-n:], b[len(b)-n:]

	var v float64
	switch f.Algo {
	case DualCovariance:
		v = stat.Covariance(a, b, nil)
	case DualCorrelation:
		v = stat.Correlation(a, b, nil)
	case DualCosineSimilarity:
		v = cosineSimilarity(a, b)
	case DualBeta:
		cov := stat.Covariance(a, b, nil)
		varB := stat.Variance(b, nil)
		if varB == 0 {
			return nil
		}
		v = cov / varB
	default:
		return nil
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return []model.Insight{{EventTime: at, Instrument: inst, FeatureID: f.Output, Value: v, Type: model.InsightContinuous}}
}

// cosineSimilarity has no direct gonum/stat equivalent (stat.Correlation
// centers its inputs; cosine similarity does not), so it is computed
// directly — a documented stdlib fallback noted in DESIGN.md.
func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
