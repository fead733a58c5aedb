package insights

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/arkin-run/arkin/internal/model"
)

// RangeAlgo selects a RangeFeature's aggregate, translated from
// arkin-insights/src/features/range.rs's RangeAlgo enum into a Go
// type+switch (the teacher's idiom for small closed variant sets, e.g.
// internal/strategy/maker.go's quoting-mode constants).
type RangeAlgo int

const (
	RangeCount RangeAlgo = iota
	RangeSum
	RangeMean
	RangeMedian
	RangeMin
	RangeMax
	RangeAbsoluteRange
	RangeRelativeRange
	RangeRelativePosition
	RangeVariance
	RangeStdDev
	RangeSkew
	RangeKurtosis
	RangeQuantile
	RangeIQR
	RangeAutocorrelation
	RangeCoefOfVariation
)

// RangeFeature computes one aggregate over a trailing window or interval
// count of a single input feature.
type RangeFeature struct {
	Input    string
	Output   string
	Algo     RangeAlgo
	Window   time.Duration // used when Periods == 0
	Periods  int           // interval-count mode when > 0
	MinCount int
	Quantile float64 // RangeQuantile, RangeAutocorrelation lag via Quantile field when Algo==RangeAutocorrelation
}

func (f *RangeFeature) Inputs() []string  { return []string{f.Input} }
func (f *RangeFeature) Outputs() []string { return []string{f.Output} }

func (f *RangeFeature) sample(inst *model.Instrument, at time.Time, state *State) []float64 {
	if f.Periods > 0 {
		return state.Intervals(inst, f.Input, at, f.Periods)
	}
	return state.Window(inst, f.Input, at, f.Window)
}

func (f *RangeFeature) Calculate(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	xs := f.sample(inst, at, state)
	min := f.MinCount
	if min == 0 {
		min = 2
	}
	if len(xs) < min {
		return nil
	}

	v, ok := f.aggregate(xs)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return []model.Insight{{EventTime: at, Instrument: inst, FeatureID: f.Output, Value: v, Type: model.InsightContinuous}}
}

func (f *RangeFeature) aggregate(xs []float64) (float64, bool) {
	switch f.Algo {
	case RangeCount:
		return float64(len(xs)), true
	case RangeSum:
		return floats64Sum(xs), true
	case RangeMean:
		return stat.Mean(xs, nil), true
	case RangeMedian:
		return medianOf(xs), true
	case RangeMin:
		return minOf(xs), true
	case RangeMax:
		return maxOf(xs), true
	case RangeAbsoluteRange:
		return maxOf(xs) - minOf(xs), true
	case RangeRelativeRange:
		lo, hi := minOf(xs), maxOf(xs)
		if lo == 0 {
			return 0, false
		}
		return (hi - lo) / lo, true
	case RangeRelativePosition:
		lo, hi := minOf(xs), maxOf(xs)
		if hi == lo {
			return 0, false
		}
		return (xs[len(xs)-1] - lo) / (hi - lo), true
	case RangeVariance:
		return stat.Variance(xs, nil), true
	case RangeStdDev:
		return stat.StdDev(xs, nil), true
	case RangeSkew:
		return stat.Skew(xs, nil), true
	case RangeKurtosis:
		return stat.ExKurtosis(xs, nil), true
	case RangeQuantile:
		sorted := append([]float64(nil), xs...)
		sort.Float64s(sorted)
		return stat.Quantile(f.Quantile, stat.Empirical, sorted, nil), true
	case RangeIQR:
		sorted := append([]float64(nil), xs...)
		sort.Float64s(sorted)
		q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
		q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
		return q3 - q1, true
	case RangeAutocorrelation:
		return autocorrelation(xs, lagOrDefault(f.Quantile)), true
	case RangeCoefOfVariation:
		mean := stat.Mean(xs, nil)
		if mean == 0 {
			return 0, false
		}
		return stat.StdDev(xs, nil) / mean, true
	default:
		return 0, false
	}
}

func lagOrDefault(q float64) int {
	if q <= 0 {
		return 1
	}
	return int(q)
}

// autocorrelation at the given lag, via Pearson correlation of the series
// against its own lagged copy. gonum/stat has no direct ACF helper, so this
// composes stat.Correlation over the two overlapping slices — documented in
// DESIGN.md as the library-gap fallback.
func autocorrelation(xs []float64, lag int) float64 {
	if lag <= 0 || lag >= len(xs) {
		return math.NaN()
	}
	a := xs[:len(xs)-lag]
	b := xs[lag:]
	return stat.Correlation(a, b, nil)
}

func floats64Sum(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum
}

func medianOf(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
