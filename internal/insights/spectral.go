package insights

import (
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/arkin-run/arkin/internal/model"
)

// SpectralFeature computes FFT magnitude bands and spectral entropy over a
// fixed-size trailing window of one input feature.
//
// Grounded on arkin-insights/src/fft.rs's fixed-window FFT feature, using
// gonum.org/v1/gonum/dsp/fourier's real FFT in place of the original's
// rustfft.
type SpectralFeature struct {
	Input      string
	Periods    int // window size, must be >= 2
	NumBands   int
	BandPrefix string // output feature id prefix, bands are BandPrefix+"_0".."_n"
	EntropyID  string // output feature id for spectral entropy, "" to skip
}

func (f *SpectralFeature) Inputs() []string { return []string{f.Input} }

func (f *SpectralFeature) Outputs() []string {
	out := make([]string, 0, f.NumBands+1)
	for i := 0; i < f.NumBands; i++ {
		out = append(out, bandID(f.BandPrefix, i))
	}
	if f.EntropyID != "" {
		out = append(out, f.EntropyID)
	}
	return out
}

func bandID(prefix string, i int) string {
	return prefix + "_" + strconv.Itoa(i)
}

func (f *SpectralFeature) Calculate(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	xs := state.Intervals(inst, f.Input, at, f.Periods)
	if len(xs) < f.Periods || f.Periods < 2 {
		return nil
	}

	fft := fourier.NewFFT(f.Periods)
	coeffs := fft.Coefficients(nil, xs)

	mags := make([]float64, len(coeffs))
	var total float64
	for i, c := range coeffs {
		mags[i] = math.Hypot(real(c), imag(c))
		total += mags[i]
	}

	var out []model.Insight
	bands := bandMagnitudes(mags, f.NumBands)
	for i, m := range bands {
		out = append(out, model.Insight{EventTime: at, Instrument: inst, FeatureID: bandID(f.BandPrefix, i), Value: m, Type: model.InsightContinuous})
	}

	if f.EntropyID != "" && total > 0 {
		var entropy float64
		for _, m := range mags {
			if m == 0 {
				continue
			}
			p := m / total
			entropy -= p * math.Log2(p)
		}
		out = append(out, model.Insight{EventTime: at, Instrument: inst, FeatureID: f.EntropyID, Value: entropy, Type: model.InsightContinuous})
	}

	return out
}

// bandMagnitudes buckets the FFT magnitude spectrum into n equal-width bands.
func bandMagnitudes(mags []float64, n int) []float64 {
	if n <= 0 || len(mags) == 0 {
		return nil
	}
	out := make([]float64, n)
	width := len(mags) / n
	if width == 0 {
		width = 1
	}
	for i := 0; i < n; i++ {
		start := i * width
		end := start + width
		if i == n-1 || end > len(mags) {
			end = len(mags)
		}
		if start >= end {
			continue
		}
		var sum float64
		for _, m := range mags[start:end] {
			sum += m
		}
		out[i] = sum
	}
	return out
}
