package insights

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/arkin-run/arkin/internal/model"
)

// QuantileArtifact is the scaler's JSON artifact: a sorted table of
// (quantile, value) pairs for one feature, produced offline and loaded at
// startup, grounded on arkin-insights/src/scaler/quantile_transform.rs's
// serialized scaler. One table serves every instrument; the format has no
// per-instrument entries.
type QuantileArtifact struct {
	FeatureID  string    `json:"feature_id"`
	Quantiles  []float64 `json:"quantiles"` // strictly increasing, in [0, 1]
	Thresholds []float64 `json:"thresholds"` // strictly increasing, same length
}

// LoadQuantileArtifact reads and validates a QuantileArtifact from disk.
func LoadQuantileArtifact(path string) (*QuantileArtifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read quantile artifact: %w", err)
	}
	var art QuantileArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("decode quantile artifact: %w", err)
	}
	if len(art.Quantiles) != len(art.Thresholds) || len(art.Quantiles) < 2 {
		return nil, fmt.Errorf("quantile artifact %s: quantiles/thresholds must be parallel arrays of length >= 2", path)
	}
	for i := 1; i < len(art.Quantiles); i++ {
		if art.Quantiles[i] <= art.Quantiles[i-1] || art.Thresholds[i] <= art.Thresholds[i-1] {
			return nil, fmt.Errorf("quantile artifact %s: quantiles and thresholds must be strictly increasing", path)
		}
	}
	return &art, nil
}

// Save writes the artifact back to disk, used by tooling that fits a new
// scaler offline and round-trips it through this package's loader.
func (a *QuantileArtifact) Save(path string) error {
	raw, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode quantile artifact: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

// Transform maps a raw value to its quantile position in [0, 1] via linear
// interpolation between the artifact's thresholds.
func (a *QuantileArtifact) Transform(value float64) float64 {
	return interp(a.Thresholds, a.Quantiles, value)
}

// InverseTransform maps a quantile position back to a raw value, the
// inverse of Transform (round-trips exactly at the artifact's own knots).
func (a *QuantileArtifact) InverseTransform(quantile float64) float64 {
	return interp(a.Quantiles, a.Thresholds, quantile)
}

// interp performs monotone piecewise-linear interpolation of y as a
// function of x at point v, clamping outside the table's range.
func interp(xs, ys []float64, v float64) float64 {
	i := sort.SearchFloat64s(xs, v)
	switch {
	case i == 0:
		return ys[0]
	case i >= len(xs):
		return ys[len(ys)-1]
	case xs[i] == v:
		return ys[i]
	default:
		x0, x1 := xs[i-1], xs[i]
		y0, y1 := ys[i-1], ys[i]
		t := (v - x0) / (x1 - x0)
		return y0 + t*(y1-y0)
	}
}

// QuantileScalerFeature maps one input feature's raw value through a
// pre-fit QuantileArtifact, producing a robust-scaled output in [0, 1].
type QuantileScalerFeature struct {
	Input    string
	Output   string
	Artifact *QuantileArtifact
}

func (f *QuantileScalerFeature) Inputs() []string  { return []string{f.Input} }
func (f *QuantileScalerFeature) Outputs() []string { return []string{f.Output} }

func (f *QuantileScalerFeature) Calculate(inst *model.Instrument, at time.Time, state *State) []model.Insight {
	v, ok := state.Last(inst, f.Input, at)
	if !ok {
		return nil
	}
	return []model.Insight{{EventTime: at, Instrument: inst, FeatureID: f.Output, Value: f.Artifact.Transform(v), Type: model.InsightTransformed}}
}
