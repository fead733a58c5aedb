// Package strategy implements the Strategy stage of spec §4.5: subscribers
// to InsightsUpdate that emit Signals, each a target weight in [-1, 1] per
// (strategy, instrument), only on change (edge-triggered).
package strategy

import (
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/model"
)

// Strategy consumes one insights tick and returns the Signals it wants to
// emit this tick (nil/empty when nothing changed).
type Strategy interface {
	Identifier() string
	OnInsightsUpdate(update model.InsightsUpdate) []model.Signal
}

// CrossoverStrategy emits +1/-1/0 when a fast moving-average feature crosses
// above/below a slow one, holding that weight until the next crossover.
//
// Grounded on arkin-strategies/src/strategies/crossover.rs: a
// map[instrument]weight of the last-emitted weight guarded by a mutex,
// compared against the freshly computed weight each tick so only a genuine
// edge publishes a Signal.
type CrossoverStrategy struct {
	id              string
	strategy        *model.Strategy
	fastFeatureID   string
	slowFeatureID   string
	mu              sync.Mutex
	lastWeight      map[uuid.UUID]decimal.Decimal
}

// NewCrossoverStrategy constructs a CrossoverStrategy comparing fastFeatureID
// against slowFeatureID for every instrument in an InsightsUpdate.
func NewCrossoverStrategy(id string, strategy *model.Strategy, fastFeatureID, slowFeatureID string) *CrossoverStrategy {
	return &CrossoverStrategy{
		id:            id,
		strategy:      strategy,
		fastFeatureID: fastFeatureID,
		slowFeatureID: slowFeatureID,
		lastWeight:    make(map[uuid.UUID]decimal.Decimal),
	}
}

func (s *CrossoverStrategy) Identifier() string { return s.id }

func (s *CrossoverStrategy) OnInsightsUpdate(update model.InsightsUpdate) []model.Signal {
	byInstrument := groupByInstrument(update.Insights)

	var signals []model.Signal
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, inst := range update.Instruments {
		feats, ok := byInstrument[inst.ID]
		if !ok {
			continue
		}
		fast, fastOK := feats[s.fastFeatureID]
		slow, slowOK := feats[s.slowFeatureID]
		if !fastOK || !slowOK {
			continue
		}

		weight := decimal.Zero
		switch {
		case fast > slow:
			weight = decimal.NewFromInt(1)
		case fast < slow:
			weight = decimal.NewFromInt(-1)
		}

		prev, seen := s.lastWeight[inst.ID]
		if seen && prev.Equal(weight) {
			continue
		}
		s.lastWeight[inst.ID] = weight

		signals = append(signals, model.Signal{
			EventTime:  update.EventTime,
			Strategy:   s.strategy,
			Instrument: inst,
			Weight:     weight,
		})
	}
	return signals
}

func groupByInstrument(insights []model.Insight) map[uuid.UUID]map[string]float64 {
	out := make(map[uuid.UUID]map[string]float64)
	for _, in := range insights {
		if in.Instrument == nil {
			continue
		}
		m, ok := out[in.Instrument.ID]
		if !ok {
			m = make(map[string]float64)
			out[in.Instrument.ID] = m
		}
		m[in.FeatureID] = in.Value
	}
	return out
}

var _ Strategy = (*CrossoverStrategy)(nil)
