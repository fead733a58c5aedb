package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InsightType classifies how a feature value was produced.
type InsightType string

const (
	InsightRaw            InsightType = "raw"
	InsightContinuous     InsightType = "continuous"
	InsightMovingAverage  InsightType = "moving_average"
	InsightTransformed    InsightType = "transformed"
	InsightCategorical    InsightType = "categorical"
)

// Insight is a named numeric feature value, keyed by time and optionally by
// instrument. Feature values are always 64-bit binary floats (spec §3/§9):
// only statistical computations produce Insights, monetary math never does.
type Insight struct {
	EventTime  time.Time
	Instrument *Instrument // nil for instrument-independent features
	Pipeline   *Pipeline
	FeatureID  string
	Value      float64
	Type       InsightType
	Persist    bool
}

// Signal is a strategy's target weight in [-1, 1] for an instrument. Weight
// feeds directly into monetary allocation math (spec §4.5) so, unlike raw
// Insight values, it is an exact decimal rather than a float.
type Signal struct {
	EventTime  time.Time
	Strategy   *Strategy
	Instrument *Instrument
	Weight     decimal.Decimal
}
