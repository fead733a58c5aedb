// Package money collects small decimal.Decimal helpers shared by the
// strategy, allocation, executor, and accounting packages: tick/lot
// rounding and clamping.
//
// Grounded on internal/strategy/maker.go's roundDownToTick/roundUpToTick/
// clamp, generalized from float64+fixed-decimals to decimal.Decimal+
// Instrument.TickSize/LotSize (Instrument.RoundToTick/RoundToLot in
// internal/model/reference.go already cover the tick/lot part; this package
// adds the remaining arithmetic helpers those two don't).
package money

import "github.com/shopspring/decimal"

// RoundDownToStep floors v to the nearest multiple of step (step > 0).
func RoundDownToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}

// RoundUpToStep ceils v to the nearest multiple of step (step > 0).
func RoundUpToStep(v, step decimal.Decimal) decimal.Decimal {
	if step.IsZero() {
		return v
	}
	return v.Div(step).Ceil().Mul(step)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// Max returns the larger of a and b.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
