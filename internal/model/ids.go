// Package model defines the shared, dependency-free vocabulary of the
// runtime: reference entities (Venue, Asset, Instrument, Strategy, Pipeline)
// and the mutable event entities that flow across the bus (Tick, AggTrade,
// Insight, Signal, ExecutionOrder, VenueOrder, VenueOrderFill, Transfer).
package model

import "github.com/google/uuid"

// NewID generates a fresh entity identifier.
func NewID() uuid.UUID {
	return uuid.New()
}
