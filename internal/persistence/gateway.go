// Package persistence pins the collaborator boundary of spec §6: the
// consumer contract every component uses to read reference data and append
// events, independent of the backing store. Real Postgres/ClickHouse/Parquet
// backends are out of scope (spec.md non-goals); memgateway and filegateway
// give in-module reference implementations so tests and simulation mode have
// something concrete to run against.
package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arkin-run/arkin/internal/model"
)

// InstrumentQuery selects one instrument by venue+symbol or by id.
type InstrumentQuery struct {
	ID          uuid.UUID
	Venue       string
	VenueSymbol string
}

// Gateway is the persistence consumer contract of spec §6, reproduced
// method-for-method: reference-data lookups, ranged reads (including a
// streaming/buffered variant for replay), and typed inserts for every
// entity kind the runtime produces.
type Gateway interface {
	GetInstrument(ctx context.Context, q InstrumentQuery) (*model.Instrument, error)
	ListInstruments(ctx context.Context, venue string) ([]*model.Instrument, error)
	GetStrategy(ctx context.Context, id uuid.UUID) (*model.Strategy, error)
	GetPipeline(ctx context.Context, id uuid.UUID) (*model.Pipeline, error)
	ListAccounts(ctx context.Context, venue string) ([]*model.Account, error)

	InsertTick(ctx context.Context, t model.Tick) error
	InsertTrade(ctx context.Context, a model.AggTrade) error
	InsertTickBatch(ctx context.Context, ts []model.Tick) error
	InsertTradeBatch(ctx context.Context, as []model.AggTrade) error

	// ReadRange returns every event of the given kind for the listed
	// instruments in [from, to), kind being one of "tick" or "agg_trade".
	ReadRange(ctx context.Context, kind string, instruments []uuid.UUID, from, to time.Time) ([]any, error)
	// StreamRange is the unbuffered replay source: it delivers events to ch
	// in timestamp order and closes ch when done or ctx is cancelled.
	StreamRange(ctx context.Context, kind string, instruments []uuid.UUID, from, to time.Time, ch chan<- any) error
	// StreamRangeBuffered batches up to buffer events before delivering them
	// no faster than frequency apart, the replay-speed throttle historical
	// ingestion uses to avoid overwhelming downstream consumers.
	StreamRangeBuffered(ctx context.Context, kind string, instruments []uuid.UUID, from, to time.Time, buffer int, frequency time.Duration, ch chan<- any) error

	InsertExecutionOrder(ctx context.Context, o model.ExecutionOrder) error
	UpdateExecutionOrder(ctx context.Context, o model.ExecutionOrder) error
	InsertVenueOrder(ctx context.Context, o model.VenueOrder) error
	UpdateVenueOrder(ctx context.Context, o model.VenueOrder) error
	InsertTransfer(ctx context.Context, tr model.Transfer) error
	InsertTransferBatch(ctx context.Context, trs []model.Transfer) error
	InsertInsightsBatch(ctx context.Context, records []FeatureRecord) error
}

// FeatureRecord is one row of the columnar feature-log format of spec §6:
// (event_time, pipeline_id, instrument_id, feature_id, value). The actual
// Parquet/columnar encoding is left to the collaborator boundary; this
// struct is what InsertInsightsBatch accepts.
type FeatureRecord struct {
	EventTime    time.Time
	PipelineID   uuid.UUID
	InstrumentID *uuid.UUID
	FeatureID    string
	Value        float64
}
