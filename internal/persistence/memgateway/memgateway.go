// Package memgateway is an in-memory persistence.Gateway, grounded on
// internal/store/store.go's mutex-guarded single-writer discipline but
// backed by plain maps instead of files — the reference implementation used
// by unit tests and by `arkin simulation` runs that don't need durability.
package memgateway

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arkin-run/arkin/internal/errs"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/persistence"
)

// Gateway is a concurrency-safe, process-local persistence.Gateway.
type Gateway struct {
	mu sync.Mutex

	instruments map[uuid.UUID]*model.Instrument
	bySymbol    map[string]*model.Instrument // venue + "/" + venueSymbol
	strategies  map[uuid.UUID]*model.Strategy
	pipelines   map[uuid.UUID]*model.Pipeline
	accounts    map[string][]*model.Account // venue -> accounts

	ticks  []model.Tick
	trades []model.AggTrade

	execOrders  map[uint64]model.ExecutionOrder
	venueOrders map[uuid.UUID]model.VenueOrder
	transfers   []model.Transfer
	insights    []persistence.FeatureRecord
}

// New constructs an empty Gateway.
func New() *Gateway {
	return &Gateway{
		instruments: make(map[uuid.UUID]*model.Instrument),
		bySymbol:    make(map[string]*model.Instrument),
		strategies:  make(map[uuid.UUID]*model.Strategy),
		pipelines:   make(map[uuid.UUID]*model.Pipeline),
		accounts:    make(map[string][]*model.Account),
		execOrders:  make(map[uint64]model.ExecutionOrder),
		venueOrders: make(map[uuid.UUID]model.VenueOrder),
	}
}

// PutInstrument seeds the gateway's reference data; a test/bootstrap helper,
// not part of the Gateway interface.
func (g *Gateway) PutInstrument(i *model.Instrument) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.instruments[i.ID] = i
	g.bySymbol[symbolKey(i.Venue.Name, i.VenueSymbol)] = i
}

// PutStrategy seeds strategy reference data.
func (g *Gateway) PutStrategy(s *model.Strategy) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.strategies[s.ID] = s
}

// PutPipeline seeds pipeline reference data.
func (g *Gateway) PutPipeline(p *model.Pipeline) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pipelines[p.ID] = p
}

// PutAccount seeds a venue account.
func (g *Gateway) PutAccount(venue string, a *model.Account) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accounts[venue] = append(g.accounts[venue], a)
}

func symbolKey(venue, venueSymbol string) string { return venue + "/" + venueSymbol }

func (g *Gateway) GetInstrument(_ context.Context, q persistence.InstrumentQuery) (*model.Instrument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if q.ID != uuid.Nil {
		if i, ok := g.instruments[q.ID]; ok {
			return i, nil
		}
		return nil, fmt.Errorf("instrument %s: %w", q.ID, errs.ErrNotFound)
	}
	if i, ok := g.bySymbol[symbolKey(q.Venue, q.VenueSymbol)]; ok {
		return i, nil
	}
	return nil, fmt.Errorf("instrument %s/%s: %w", q.Venue, q.VenueSymbol, errs.ErrNotFound)
}

func (g *Gateway) ListInstruments(_ context.Context, venue string) ([]*model.Instrument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*model.Instrument
	for _, i := range g.instruments {
		if venue == "" || i.Venue.Name == venue {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].VenueSymbol < out[b].VenueSymbol })
	return out, nil
}

func (g *Gateway) GetStrategy(_ context.Context, id uuid.UUID) (*model.Strategy, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.strategies[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("strategy %s: %w", id, errs.ErrNotFound)
}

func (g *Gateway) GetPipeline(_ context.Context, id uuid.UUID) (*model.Pipeline, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.pipelines[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("pipeline %s: %w", id, errs.ErrNotFound)
}

func (g *Gateway) ListAccounts(_ context.Context, venue string) ([]*model.Account, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*model.Account(nil), g.accounts[venue]...), nil
}

func (g *Gateway) InsertTick(_ context.Context, t model.Tick) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ticks = append(g.ticks, t)
	return nil
}

func (g *Gateway) InsertTrade(_ context.Context, a model.AggTrade) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trades = append(g.trades, a)
	return nil
}

func (g *Gateway) InsertTickBatch(_ context.Context, ts []model.Tick) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ticks = append(g.ticks, ts...)
	return nil
}

func (g *Gateway) InsertTradeBatch(_ context.Context, as []model.AggTrade) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trades = append(g.trades, as...)
	return nil
}

func inSet(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (g *Gateway) ReadRange(_ context.Context, kind string, instruments []uuid.UUID, from, to time.Time) ([]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []any
	switch kind {
	case "tick":
		for _, t := range g.ticks {
			if inRange(t.EventTime, from, to) && (len(instruments) == 0 || inSet(instruments, t.Instrument.ID)) {
				out = append(out, t)
			}
		}
	case "agg_trade":
		for _, a := range g.trades {
			if inRange(a.EventTime, from, to) && (len(instruments) == 0 || inSet(instruments, a.Instrument.ID)) {
				out = append(out, a)
			}
		}
	default:
		return nil, fmt.Errorf("read_range kind %q: %w", kind, errs.ErrValidation)
	}
	sort.Slice(out, func(i, j int) bool { return eventTime(out[i]).Before(eventTime(out[j])) })
	return out, nil
}

func eventTime(v any) time.Time {
	switch x := v.(type) {
	case model.Tick:
		return x.EventTime
	case model.AggTrade:
		return x.EventTime
	default:
		return time.Time{}
	}
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// StreamRange replays ReadRange's result into ch in order, respecting ctx
// cancellation, then closes ch.
func (g *Gateway) StreamRange(ctx context.Context, kind string, instruments []uuid.UUID, from, to time.Time, ch chan<- any) error {
	defer close(ch)
	events, err := g.ReadRange(ctx, kind, instruments, from, to)
	if err != nil {
		return err
	}
	for _, e := range events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch <- e:
		}
	}
	return nil
}

// StreamRangeBuffered delivers events in batches of up to buffer, pausing
// frequency between batches — the replay-speed throttle historical
// ingestion uses.
func (g *Gateway) StreamRangeBuffered(ctx context.Context, kind string, instruments []uuid.UUID, from, to time.Time, buffer int, frequency time.Duration, ch chan<- any) error {
	defer close(ch)
	events, err := g.ReadRange(ctx, kind, instruments, from, to)
	if err != nil {
		return err
	}
	if buffer <= 0 {
		buffer = 1
	}
	for i := 0; i < len(events); i += buffer {
		end := i + buffer
		if end > len(events) {
			end = len(events)
		}
		for _, e := range events[i:end] {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ch <- e:
			}
		}
		if frequency > 0 && end < len(events) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(frequency):
			}
		}
	}
	return nil
}

func (g *Gateway) InsertExecutionOrder(_ context.Context, o model.ExecutionOrder) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.execOrders[o.ID]; exists {
		return fmt.Errorf("execution order %s: %w", o.ID, errs.ErrConflict)
	}
	g.execOrders[o.ID] = o
	return nil
}

func (g *Gateway) UpdateExecutionOrder(_ context.Context, o model.ExecutionOrder) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.execOrders[o.ID]; !exists {
		return fmt.Errorf("execution order %s: %w", o.ID, errs.ErrNotFound)
	}
	g.execOrders[o.ID] = o
	return nil
}

func (g *Gateway) InsertVenueOrder(_ context.Context, o model.VenueOrder) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.venueOrders[o.ID]; exists {
		return fmt.Errorf("venue order %s: %w", o.ID, errs.ErrConflict)
	}
	g.venueOrders[o.ID] = o
	return nil
}

func (g *Gateway) UpdateVenueOrder(_ context.Context, o model.VenueOrder) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.venueOrders[o.ID]; !exists {
		return fmt.Errorf("venue order %s: %w", o.ID, errs.ErrNotFound)
	}
	g.venueOrders[o.ID] = o
	return nil
}

func (g *Gateway) InsertTransfer(_ context.Context, tr model.Transfer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transfers = append(g.transfers, tr)
	return nil
}

func (g *Gateway) InsertTransferBatch(_ context.Context, trs []model.Transfer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transfers = append(g.transfers, trs...)
	return nil
}

func (g *Gateway) InsertInsightsBatch(_ context.Context, records []persistence.FeatureRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.insights = append(g.insights, records...)
	return nil
}

var _ persistence.Gateway = (*Gateway)(nil)
