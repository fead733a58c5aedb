// Package filegateway is a persistence.Gateway that durably appends every
// insert to a JSON file per entity kind, using the same write-to-.tmp-then-
// rename discipline as internal/store/store.go, generalized from one
// position-per-market file to one append-log file per entity kind.
package filegateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/persistence"
	"github.com/arkin-run/arkin/internal/persistence/memgateway"
)

// Gateway durably appends inserts to per-kind JSON files under dir, and
// delegates reference-data lookups and ranged reads to an embedded
// memgateway.Gateway kept in sync with every insert.
type Gateway struct {
	dir string
	mu  sync.Mutex
	mem *memgateway.Gateway
}

// Open creates a Gateway backed by dir, creating it if necessary.
func Open(dir string) (*Gateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create gateway dir: %w", err)
	}
	return &Gateway{dir: dir, mem: memgateway.New()}, nil
}

// PutInstrument/PutStrategy/PutPipeline/PutAccount seed reference data the
// same way memgateway does; filegateway treats reference data as
// configuration, not an append log.
func (g *Gateway) PutInstrument(i *model.Instrument) { g.mem.PutInstrument(i) }
func (g *Gateway) PutStrategy(s *model.Strategy)     { g.mem.PutStrategy(s) }
func (g *Gateway) PutPipeline(p *model.Pipeline)     { g.mem.PutPipeline(p) }
func (g *Gateway) PutAccount(venue string, a *model.Account) { g.mem.PutAccount(venue, a) }

func (g *Gateway) GetInstrument(ctx context.Context, q persistence.InstrumentQuery) (*model.Instrument, error) {
	return g.mem.GetInstrument(ctx, q)
}
func (g *Gateway) ListInstruments(ctx context.Context, venue string) ([]*model.Instrument, error) {
	return g.mem.ListInstruments(ctx, venue)
}
func (g *Gateway) GetStrategy(ctx context.Context, id uuid.UUID) (*model.Strategy, error) {
	return g.mem.GetStrategy(ctx, id)
}
func (g *Gateway) GetPipeline(ctx context.Context, id uuid.UUID) (*model.Pipeline, error) {
	return g.mem.GetPipeline(ctx, id)
}
func (g *Gateway) ListAccounts(ctx context.Context, venue string) ([]*model.Account, error) {
	return g.mem.ListAccounts(ctx, venue)
}

// appendJSON atomically appends one JSON-encoded record (newline-delimited)
// to dir/<kind>.jsonl using write-to-.tmp-then-rename-over-a-copy, since a
// true atomic append isn't possible with rename alone: the whole file is
// read, the record appended, and the result rewritten atomically.
func (g *Gateway) appendJSON(kind string, record any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	path := filepath.Join(g.dir, kind+".jsonl")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", kind, err)
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}

	buf := append(existing, line...)
	buf = append(buf, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	return os.Rename(tmp, path)
}

func (g *Gateway) InsertTick(ctx context.Context, t model.Tick) error {
	if err := g.appendJSON("tick", t); err != nil {
		return err
	}
	return g.mem.InsertTick(ctx, t)
}

func (g *Gateway) InsertTrade(ctx context.Context, a model.AggTrade) error {
	if err := g.appendJSON("agg_trade", a); err != nil {
		return err
	}
	return g.mem.InsertTrade(ctx, a)
}

func (g *Gateway) InsertTickBatch(ctx context.Context, ts []model.Tick) error {
	for _, t := range ts {
		if err := g.InsertTick(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) InsertTradeBatch(ctx context.Context, as []model.AggTrade) error {
	for _, a := range as {
		if err := g.InsertTrade(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) ReadRange(ctx context.Context, kind string, instruments []uuid.UUID, from, to time.Time) ([]any, error) {
	return g.mem.ReadRange(ctx, kind, instruments, from, to)
}

func (g *Gateway) StreamRange(ctx context.Context, kind string, instruments []uuid.UUID, from, to time.Time, ch chan<- any) error {
	return g.mem.StreamRange(ctx, kind, instruments, from, to, ch)
}

func (g *Gateway) StreamRangeBuffered(ctx context.Context, kind string, instruments []uuid.UUID, from, to time.Time, buffer int, frequency time.Duration, ch chan<- any) error {
	return g.mem.StreamRangeBuffered(ctx, kind, instruments, from, to, buffer, frequency, ch)
}

func (g *Gateway) InsertExecutionOrder(ctx context.Context, o model.ExecutionOrder) error {
	if err := g.appendJSON("execution_order", o); err != nil {
		return err
	}
	return g.mem.InsertExecutionOrder(ctx, o)
}

func (g *Gateway) UpdateExecutionOrder(ctx context.Context, o model.ExecutionOrder) error {
	if err := g.appendJSON("execution_order_update", o); err != nil {
		return err
	}
	return g.mem.UpdateExecutionOrder(ctx, o)
}

func (g *Gateway) InsertVenueOrder(ctx context.Context, o model.VenueOrder) error {
	if err := g.appendJSON("venue_order", o); err != nil {
		return err
	}
	return g.mem.InsertVenueOrder(ctx, o)
}

func (g *Gateway) UpdateVenueOrder(ctx context.Context, o model.VenueOrder) error {
	if err := g.appendJSON("venue_order_update", o); err != nil {
		return err
	}
	return g.mem.UpdateVenueOrder(ctx, o)
}

func (g *Gateway) InsertTransfer(ctx context.Context, tr model.Transfer) error {
	if err := g.appendJSON("transfer", tr); err != nil {
		return err
	}
	return g.mem.InsertTransfer(ctx, tr)
}

func (g *Gateway) InsertTransferBatch(ctx context.Context, trs []model.Transfer) error {
	for _, tr := range trs {
		if err := g.InsertTransfer(ctx, tr); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) InsertInsightsBatch(ctx context.Context, records []persistence.FeatureRecord) error {
	for _, r := range records {
		if err := g.appendJSON("insight", r); err != nil {
			return err
		}
	}
	return g.mem.InsertInsightsBatch(ctx, records)
}

var _ persistence.Gateway = (*Gateway)(nil)
