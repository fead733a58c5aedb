// Package executor implements the executor stage of spec §4.6: turning
// ExecutionOrders into VenueOrders at a venue and reporting lifecycle events.
package executor

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/model"
)

// Executor places and cancels VenueOrders for a venue, owning the in-flight
// book keyed by client order id. price is the limit price for a maker order;
// for a taker order the simulation executor fills at price, and the live
// executor sends no price.
type Executor interface {
	Identifier() string
	Place(ctx context.Context, order *model.ExecutionOrder, price decimal.Decimal) error
	Cancel(ctx context.Context, clientOrderID string) error
	CancelAll(ctx context.Context, inst *model.Instrument) error
}

// book is the shared in-flight order registry both executor implementations
// embed, grounded on arkin-execution/src/executors/sim.rs's in-memory order
// map and the teacher's Maker.activeOrders pattern generalized to a
// concurrency-safe type since both executors run their own goroutines.
type book struct {
	mu     sync.Mutex
	orders map[string]*model.VenueOrder // keyed by ClientOrderID
}

func newBook() *book {
	return &book{orders: make(map[string]*model.VenueOrder)}
}

func (b *book) put(o *model.VenueOrder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[o.ClientOrderID] = o
}

func (b *book) get(clientOrderID string) (*model.VenueOrder, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[clientOrderID]
	return o, ok
}

func (b *book) remove(clientOrderID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.orders, clientOrderID)
}

func (b *book) byInstrument(inst *model.Instrument) []*model.VenueOrder {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*model.VenueOrder
	for _, o := range b.orders {
		if o.Instrument.ID == inst.ID {
			out = append(out, o)
		}
	}
	return out
}
