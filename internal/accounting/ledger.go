// Package accounting implements the double-entry ledger of spec §4.7:
// Transfers against Accounts keyed by (venue, owner, account_type, asset),
// margin-trade bookkeeping, reconciliation, and the position/PnL query
// surface a strategy or the CLI reads back.
package accounting

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/bus"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/service"
)

type positionKey struct {
	StrategyID   uuid.UUID
	InstrumentID uuid.UUID
}

// positionState is the teacher's Inventory averaging state generalized from
// a two-sided (Yes/No) binary-market position to one signed quantity per
// (strategy, instrument): positive is long, negative is short.
type positionState struct {
	Quantity    decimal.Decimal
	AvgEntry    decimal.Decimal
	RealizedPnL decimal.Decimal
}

// Config carries the per-instrument commission rates Trade charges and the
// margin rates AvailableMarginBalance applies, each with a default for
// instruments not listed.
type Config struct {
	MarginRates       map[uuid.UUID]decimal.Decimal
	DefaultMarginRate decimal.Decimal
	CommissionRates   map[uuid.UUID]decimal.Decimal
	DefaultCommission decimal.Decimal
}

// Ledger is the Runnable accounting service: it consumes fills and venue
// reconciliation snapshots off the bus and answers the balance/position/PnL
// query surface of spec §4.7, grounded method-for-method on
// arkin-accounting/src/traits.rs's Accounting trait.
type Ledger struct {
	service.Base
	id     string
	bus    *bus.Bus
	cfg    Config
	logger *slog.Logger

	venueLocksMu sync.Mutex
	venueLocks   map[uuid.UUID]*sync.Mutex

	mu        sync.RWMutex
	accounts  map[model.AccountKey]*model.Account
	positions map[positionKey]*positionState
	marks     map[uuid.UUID]decimal.Decimal
	transfers []model.Transfer
}

// New constructs a Ledger. id identifies it within a service.Container.
func New(id string, b *bus.Bus, cfg Config, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MarginRates == nil {
		cfg.MarginRates = map[uuid.UUID]decimal.Decimal{}
	}
	if cfg.CommissionRates == nil {
		cfg.CommissionRates = map[uuid.UUID]decimal.Decimal{}
	}
	return &Ledger{
		id:         id,
		bus:        b,
		cfg:        cfg,
		logger:     logger.With("component", "ledger", "id", id),
		venueLocks: map[uuid.UUID]*sync.Mutex{},
		accounts:   map[model.AccountKey]*model.Account{},
		positions:  map[positionKey]*positionState{},
		marks:      map[uuid.UUID]decimal.Decimal{},
	}
}

func (l *Ledger) Identifier() string { return l.id }

func (l *Ledger) StartTasks(ctx *service.Ctx) error {
	fills := bus.Subscribe[model.VenueOrderFillEvent](l.bus)
	balances := bus.Subscribe[model.BalanceUpdate](l.bus)
	positions := bus.Subscribe[model.PositionUpdate](l.bus)
	ticks := bus.Subscribe[model.TickUpdate](l.bus)

	ctx.Spawn(func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case v, ok := <-fills.C():
				if !ok {
					return
				}
				l.onFillEvent(v.(model.VenueOrderFillEvent).Fill)
			case v, ok := <-balances.C():
				if !ok {
					return
				}
				l.ReconcileBalance(v.(model.BalanceUpdate))
			case v, ok := <-positions.C():
				if !ok {
					return
				}
				l.ReconcilePosition(v.(model.PositionUpdate))
			case v, ok := <-ticks.C():
				if !ok {
					return
				}
				l.markTick(v.(model.TickUpdate).Tick)
			}
		}
	})
	return nil
}

func (l *Ledger) lockFor(venue uuid.UUID) *sync.Mutex {
	l.venueLocksMu.Lock()
	defer l.venueLocksMu.Unlock()
	m, ok := l.venueLocks[venue]
	if !ok {
		m = &sync.Mutex{}
		l.venueLocks[venue] = m
	}
	return m
}

func (l *Ledger) account(key model.AccountKey, venue *model.Venue, asset *model.Asset, inst *model.Instrument) *model.Account {
	a, ok := l.accounts[key]
	if !ok {
		a = &model.Account{Key: key, Venue: venue, Asset: asset, Instrument: inst}
		l.accounts[key] = a
	}
	return a
}

func (l *Ledger) apply(t model.Transfer, accounts map[model.AccountKey]*model.Account) {
	debit := accounts[t.DebitAccount]
	credit := accounts[t.CreditAccount]
	debit.Balance = debit.Balance.Add(t.Amount)
	credit.Balance = credit.Balance.Sub(t.Amount)
	l.transfers = append(l.transfers, t)
}

// Deposit funds a venue-level account from Equity, the bootstrap path used
// to seed initial capital before any trading starts.
func (l *Ledger) Deposit(venue *model.Venue, asset *model.Asset, amount decimal.Decimal, accountType model.AccountType) {
	lock := l.lockFor(venue.ID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	targetKey := model.AccountKey{Venue: venue.ID, Type: accountType, AssetOrInst: asset.ID}
	equityKey := model.AccountKey{Venue: venue.ID, Type: model.AccountEquity, AssetOrInst: asset.ID}
	target := l.account(targetKey, venue, asset, nil)
	equity := l.account(equityKey, venue, asset, nil)

	l.apply(model.Transfer{
		ID:                uuid.New(),
		EventTime:         time.Now().UTC(),
		TransferGroupID:   uuid.New(),
		TransferGroupType: model.TransferGroupReconciliation,
		Type:              model.TransferFunding,
		DebitAccount:      targetKey,
		CreditAccount:     equityKey,
		Amount:            amount,
	}, map[model.AccountKey]*model.Account{targetKey: target, equityKey: equity})
}

// Trade books a margin trade's transfer group and updates the relevant
// strategy/instrument position state, per §4.7's position averaging rules
// (add, reduce, flip).
func (l *Ledger) Trade(at time.Time, venue *model.Venue, strategy *model.Strategy, inst *model.Instrument, side model.Side, qty, price decimal.Decimal) error {
	commissionRate, ok := l.cfg.CommissionRates[inst.ID]
	if !ok {
		commissionRate = l.cfg.DefaultCommission
	}

	lock := l.lockFor(venue.ID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	legs := tradeLegs(at, venue, strategy, inst, side, qty, price, commissionRate)
	for _, t := range legs {
		debitAsset, debitInst := l.resolveAssetInstrument(t.DebitAccount, inst)
		creditAsset, creditInst := l.resolveAssetInstrument(t.CreditAccount, inst)
		accounts := map[model.AccountKey]*model.Account{
			t.DebitAccount:  l.account(t.DebitAccount, venue, debitAsset, debitInst),
			t.CreditAccount: l.account(t.CreditAccount, venue, creditAsset, creditInst),
		}
		l.apply(t, accounts)
	}

	key := positionKey{StrategyID: strategy.ID, InstrumentID: inst.ID}
	pos, ok := l.positions[key]
	if !ok {
		pos = &positionState{}
		l.positions[key] = pos
	}
	l.applyFill(pos, side, qty, price)

	l.marks[inst.ID] = price // the last trade price is the mark until the next tick
	return nil
}

func (l *Ledger) resolveAssetInstrument(key model.AccountKey, inst *model.Instrument) (*model.Asset, *model.Instrument) {
	if key.Type == model.AccountInstrument {
		return nil, inst
	}
	quoteAsset := inst.MarginAsset
	if quoteAsset == nil {
		quoteAsset = inst.QuoteAsset
	}
	return quoteAsset, nil
}

// applyFill implements spec §4.7's position averaging rules: adding to a
// same-side position re-averages entry price; reducing realizes PnL on the
// reduced portion at the prevailing avg_entry; flipping sides realizes PnL
// on the closing portion and opens the remainder fresh at the fill price.
// Grounded on internal/strategy/inventory.go's applyYesFill/applyNoFill,
// generalized from two unsigned per-side quantities to one signed quantity.
func (l *Ledger) applyFill(pos *positionState, side model.Side, qty, price decimal.Decimal) {
	delta := qty
	if side == model.SideSell {
		delta = qty.Neg()
	}

	current := pos.Quantity
	sameDirection := current.IsZero() || current.Sign() == delta.Sign()

	if sameDirection {
		newQty := current.Add(delta)
		if !newQty.IsZero() {
			totalCost := pos.AvgEntry.Mul(current.Abs()).Add(price.Mul(delta.Abs()))
			pos.AvgEntry = totalCost.Div(newQty.Abs())
		}
		pos.Quantity = newQty
		return
	}

	closingQty := decimal.Min(current.Abs(), delta.Abs())
	var pnl decimal.Decimal
	if current.IsPositive() {
		pnl = price.Sub(pos.AvgEntry).Mul(closingQty)
	} else {
		pnl = pos.AvgEntry.Sub(price).Mul(closingQty)
	}
	pos.RealizedPnL = pos.RealizedPnL.Add(pnl)

	newQty := current.Add(delta)
	remaining := delta.Abs().Sub(closingQty)
	pos.Quantity = newQty
	switch {
	case remaining.IsPositive():
		pos.AvgEntry = price // position flipped sides, fresh entry
	case newQty.IsZero():
		pos.AvgEntry = decimal.Zero
	}
}

func (l *Ledger) onFillEvent(fill model.VenueOrderFill) {
	// The bus carries no strategy/venue reference on a bare fill; components
	// that need ledger updates from live fills call Trade directly with the
	// originating ExecutionOrder's strategy and venue. onFillEvent exists so
	// the ledger still marks a price update from its own fills even when no
	// explicit Trade call accompanies it (e.g. a reconciliation replay).
	l.mu.Lock()
	defer l.mu.Unlock()
	l.marks[fill.Instrument.ID] = fill.Price
}

func (l *Ledger) markTick(t model.Tick) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.marks[t.Instrument.ID] = t.Mid()
}

// ReconcileBalance applies an external BalanceUpdate against the venue's
// Spot account, logging any discrepancy before closing it, per §4.7
// "discrepancies are logged but never silently overwritten".
func (l *Ledger) ReconcileBalance(update model.BalanceUpdate) {
	lock := l.lockFor(update.Venue.ID)
	lock.Lock()
	defer lock.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	key := model.AccountKey{Venue: update.Venue.ID, Type: model.AccountSpot, AssetOrInst: update.Asset.ID}
	acct := l.account(key, update.Venue, update.Asset, nil)
	diff := update.Quantity.Sub(acct.Balance)
	if diff.IsZero() {
		return
	}
	l.logger.Warn("balance reconciliation discrepancy", "venue", update.Venue.Name, "asset", update.Asset.Symbol, "internal", acct.Balance, "external", update.Quantity)

	t := reconciliationTransfer(update.EventTime, key, diff)
	equityKey := t.CreditAccount
	if diff.IsNegative() {
		equityKey = t.DebitAccount
	}
	equity := l.account(equityKey, update.Venue, update.Asset, nil)
	l.apply(t, map[model.AccountKey]*model.Account{key: acct, equityKey: equity})
}

// ReconcilePosition applies an external PositionUpdate by overwriting the
// book-wide quantity tracked against no particular strategy (the "house"
// owner), mirroring ReconcileBalance's log-then-correct discipline.
func (l *Ledger) ReconcilePosition(update model.PositionUpdate) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := positionKey{InstrumentID: update.Instrument.ID}
	pos, ok := l.positions[key]
	if !ok {
		pos = &positionState{}
		l.positions[key] = pos
	}
	if !pos.Quantity.Equal(update.Quantity) {
		l.logger.Warn("position reconciliation discrepancy", "instrument", update.Instrument.Symbol, "internal", pos.Quantity, "external", update.Quantity)
	}
	pos.Quantity = update.Quantity
}

// --- Queries, grounded on arkin-accounting/src/traits.rs's Accounting trait ---

func (l *Ledger) Balance(venue *model.Venue, asset *model.Asset, accountType model.AccountType) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	key := model.AccountKey{Venue: venue.ID, Type: accountType, AssetOrInst: asset.ID}
	if a, ok := l.accounts[key]; ok {
		return a.Balance
	}
	return decimal.Zero
}

func (l *Ledger) MarginBalance(venue *model.Venue, asset *model.Asset) decimal.Decimal {
	return l.Balance(venue, asset, model.AccountMargin)
}

// AvailableMarginBalance is margin_balance minus the margin rate's share of
// every open position's notional — a predicate over positions, never a
// stored balance (§4.7). Positions are not filtered by venue or funding
// asset: every open position in the ledger counts against the margin
// account queried.
func (l *Ledger) AvailableMarginBalance(venue *model.Venue, asset *model.Asset) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()

	marginKey := model.AccountKey{Venue: venue.ID, Type: model.AccountMargin, AssetOrInst: asset.ID}
	margin := decimal.Zero
	if a, ok := l.accounts[marginKey]; ok {
		margin = a.Balance
	}

	encumbered := decimal.Zero
	for key, pos := range l.positions {
		marginRate, ok := l.cfg.MarginRates[key.InstrumentID]
		if !ok {
			marginRate = l.cfg.DefaultMarginRate
		}
		if marginRate.IsZero() || pos.Quantity.IsZero() {
			continue
		}
		mark, ok := l.marks[key.InstrumentID]
		if !ok {
			mark = pos.AvgEntry
		}
		notional := pos.Quantity.Abs().Mul(mark)
		encumbered = encumbered.Add(notional.Mul(marginRate))
	}
	return margin.Sub(encumbered)
}

func (l *Ledger) Position(inst *model.Instrument) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	total := decimal.Zero
	for key, pos := range l.positions {
		if key.InstrumentID == inst.ID {
			total = total.Add(pos.Quantity)
		}
	}
	return total
}

func (l *Ledger) PositionNotional(inst *model.Instrument) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.positionNotionalLocked(inst.ID, func(positionKey) bool { return true })
}

func (l *Ledger) positionNotionalLocked(instID uuid.UUID, include func(positionKey) bool) decimal.Decimal {
	total := decimal.Zero
	for key, pos := range l.positions {
		if key.InstrumentID != instID || !include(key) {
			continue
		}
		mark, ok := l.marks[instID]
		if !ok {
			mark = pos.AvgEntry
		}
		total = total.Add(pos.Quantity.Abs().Mul(mark))
	}
	return total
}

func (l *Ledger) Positions(instruments []*model.Instrument) map[uuid.UUID]decimal.Decimal {
	out := map[uuid.UUID]decimal.Decimal{}
	for _, inst := range instruments {
		out[inst.ID] = l.Position(inst)
	}
	return out
}

func (l *Ledger) PositionsNotional(instruments []*model.Instrument) map[uuid.UUID]decimal.Decimal {
	out := map[uuid.UUID]decimal.Decimal{}
	for _, inst := range instruments {
		out[inst.ID] = l.PositionNotional(inst)
	}
	return out
}

func (l *Ledger) StrategyPosition(strategy *model.Strategy, inst *model.Instrument) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	key := positionKey{StrategyID: strategy.ID, InstrumentID: inst.ID}
	if pos, ok := l.positions[key]; ok {
		return pos.Quantity
	}
	return decimal.Zero
}

func (l *Ledger) StrategyPositionNotional(strategy *model.Strategy, inst *model.Instrument) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.positionNotionalLocked(inst.ID, func(k positionKey) bool { return k.StrategyID == strategy.ID })
}

func (l *Ledger) StrategyPositions(strategy *model.Strategy) map[uuid.UUID]decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := map[uuid.UUID]decimal.Decimal{}
	for key, pos := range l.positions {
		if key.StrategyID == strategy.ID {
			out[key.InstrumentID] = pos.Quantity
		}
	}
	return out
}

func (l *Ledger) StrategyPositionsNotional(strategy *model.Strategy) map[uuid.UUID]decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := map[uuid.UUID]decimal.Decimal{}
	for key := range l.positions {
		if key.StrategyID == strategy.ID {
			out[key.InstrumentID] = l.positionNotionalLocked(key.InstrumentID, func(k positionKey) bool { return k.StrategyID == strategy.ID })
		}
	}
	return out
}

func (l *Ledger) StrategyRealizedPnL(strategy *model.Strategy, inst *model.Instrument) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	key := positionKey{StrategyID: strategy.ID, InstrumentID: inst.ID}
	if pos, ok := l.positions[key]; ok {
		return pos.RealizedPnL
	}
	return decimal.Zero
}

func (l *Ledger) StrategyUnrealizedPnL(strategy *model.Strategy, inst *model.Instrument) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	key := positionKey{StrategyID: strategy.ID, InstrumentID: inst.ID}
	pos, ok := l.positions[key]
	if !ok || pos.Quantity.IsZero() {
		return decimal.Zero
	}
	mark, ok := l.marks[inst.ID]
	if !ok {
		return decimal.Zero
	}
	return mark.Sub(pos.AvgEntry).Mul(pos.Quantity)
}

// StrategyTotalPnL returns realized+unrealized per asset, keyed by each
// instrument's margin/quote asset, summing across every instrument the
// strategy holds or has held a position in.
func (l *Ledger) StrategyTotalPnL(strategy *model.Strategy, instruments []*model.Instrument) map[uuid.UUID]decimal.Decimal {
	out := map[uuid.UUID]decimal.Decimal{}
	for _, inst := range instruments {
		asset := inst.MarginAsset
		if asset == nil {
			asset = inst.QuoteAsset
		}
		pnl := l.StrategyRealizedPnL(strategy, inst).Add(l.StrategyUnrealizedPnL(strategy, inst))
		out[asset.ID] = out[asset.ID].Add(pnl)
	}
	return out
}

var _ service.Runnable = (*Ledger)(nil)
