package accounting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/bus"
	"github.com/arkin-run/arkin/internal/model"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func testVenue() *model.Venue {
	return &model.Venue{ID: model.NewID(), Name: "binance", Type: model.VenueTypeExchange}
}

func testUSDT() *model.Asset {
	return &model.Asset{ID: model.NewID(), Symbol: "USDT"}
}

func testBTCPerp(usdt *model.Asset, venue *model.Venue) *model.Instrument {
	return &model.Instrument{
		ID: model.NewID(), Venue: venue, Symbol: "BTC-USDT-PERP", VenueSymbol: "BTCUSDT",
		Type: model.InstrumentPerpetual, QuoteAsset: usdt, MarginAsset: usdt,
		TickSize: d("0.1"), LotSize: d("0.001"), PricePrecision: 1, QuantityPrecision: 3,
	}
}

func testStrategy() *model.Strategy {
	return &model.Strategy{ID: model.NewID(), Name: "test-strategy"}
}

// Scenario 5: margin trade accounting.
func TestLedgerMarginTradeAccounting(t *testing.T) {
	usdt := testUSDT()
	venue := testVenue()
	inst := testBTCPerp(usdt, venue)
	strategy := testStrategy()

	ledger := New("ledger", bus.New(), Config{
		MarginRates:       map[uuid.UUID]decimal.Decimal{inst.ID: d("0.05")},
		CommissionRates:   map[uuid.UUID]decimal.Decimal{inst.ID: d("0.0005")},
		DefaultMarginRate: decimal.Zero,
	}, nil)

	ledger.Deposit(venue, usdt, d("100000"), model.AccountMargin)

	at := time.Now().UTC()
	if err := ledger.Trade(at, venue, strategy, inst, model.SideBuy, d("1"), d("86450")); err != nil {
		t.Fatalf("trade: %v", err)
	}

	wantMargin := d("99956.775")
	if gotMargin := ledger.MarginBalance(venue, usdt); !gotMargin.Equal(wantMargin) {
		t.Fatalf("margin balance = %s, want %s", gotMargin, wantMargin)
	}

	wantAvailable := d("95634.275")
	if gotAvailable := ledger.AvailableMarginBalance(venue, usdt); !gotAvailable.Equal(wantAvailable) {
		t.Fatalf("available margin = %s, want %s", gotAvailable, wantAvailable)
	}

	if gotPos := ledger.Position(inst); !gotPos.Equal(d("1")) {
		t.Fatalf("position = %s, want 1", gotPos)
	}
}

// Scenario 6: flip.
func TestLedgerFlipRealizesPnLAndResetsAvgEntry(t *testing.T) {
	usdt := testUSDT()
	venue := testVenue()
	inst := testBTCPerp(usdt, venue)
	strategy := testStrategy()

	ledger := New("ledger", bus.New(), Config{DefaultMarginRate: decimal.Zero}, nil)
	ledger.Deposit(venue, usdt, d("1000000"), model.AccountMargin)

	at := time.Now().UTC()
	if err := ledger.Trade(at, venue, strategy, inst, model.SideBuy, d("1"), d("100")); err != nil {
		t.Fatalf("open trade: %v", err)
	}
	if err := ledger.Trade(at, venue, strategy, inst, model.SideSell, d("3"), d("110")); err != nil {
		t.Fatalf("flip trade: %v", err)
	}

	if gotPnL := ledger.StrategyRealizedPnL(strategy, inst); !gotPnL.Equal(d("10")) {
		t.Fatalf("realized pnl = %s, want 10", gotPnL)
	}
	if gotPos := ledger.StrategyPosition(strategy, inst); !gotPos.Equal(d("-2")) {
		t.Fatalf("position = %s, want -2", gotPos)
	}
	if gotNotional := ledger.StrategyPositionNotional(strategy, inst); !gotNotional.Equal(d("220")) {
		t.Fatalf("position notional = %s, want 220", gotNotional)
	}
}

func TestLedgerPositionEqualsSumOfStrategyPositions(t *testing.T) {
	usdt := testUSDT()
	venue := testVenue()
	inst := testBTCPerp(usdt, venue)
	strategyA := testStrategy()
	strategyB := testStrategy()

	ledger := New("ledger", bus.New(), Config{DefaultMarginRate: decimal.Zero}, nil)
	ledger.Deposit(venue, usdt, d("1000000"), model.AccountMargin)

	at := time.Now().UTC()
	if err := ledger.Trade(at, venue, strategyA, inst, model.SideBuy, d("1"), d("100")); err != nil {
		t.Fatalf("trade a: %v", err)
	}
	if err := ledger.Trade(at, venue, strategyB, inst, model.SideSell, d("1"), d("100")); err != nil {
		t.Fatalf("trade b: %v", err)
	}

	total := ledger.Position(inst)
	sum := ledger.StrategyPosition(strategyA, inst).Add(ledger.StrategyPosition(strategyB, inst))
	if !total.Equal(sum) {
		t.Fatalf("position() = %s, want sum of strategy positions %s", total, sum)
	}
}

func TestLedgerReconcileBalanceLogsAndAppliesDiscrepancy(t *testing.T) {
	usdt := testUSDT()
	venue := testVenue()

	ledger := New("ledger", bus.New(), Config{}, nil)
	ledger.Deposit(venue, usdt, d("1000"), model.AccountSpot)

	ledger.ReconcileBalance(model.BalanceUpdate{
		EventTime: time.Now().UTC(),
		Venue:     venue,
		Asset:     usdt,
		Quantity:  d("950"),
	})

	got := ledger.Balance(venue, usdt, model.AccountSpot)
	if !got.Equal(d("950")) {
		t.Fatalf("balance after reconciliation = %s, want 950", got)
	}
}

func TestLedgerAvailableMarginNeverExceedsMarginBalance(t *testing.T) {
	usdt := testUSDT()
	venue := testVenue()
	inst := testBTCPerp(usdt, venue)
	strategy := testStrategy()

	ledger := New("ledger", bus.New(), Config{
		MarginRates:     map[uuid.UUID]decimal.Decimal{inst.ID: d("0.1")},
		CommissionRates: map[uuid.UUID]decimal.Decimal{inst.ID: d("0.001")},
	}, nil)
	ledger.Deposit(venue, usdt, d("10000"), model.AccountMargin)

	at := time.Now().UTC()
	if err := ledger.Trade(at, venue, strategy, inst, model.SideBuy, d("1"), d("1000")); err != nil {
		t.Fatalf("trade: %v", err)
	}

	margin := ledger.MarginBalance(venue, usdt)
	available := ledger.AvailableMarginBalance(venue, usdt)
	if available.GreaterThan(margin) {
		t.Fatalf("available margin %s exceeds margin balance %s", available, margin)
	}
}
