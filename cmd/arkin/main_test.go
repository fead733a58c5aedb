package main

import (
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/config"
	"github.com/arkin-run/arkin/internal/model"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bananas": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDecimalOrZero(t *testing.T) {
	t.Parallel()
	if got := parseDecimalOrZero(""); !got.IsZero() {
		t.Errorf("parseDecimalOrZero(\"\") = %v, want zero", got)
	}
	if got := parseDecimalOrZero("not-a-number"); !got.IsZero() {
		t.Errorf("parseDecimalOrZero(invalid) = %v, want zero", got)
	}
	want := decimal.RequireFromString("12.5")
	if got := parseDecimalOrZero("12.5"); !got.Equal(want) {
		t.Errorf("parseDecimalOrZero(\"12.5\") = %v, want %v", got, want)
	}
}

func TestBuildInstrumentsSharesAssetsBySymbol(t *testing.T) {
	t.Parallel()
	v := &model.Venue{ID: model.NewID(), Name: "binance", Type: model.VenueTypeExchange}
	specs := []config.InstrumentSpec{
		{Symbol: "BTC-USDT-PERP", VenueSymbol: "BTCUSDT", Type: "perpetual", QuoteAsset: "USDT", MarginAsset: "USDT",
			TickSize: "0.1", LotSize: "0.001", PricePrecision: 1, QuantityPrecision: 3},
		{Symbol: "ETH-USDT-PERP", VenueSymbol: "ETHUSDT", Type: "perpetual", QuoteAsset: "USDT", MarginAsset: "USDT",
			TickSize: "0.01", LotSize: "0.01", PricePrecision: 2, QuantityPrecision: 2},
	}

	instruments, err := buildInstruments(v, specs)
	if err != nil {
		t.Fatalf("buildInstruments() error = %v", err)
	}
	if len(instruments) != 2 {
		t.Fatalf("len(instruments) = %d, want 2", len(instruments))
	}
	if instruments[0].QuoteAsset != instruments[1].QuoteAsset {
		t.Error("expected both instruments to share the same USDT asset pointer")
	}
	if instruments[0].Venue != v {
		t.Error("expected instrument to reference the same venue pointer")
	}
}

func TestBuildInstrumentsRejectsBadTickSize(t *testing.T) {
	t.Parallel()
	v := &model.Venue{ID: model.NewID(), Name: "binance", Type: model.VenueTypeExchange}
	specs := []config.InstrumentSpec{
		{Symbol: "BTC-USDT-PERP", VenueSymbol: "BTCUSDT", TickSize: "not-a-decimal", LotSize: "0.001"},
	}
	if _, err := buildInstruments(v, specs); err == nil {
		t.Error("buildInstruments() error = nil, want error for malformed tick_size")
	}
}

func TestBuildInstrumentsRejectsInconsistentPrecision(t *testing.T) {
	t.Parallel()
	v := &model.Venue{ID: model.NewID(), Name: "binance", Type: model.VenueTypeExchange}
	specs := []config.InstrumentSpec{
		// price_precision of 0 implies a minimum step of 1, inconsistent with a 0.1 tick.
		{Symbol: "BTC-USDT-PERP", VenueSymbol: "BTCUSDT", TickSize: "0.1", LotSize: "0.001", PricePrecision: 0},
	}
	if _, err := buildInstruments(v, specs); err == nil {
		t.Error("buildInstruments() error = nil, want error for precision/tick_size mismatch")
	}
}

func TestBuildAccountingConfigMapsRatesByInstrumentID(t *testing.T) {
	t.Parallel()
	usdtPerp := &model.Instrument{ID: model.NewID(), Symbol: "BTC-USDT-PERP"}
	instruments := []*model.Instrument{usdtPerp}

	cfg := &config.Config{
		Accounting: config.AccountingConfig{
			DefaultMarginRate: "0.1",
			DefaultCommission: "0.001",
			Instruments: map[string]config.InstrumentRates{
				"BTC-USDT-PERP": {MarginRate: "0.2", CommissionRate: "0.0005"},
				"UNKNOWN-SYMBOL": {MarginRate: "0.9"},
			},
		},
	}

	acctCfg := buildAccountingConfig(cfg, instruments)
	if !acctCfg.DefaultMarginRate.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("DefaultMarginRate = %v, want 0.1", acctCfg.DefaultMarginRate)
	}
	rate, ok := acctCfg.MarginRates[usdtPerp.ID]
	if !ok || !rate.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("MarginRates[%v] = %v, ok=%v, want 0.2", usdtPerp.ID, rate, ok)
	}
	if len(acctCfg.MarginRates) != 1 {
		t.Errorf("len(MarginRates) = %d, want 1 (unknown symbol should be skipped)", len(acctCfg.MarginRates))
	}
}

func TestBuildCrossoverStrategiesOneInstancePerDef(t *testing.T) {
	t.Parallel()
	defs := []config.StrategyDef{
		{ID: "btc-crossover", FastFeatureID: "sma_fast", SlowFeatureID: "sma_slow"},
		{ID: "eth-crossover", FastFeatureID: "sma_fast_eth", SlowFeatureID: "sma_slow_eth"},
	}
	strategies := buildCrossoverStrategies(defs)
	if len(strategies) != 2 {
		t.Fatalf("len(strategies) = %d, want 2", len(strategies))
	}
	if strategies[0].Identifier() != "btc-crossover" || strategies[1].Identifier() != "eth-crossover" {
		t.Errorf("strategy identifiers = %q, %q, want btc-crossover, eth-crossover",
			strategies[0].Identifier(), strategies[1].Identifier())
	}
}

func TestBuildMovingAverageFeaturesSkipsZeroPeriods(t *testing.T) {
	t.Parallel()
	defs := []config.StrategyDef{
		{ID: "btc-crossover", FastFeatureID: "sma_fast", SlowFeatureID: "sma_slow", FastPeriod: 5, SlowPeriod: 20},
		{ID: "hand-authored", FastFeatureID: "custom_fast", SlowFeatureID: "custom_slow"},
	}
	features := buildMovingAverageFeatures(defs)
	if len(features) != 2 {
		t.Fatalf("len(features) = %d, want 2 (only the def with nonzero periods)", len(features))
	}
}

func TestBuildSignerHMAC(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Venue: config.VenueConfig{
		SignerType: "hmac", APIKey: "key", APISecret: "c2VjcmV0", Passphrase: "pass",
	}}
	signer, err := buildSigner(cfg)
	if err != nil {
		t.Fatalf("buildSigner() error = %v", err)
	}
	if signer == nil {
		t.Error("buildSigner() = nil, want HMACSigner")
	}
}

func TestBuildSignerNone(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Venue: config.VenueConfig{SignerType: ""}}
	signer, err := buildSigner(cfg)
	if err != nil {
		t.Fatalf("buildSigner() error = %v", err)
	}
	if signer != nil {
		t.Error("buildSigner() signer != nil, want nil for empty signer_type")
	}
}
