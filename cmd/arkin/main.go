// arkin is the CLI entrypoint: `arkin <download|ingestor|insights|simulation|live>`,
// each wiring a different subset of Runnables into one service.Container.
//
// Architecture:
//
//	main.go                        — cobra command tree, config load, logger setup
//	internal/clock                 — live (wall clock) vs. simulation (manually advanced) time
//	internal/bus                   — typed pub/sub fabric every component communicates over
//	internal/service               — Runnable lifecycle + Container orchestration
//	internal/ingestor               — venue feed / historical replay -> Tick/AggTrade
//	internal/insights               — feature graph over raw ticks/trades/metrics
//	internal/strategy, internal/allocation — InsightsUpdate -> Signal -> ExecutionOrder
//	internal/executor               — ExecutionOrder -> VenueOrder at a venue (sim or live)
//	internal/accounting              — double-entry ledger fed by VenueOrderFillEvent
//
// Grounded on cmd/bot/main.go's config-load -> logger-setup -> engine ->
// signal-wait shutdown sequence, restructured as cobra subcommands the way
// NimbleMarkets-dbn-go/cmd/dbn-go-hist/main.go structures its command tree.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/arkin-run/arkin/internal/accounting"
	"github.com/arkin-run/arkin/internal/allocation"
	"github.com/arkin-run/arkin/internal/bus"
	"github.com/arkin-run/arkin/internal/clock"
	"github.com/arkin-run/arkin/internal/config"
	"github.com/arkin-run/arkin/internal/cron"
	"github.com/arkin-run/arkin/internal/executor"
	"github.com/arkin-run/arkin/internal/ingestor"
	"github.com/arkin-run/arkin/internal/insights"
	"github.com/arkin-run/arkin/internal/model"
	"github.com/arkin-run/arkin/internal/persistence"
	"github.com/arkin-run/arkin/internal/persistence/filegateway"
	"github.com/arkin-run/arkin/internal/persistence/memgateway"
	"github.com/arkin-run/arkin/internal/service"
	"github.com/arkin-run/arkin/internal/strategy"
	"github.com/arkin-run/arkin/pkg/venue"
	"github.com/arkin-run/arkin/pkg/venue/binance"
)

// timestampLayout is the CLI's wall-clock timestamp format (spec §6).
const timestampLayout = "2006-01-02 15:04"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "arkin",
	Short: "A cryptocurrency derivatives algorithmic-trading runtime",
	Long: `arkin is an event-driven trading runtime: a venue ingestor feeds
a feature pipeline, strategies turn features into target weights, an
allocation optimizer turns weights into orders, an executor places them,
and a double-entry ledger tracks the result.`,
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Persist a live venue feed to the gateway for a bounded window",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseWindowFlags(cmd)
		if err != nil {
			return err
		}
		return runDownload(start, end)
	},
}

var ingestorCmd = &cobra.Command{
	Use:   "ingestor",
	Short: "Run the live venue ingestor until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngestor()
	},
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Run the ingestor and feature pipeline until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInsights()
	},
}

var simulationCmd = &cobra.Command{
	Use:   "simulation",
	Short: "Replay historical data through the full pipeline deterministically",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseWindowFlags(cmd)
		if err != nil {
			return err
		}
		return runSimulation(start, end)
	},
}

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run the full pipeline against a live venue until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLive()
	},
}

func init() {
	defaultCfg := "configs/config.yaml"
	if p := os.Getenv("ARKIN_CONFIG"); p != "" {
		defaultCfg = p
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultCfg, "path to config file")

	for _, c := range []*cobra.Command{downloadCmd, simulationCmd} {
		c.Flags().String("start", "", "window start, \"2006-01-02 15:04\" UTC")
		c.Flags().String("end", "", "window end, \"2006-01-02 15:04\" UTC")
		_ = c.MarkFlagRequired("start")
		_ = c.MarkFlagRequired("end")
	}

	rootCmd.AddCommand(downloadCmd, ingestorCmd, insightsCmd, simulationCmd, liveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseWindowFlags(cmd *cobra.Command) (time.Time, time.Time, error) {
	startStr, _ := cmd.Flags().GetString("start")
	endStr, _ := cmd.Flags().GetString("end")
	start, err := time.ParseInLocation(timestampLayout, startStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse --start: %w", err)
	}
	end, err := time.ParseInLocation(timestampLayout, endStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parse --end: %w", err)
	}
	return start, end, nil
}

// loadConfig mirrors cmd/bot/main.go's load -> validate -> build-logger
// sequence, adapted to return the error instead of calling os.Exit so
// cobra's RunE can report a non-zero exit code itself.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return cfg, slog.New(handler), nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// referenceSeeder is satisfied by both memgateway.Gateway and
// filegateway.Gateway; main.go uses it to seed static reference data
// without widening the persistence.Gateway interface for a startup-only need.
type referenceSeeder interface {
	PutInstrument(*model.Instrument)
	PutStrategy(*model.Strategy)
}

func openGateway(cfg *config.Config) (persistence.Gateway, referenceSeeder, error) {
	if cfg.Store.DataDir == "" {
		gw := memgateway.New()
		return gw, gw, nil
	}
	gw, err := filegateway.Open(cfg.Store.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open gateway: %w", err)
	}
	return gw, gw, nil
}

func buildVenue(cfg *config.Config) *model.Venue {
	typ := model.VenueTypeExchange
	return &model.Venue{ID: model.NewID(), Name: cfg.Venue.Name, Type: typ}
}

func buildInstruments(v *model.Venue, specs []config.InstrumentSpec) ([]*model.Instrument, error) {
	assets := make(map[string]*model.Asset)
	assetFor := func(symbol string) *model.Asset {
		if symbol == "" {
			return nil
		}
		if a, ok := assets[symbol]; ok {
			return a
		}
		a := &model.Asset{ID: model.NewID(), Symbol: symbol}
		assets[symbol] = a
		return a
	}

	instruments := make([]*model.Instrument, 0, len(specs))
	for _, spec := range specs {
		tickSize, err := decimal.NewFromString(spec.TickSize)
		if err != nil {
			return nil, fmt.Errorf("instrument %s: tick_size: %w", spec.Symbol, err)
		}
		lotSize, err := decimal.NewFromString(spec.LotSize)
		if err != nil {
			return nil, fmt.Errorf("instrument %s: lot_size: %w", spec.Symbol, err)
		}

		inst := &model.Instrument{
			ID:                model.NewID(),
			Venue:             v,
			Symbol:            spec.Symbol,
			VenueSymbol:       spec.VenueSymbol,
			Type:              model.InstrumentType(spec.Type),
			QuoteAsset:        assetFor(spec.QuoteAsset),
			MarginAsset:       assetFor(spec.MarginAsset),
			ContractSize:      decimal.NewFromInt(1),
			PricePrecision:    spec.PricePrecision,
			QuantityPrecision: spec.QuantityPrecision,
			TickSize:          tickSize,
			LotSize:           lotSize,
			Status:            model.InstrumentStatusTrading,
		}
		if err := inst.Validate(); err != nil {
			return nil, err
		}
		instruments = append(instruments, inst)
	}
	return instruments, nil
}

func buildFeed(cfg *config.Config, logger *slog.Logger) venue.Feed {
	return binance.NewFeed(cfg.Venue.WSURL, logger)
}

func buildSigner(cfg *config.Config) (executor.Signer, error) {
	switch cfg.Venue.SignerType {
	case "hmac":
		return executor.NewHMACSigner(cfg.Venue.APIKey, cfg.Venue.APISecret, cfg.Venue.Passphrase)
	case "eip712":
		return executor.NewEIP712Signer(cfg.Wallet.PrivateKey, cfg.Wallet.ChainID)
	default:
		return nil, nil
	}
}

func buildCrossoverStrategies(defs []config.StrategyDef) []strategy.Strategy {
	strategies := make([]strategy.Strategy, 0, len(defs))
	for _, def := range defs {
		s := &model.Strategy{ID: model.NewID(), Name: def.ID}
		strategies = append(strategies, strategy.NewCrossoverStrategy(def.ID, s, def.FastFeatureID, def.SlowFeatureID))
	}
	return strategies
}

func buildMovingAverageFeatures(defs []config.StrategyDef) []insights.Feature {
	var features []insights.Feature
	for _, def := range defs {
		if def.FastPeriod > 0 {
			features = append(features, &insights.MovingAverageFeature{
				Input: "mid_price", Output: def.FastFeatureID, Kind: insights.MASimple, Periods: def.FastPeriod,
			})
		}
		if def.SlowPeriod > 0 {
			features = append(features, &insights.MovingAverageFeature{
				Input: "mid_price", Output: def.SlowFeatureID, Kind: insights.MASimple, Periods: def.SlowPeriod,
			})
		}
	}
	return features
}

func parseDecimalOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

func buildAccountingConfig(cfg *config.Config, instruments []*model.Instrument) accounting.Config {
	bySymbol := make(map[string]*model.Instrument, len(instruments))
	for _, inst := range instruments {
		bySymbol[inst.Symbol] = inst
	}

	marginRates := make(map[uuid.UUID]decimal.Decimal)
	commissionRates := make(map[uuid.UUID]decimal.Decimal)
	for symbol, rates := range cfg.Accounting.Instruments {
		inst, ok := bySymbol[symbol]
		if !ok {
			continue
		}
		if rates.MarginRate != "" {
			marginRates[inst.ID] = parseDecimalOrZero(rates.MarginRate)
		}
		if rates.CommissionRate != "" {
			commissionRates[inst.ID] = parseDecimalOrZero(rates.CommissionRate)
		}
	}

	return accounting.Config{
		MarginRates:       marginRates,
		DefaultMarginRate: parseDecimalOrZero(cfg.Accounting.DefaultMarginRate),
		CommissionRates:   commissionRates,
		DefaultCommission: parseDecimalOrZero(cfg.Accounting.DefaultCommission),
	}
}

// waitForShutdown blocks until SIGINT/SIGTERM or until done fires, whichever
// comes first, then tears the container down in reverse start order.
func waitForShutdown(logger *slog.Logger, c *service.Container, done <-chan struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-done:
		logger.Info("run finished")
	}
	c.Stop()
}

func runIngestor() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger = slog.Default()
		logger.Error("startup failed", "error", err)
		return err
	}

	b := bus.New(bus.WithLogger(logger))
	gw, seeder, err := openGateway(cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	v := buildVenue(cfg)
	instruments, err := buildInstruments(v, cfg.Venue.Instruments)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	for _, inst := range instruments {
		seeder.PutInstrument(inst)
	}

	feed := buildFeed(cfg, logger)
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.VenueSymbol)
	}
	_ = feed.Subscribe([]string{"aggTrade", "bookTicker"}, symbols)

	c := service.NewContainer(logger)
	c.Register(ingestor.NewLiveIngestor("ingestor", feed, v, gw, b, logger))

	if err := c.Start(); err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	logger.Info("ingestor started", "venue", v.Name, "instruments", len(instruments))
	waitForShutdown(logger, c, nil)
	return nil
}

func runDownload(start, end time.Time) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger = slog.Default()
		logger.Error("startup failed", "error", err)
		return err
	}

	b := bus.New(bus.WithLogger(logger))
	gw, seeder, err := openGateway(cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	v := buildVenue(cfg)
	instruments, err := buildInstruments(v, cfg.Venue.Instruments)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	for _, inst := range instruments {
		seeder.PutInstrument(inst)
	}

	feed := buildFeed(cfg, logger)
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.VenueSymbol)
	}
	_ = feed.Subscribe([]string{"aggTrade", "bookTicker"}, symbols)

	c := service.NewContainer(logger)
	c.Register(ingestor.NewLiveIngestor("download", feed, v, gw, b, logger))

	if err := c.Start(); err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	logger.Info("downloading", "venue", v.Name, "start", start, "end", end)

	deadline := time.Until(end)
	if deadline < 0 {
		deadline = 0
	}
	done := make(chan struct{})
	go func() { time.Sleep(deadline); close(done) }()
	waitForShutdown(logger, c, done)
	return nil
}

func runInsights() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger = slog.Default()
		logger.Error("startup failed", "error", err)
		return err
	}

	b := bus.New(bus.WithLogger(logger))
	gw, seeder, err := openGateway(cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	v := buildVenue(cfg)
	instruments, err := buildInstruments(v, cfg.Venue.Instruments)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	for _, inst := range instruments {
		seeder.PutInstrument(inst)
	}

	liveClock := clock.NewLiveClock()
	features := buildMovingAverageFeatures(cfg.Strategy.Strategies)
	ins, err := insights.New(insights.Config{
		ID:          "insights",
		Features:    features,
		Instruments: instruments,
		WarmupSteps: cfg.Insights.WarmupSteps,
		TTL:         cfg.Insights.TTL,
	}, b, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}

	feed := buildFeed(cfg, logger)
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.VenueSymbol)
	}
	_ = feed.Subscribe([]string{"aggTrade", "bookTicker"}, symbols)

	c := service.NewContainer(logger)
	c.Register(ingestor.NewLiveIngestor("ingestor", feed, v, gw, b, logger))
	c.Register(cron.New("cron", []cron.Interval{
		{Kind: cron.KindInsightsTick, Frequency: cfg.Insights.TickFrequency, Instruments: instruments},
	}, liveClock, b, logger))
	c.Register(ins)

	if err := c.Start(); err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	logger.Info("insights pipeline started", "venue", v.Name, "instruments", len(instruments))
	waitForShutdown(logger, c, nil)
	return nil
}

func runSimulation(start, end time.Time) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger = slog.Default()
		logger.Error("startup failed", "error", err)
		return err
	}

	b := bus.New(bus.WithLogger(logger))
	gw, seeder, err := openGateway(cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	v := buildVenue(cfg)
	instruments, err := buildInstruments(v, cfg.Venue.Instruments)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	instrumentIDs := make([]uuid.UUID, 0, len(instruments))
	for _, inst := range instruments {
		seeder.PutInstrument(inst)
		instrumentIDs = append(instrumentIDs, inst.ID)
	}

	simClock := clock.NewSimClock(start, end, time.Minute)
	ledger := accounting.New("ledger", b, buildAccountingConfig(cfg, instruments), logger)

	strategies := buildCrossoverStrategies(cfg.Strategy.Strategies)
	optimizer := allocation.NewReferenceOptimizer(allocation.Config{
		MaxAllocation:          parseDecimalOrZero(cfg.Allocation.MaxAllocation),
		MaxAllocationPerSignal: parseDecimalOrZero(cfg.Allocation.MaxAllocationPerSignal),
		RebalanceThreshold:     parseDecimalOrZero(cfg.Allocation.RebalanceThreshold),
		OrderIDSeq:             newOrderIDSeq(),
	})
	allocationSvc := allocation.NewService(allocation.ServiceConfig{
		ID:           "allocation",
		Strategies:   strategies,
		Optimizer:    optimizer,
		Positions:    ledger,
		TotalCapital: parseDecimalOrZero(cfg.Allocation.TotalCapital),
	}, b, logger)

	simExecutor := executor.NewSimulationExecutor("executor", simClock, b, cfg.Executor.SimSeed,
		parseDecimalOrZero(cfg.Executor.MakerFee), parseDecimalOrZero(cfg.Executor.TakerFee), cfg.Executor.MaxDelay, logger)

	features := buildMovingAverageFeatures(cfg.Strategy.Strategies)
	ins, err := insights.New(insights.Config{
		ID:          "insights",
		Features:    features,
		Instruments: instruments,
		WarmupSteps: cfg.Insights.WarmupSteps,
		TTL:         cfg.Insights.TTL,
	}, b, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}

	replay := ingestor.NewReplayIngestor("replay", gw, simClock, b, instrumentIDs, start, end, logger)

	c := service.NewContainer(logger)
	c.Register(ledger)
	c.Register(ins)
	c.Register(allocationSvc)
	c.Register(simExecutor)
	c.Register(replay)

	if err := c.Start(); err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	logger.Info("simulation started", "start", start, "end", end, "instruments", len(instruments))

	finished := bus.Subscribe[model.Finished](b)
	done := make(chan struct{})
	go func() {
		finished.Recv()
		close(done)
	}()
	waitForShutdown(logger, c, done)
	return nil
}

func runLive() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		logger = slog.Default()
		logger.Error("startup failed", "error", err)
		return err
	}

	b := bus.New(bus.WithLogger(logger))
	gw, seeder, err := openGateway(cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	v := buildVenue(cfg)
	instruments, err := buildInstruments(v, cfg.Venue.Instruments)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	for _, inst := range instruments {
		seeder.PutInstrument(inst)
	}

	liveClock := clock.NewLiveClock()
	ledger := accounting.New("ledger", b, buildAccountingConfig(cfg, instruments), logger)

	strategies := buildCrossoverStrategies(cfg.Strategy.Strategies)
	optimizer := allocation.NewReferenceOptimizer(allocation.Config{
		MaxAllocation:          parseDecimalOrZero(cfg.Allocation.MaxAllocation),
		MaxAllocationPerSignal: parseDecimalOrZero(cfg.Allocation.MaxAllocationPerSignal),
		RebalanceThreshold:     parseDecimalOrZero(cfg.Allocation.RebalanceThreshold),
		OrderIDSeq:             newOrderIDSeq(),
	})
	allocationSvc := allocation.NewService(allocation.ServiceConfig{
		ID:           "allocation",
		Strategies:   strategies,
		Optimizer:    optimizer,
		Positions:    ledger,
		TotalCapital: parseDecimalOrZero(cfg.Allocation.TotalCapital),
	}, b, logger)

	signer, err := buildSigner(cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	liveExecutor := executor.NewLiveExecutor("executor", executor.LiveConfig{
		BaseURL: cfg.Venue.BaseURL,
		WSURL:   cfg.Venue.WSURL,
		RateLimits: executor.RateLimits{
			OrderCapacity: cfg.Venue.RateLimits.OrderCapacity, OrderRate: cfg.Venue.RateLimits.OrderRate,
			CancelCapacity: cfg.Venue.RateLimits.CancelCapacity, CancelRate: cfg.Venue.RateLimits.CancelRate,
			BookCapacity: cfg.Venue.RateLimits.BookCapacity, BookRate: cfg.Venue.RateLimits.BookRate,
		},
		Signer: signer,
		DryRun: cfg.DryRun,
	}, b, logger)

	features := buildMovingAverageFeatures(cfg.Strategy.Strategies)
	ins, err := insights.New(insights.Config{
		ID:          "insights",
		Features:    features,
		Instruments: instruments,
		WarmupSteps: cfg.Insights.WarmupSteps,
		TTL:         cfg.Insights.TTL,
	}, b, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}

	feed := buildFeed(cfg, logger)
	symbols := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		symbols = append(symbols, inst.VenueSymbol)
	}
	_ = feed.Subscribe([]string{"aggTrade", "bookTicker"}, symbols)

	c := service.NewContainer(logger)
	c.Register(ledger)
	c.Register(ingestor.NewLiveIngestor("ingestor", feed, v, gw, b, logger))
	c.Register(cron.New("cron", []cron.Interval{
		{Kind: cron.KindInsightsTick, Frequency: cfg.Insights.TickFrequency, Instruments: instruments},
	}, liveClock, b, logger))
	c.Register(ins)
	c.Register(allocationSvc)
	c.Register(liveExecutor)

	if err := c.Start(); err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}
	logger.Info("live trading started", "venue", v.Name, "instruments", len(instruments), "dry_run", cfg.DryRun)
	waitForShutdown(logger, c, nil)
	return nil
}

func newOrderIDSeq() func() uint64 {
	var n uint64
	return func() uint64 {
		n++
		return n
	}
}

