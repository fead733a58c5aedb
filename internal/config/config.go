// Package config defines all configuration for the arkin trading runtime.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via ARKIN_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun     bool             `mapstructure:"dry_run"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	Venue      VenueConfig      `mapstructure:"venue"`
	Insights   InsightsConfig   `mapstructure:"insights"`
	Strategy   StrategyConfig   `mapstructure:"strategy"`
	Allocation AllocationConfig `mapstructure:"allocation"`
	Executor   ExecutorConfig   `mapstructure:"executor"`
	Accounting AccountingConfig `mapstructure:"accounting"`
	Store      StoreConfig      `mapstructure:"store"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WalletConfig holds the wallet used for EIP-712 request signing against
// venues that authenticate by wallet signature rather than a shared secret.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
	ChainID    int64  `mapstructure:"chain_id"`
}

// VenueConfig describes one venue's REST/WS endpoints, rate limits, and
// auth scheme. SignerType selects which internal/executor.Signer the live
// executor is built with.
type VenueConfig struct {
	Name        string           `mapstructure:"name"`
	BaseURL     string           `mapstructure:"base_url"`
	WSURL       string           `mapstructure:"ws_url"`
	SignerType  string           `mapstructure:"signer_type"` // "hmac", "eip712", or "" for none
	APIKey      string           `mapstructure:"api_key"`
	APISecret   string           `mapstructure:"api_secret"`
	Passphrase  string           `mapstructure:"passphrase"`
	RateLimits  RateLimitsSpec   `mapstructure:"rate_limits"`
	Instruments []InstrumentSpec `mapstructure:"instruments"`
}

// InstrumentSpec is the static reference data for one tradable instrument,
// seeded into the persistence gateway at startup since this runtime carries
// no instrument-onboarding API of its own.
type InstrumentSpec struct {
	Symbol            string `mapstructure:"symbol"`
	VenueSymbol       string `mapstructure:"venue_symbol"`
	Type              string `mapstructure:"type"` // "spot", "perpetual", "future", "option"
	QuoteAsset        string `mapstructure:"quote_asset"`
	MarginAsset       string `mapstructure:"margin_asset"`
	TickSize          string `mapstructure:"tick_size"`
	LotSize           string `mapstructure:"lot_size"`
	PricePrecision    int32  `mapstructure:"price_precision"`
	QuantityPrecision int32  `mapstructure:"quantity_precision"`
}

type RateLimitsSpec struct {
	OrderCapacity  float64 `mapstructure:"order_capacity"`
	OrderRate      float64 `mapstructure:"order_rate"`
	CancelCapacity float64 `mapstructure:"cancel_capacity"`
	CancelRate     float64 `mapstructure:"cancel_rate"`
	BookCapacity   float64 `mapstructure:"book_capacity"`
	BookRate       float64 `mapstructure:"book_rate"`
}

// InsightsConfig tunes the feature pipeline's warmup gating and state TTL.
type InsightsConfig struct {
	WarmupSteps   int32         `mapstructure:"warmup_steps"`
	TTL           time.Duration `mapstructure:"ttl"`
	TickFrequency time.Duration `mapstructure:"tick_frequency"`
}

// StrategyDef configures one crossover strategy instance. FastPeriod and
// SlowPeriod size the moving-average features the CLI builds for
// FastFeatureID/SlowFeatureID; a hand-authored insights pipeline that
// already produces those feature ids may leave both at zero.
type StrategyDef struct {
	ID            string `mapstructure:"id"`
	FastFeatureID string `mapstructure:"fast_feature_id"`
	SlowFeatureID string `mapstructure:"slow_feature_id"`
	FastPeriod    int    `mapstructure:"fast_period"`
	SlowPeriod    int    `mapstructure:"slow_period"`
}

type StrategyConfig struct {
	Strategies []StrategyDef `mapstructure:"strategies"`
}

// AllocationConfig carries the reference optimizer's decimal parameters as
// strings, parsed into decimal.Decimal by the caller (viper/mapstructure has
// no TextUnmarshaler decode hook wired in the pack's config idiom, so every
// example repo that needs exact decimals parses them post-unmarshal).
type AllocationConfig struct {
	TotalCapital           string `mapstructure:"total_capital"`
	MaxAllocation          string `mapstructure:"max_allocation"`
	MaxAllocationPerSignal string `mapstructure:"max_allocation_per_signal"`
	RebalanceThreshold     string `mapstructure:"rebalance_threshold"`
}

// ExecutorConfig selects simulation vs. live execution and its parameters.
type ExecutorConfig struct {
	Mode     string        `mapstructure:"mode"` // "simulation" or "live"
	SimSeed  int64         `mapstructure:"sim_seed"`
	MakerFee string        `mapstructure:"maker_fee"`
	TakerFee string        `mapstructure:"taker_fee"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

// InstrumentRates overrides the default margin/commission rate for one
// instrument, keyed by its symbol (InstrumentSpec.Symbol) in
// AccountingConfig.Instruments.
type InstrumentRates struct {
	MarginRate     string `mapstructure:"margin_rate"`
	CommissionRate string `mapstructure:"commission_rate"`
}

type AccountingConfig struct {
	DefaultMarginRate string                     `mapstructure:"default_margin_rate"`
	DefaultCommission string                     `mapstructure:"default_commission_rate"`
	Instruments       map[string]InstrumentRates `mapstructure:"instruments"`
}

// StoreConfig sets where the persistence gateway's file-backed entities live.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: ARKIN_PRIVATE_KEY, ARKIN_API_KEY,
// ARKIN_API_SECRET, ARKIN_PASSPHRASE.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ARKIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("ARKIN_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if key := os.Getenv("ARKIN_API_KEY"); key != "" {
		cfg.Venue.APIKey = key
	}
	if secret := os.Getenv("ARKIN_API_SECRET"); secret != "" {
		cfg.Venue.APISecret = secret
	}
	if pass := os.Getenv("ARKIN_PASSPHRASE"); pass != "" {
		cfg.Venue.Passphrase = pass
	}
	if os.Getenv("ARKIN_DRY_RUN") == "true" || os.Getenv("ARKIN_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Executor.Mode != "simulation" && c.Executor.Mode != "live" {
		return fmt.Errorf("executor.mode must be 'simulation' or 'live'")
	}
	if c.Executor.Mode == "live" {
		if c.Venue.BaseURL == "" {
			return fmt.Errorf("venue.base_url is required in live mode")
		}
		switch c.Venue.SignerType {
		case "", "hmac", "eip712":
		default:
			return fmt.Errorf("venue.signer_type must be one of: '', 'hmac', 'eip712'")
		}
		if c.Venue.SignerType == "eip712" && c.Wallet.PrivateKey == "" {
			return fmt.Errorf("wallet.private_key is required when venue.signer_type is 'eip712' (set ARKIN_PRIVATE_KEY)")
		}
	}
	if len(c.Strategy.Strategies) == 0 {
		return fmt.Errorf("strategy.strategies must list at least one strategy")
	}
	for _, s := range c.Strategy.Strategies {
		if s.ID == "" || s.FastFeatureID == "" || s.SlowFeatureID == "" {
			return fmt.Errorf("strategy %q: id, fast_feature_id, and slow_feature_id are required", s.ID)
		}
	}
	if c.Allocation.MaxAllocation == "" || c.Allocation.MaxAllocationPerSignal == "" {
		return fmt.Errorf("allocation.max_allocation and allocation.max_allocation_per_signal are required")
	}
	if c.Allocation.TotalCapital == "" {
		return fmt.Errorf("allocation.total_capital is required")
	}
	if c.Insights.TickFrequency <= 0 {
		return fmt.Errorf("insights.tick_frequency must be positive")
	}
	return nil
}
