package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalYAML = `
executor:
  mode: simulation
strategy:
  strategies:
    - id: crossover-btc
      fast_feature_id: sma_fast
      slow_feature_id: sma_slow
      fast_period: 5
      slow_period: 20
allocation:
  total_capital: "100000"
  max_allocation: "10000"
  max_allocation_per_signal: "5000"
insights:
  tick_frequency: 1s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesMinimalConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, minimalYAML)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Executor.Mode != "simulation" {
		t.Errorf("Executor.Mode = %q, want simulation", cfg.Executor.Mode)
	}
	if len(cfg.Strategy.Strategies) != 1 || cfg.Strategy.Strategies[0].ID != "crossover-btc" {
		t.Errorf("Strategy.Strategies = %+v, want one entry with id crossover-btc", cfg.Strategy.Strategies)
	}
	if cfg.Strategy.Strategies[0].FastPeriod != 5 || cfg.Strategy.Strategies[0].SlowPeriod != 20 {
		t.Errorf("FastPeriod/SlowPeriod = %d/%d, want 5/20", cfg.Strategy.Strategies[0].FastPeriod, cfg.Strategy.Strategies[0].SlowPeriod)
	}
	if cfg.Insights.TickFrequency.String() != "1s" {
		t.Errorf("Insights.TickFrequency = %v, want 1s", cfg.Insights.TickFrequency)
	}
}

func TestLoadEnvOverridesSensitiveFields(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	t.Setenv("ARKIN_PRIVATE_KEY", "0xdeadbeef")
	t.Setenv("ARKIN_API_KEY", "key-123")
	t.Setenv("ARKIN_API_SECRET", "secret-456")
	t.Setenv("ARKIN_PASSPHRASE", "pass-789")
	t.Setenv("ARKIN_DRY_RUN", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Wallet.PrivateKey != "0xdeadbeef" {
		t.Errorf("Wallet.PrivateKey = %q, want env override", cfg.Wallet.PrivateKey)
	}
	if cfg.Venue.APIKey != "key-123" || cfg.Venue.APISecret != "secret-456" || cfg.Venue.Passphrase != "pass-789" {
		t.Errorf("venue credentials = %+v, want env overrides applied", cfg.Venue)
	}
	if !cfg.DryRun {
		t.Errorf("DryRun = false, want true from ARKIN_DRY_RUN")
	}
}

func TestLoadEnvOverrideLeavesYAMLValueWhenUnset(t *testing.T) {
	path := writeConfig(t, minimalYAML+"\nwallet:\n  private_key: \"from-yaml\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Wallet.PrivateKey != "from-yaml" {
		t.Errorf("Wallet.PrivateKey = %q, want value from YAML when ARKIN_PRIVATE_KEY unset", cfg.Wallet.PrivateKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}

func validConfig() *Config {
	return &Config{
		Executor: ExecutorConfig{Mode: "simulation"},
		Strategy: StrategyConfig{Strategies: []StrategyDef{
			{ID: "crossover-btc", FastFeatureID: "sma_fast", SlowFeatureID: "sma_slow"},
		}},
		Allocation: AllocationConfig{
			TotalCapital:           "100000",
			MaxAllocation:          "10000",
			MaxAllocationPerSignal: "5000",
		},
		Insights: InsightsConfig{TickFrequency: 1_000_000_000},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	t.Parallel()
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidateRejectsUnknownExecutorMode(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Executor.Mode = "paper"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for unknown executor.mode")
	}
}

func TestValidateRequiresVenueBaseURLInLiveMode(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Executor.Mode = "live"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for missing venue.base_url in live mode")
	}
}

func TestValidateRequiresWalletKeyForEIP712Signer(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Executor.Mode = "live"
	cfg.Venue.BaseURL = "https://example.com"
	cfg.Venue.SignerType = "eip712"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for missing wallet.private_key with eip712 signer")
	}

	cfg.Wallet.PrivateKey = "0xkey"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil once private key is set", err)
	}
}

func TestValidateRejectsUnknownSignerType(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Executor.Mode = "live"
	cfg.Venue.BaseURL = "https://example.com"
	cfg.Venue.SignerType = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for unknown venue.signer_type")
	}
}

func TestValidateRequiresAtLeastOneStrategy(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Strategy.Strategies = nil
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for empty strategy.strategies")
	}
}

func TestValidateRequiresStrategyFeatureIDs(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Strategy.Strategies[0].SlowFeatureID = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for missing slow_feature_id")
	}
}

func TestValidateRequiresAllocationFields(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Allocation.MaxAllocation = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for empty allocation.max_allocation")
	}

	cfg = validConfig()
	cfg.Allocation.TotalCapital = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for empty allocation.total_capital")
	}
}

func TestValidateRequiresPositiveTickFrequency(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Insights.TickFrequency = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() error = nil, want error for non-positive insights.tick_frequency")
	}
}
