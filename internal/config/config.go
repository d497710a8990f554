// Package config loads engine configuration from a YAML file, a .env file,
// and environment overrides. Tunables like the maturity threshold and sweep
// cadence live here so behavior changes without code changes.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/shardsim/paper-engine/internal/asset"
)

// Config is the complete engine configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Engine  EngineConfig  `yaml:"engine"`
	Feed    FeedConfig    `yaml:"feed"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Risk    RiskConfig    `yaml:"risk"`
	Log     LogConfig     `yaml:"log"`
}

// HTTPConfig controls the HTTP listener.
type HTTPConfig struct {
	Port string `yaml:"port"`
}

// StorageConfig selects the persistence backends. An empty database URL
// falls back to the in-memory store; an empty redis URL disables caching.
type StorageConfig struct {
	DatabaseURL     string `yaml:"database_url"`
	RedisURL        string `yaml:"redis_url"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// EngineConfig controls account and prediction lifecycle behavior.
type EngineConfig struct {
	StartingBalance      float64 `yaml:"starting_balance"`       // SHM granted on first connection
	SweepIntervalSeconds int     `yaml:"sweep_interval_seconds"` // resolution sweep cadence
	MaturitySeconds      int     `yaml:"maturity_seconds"`       // min age before resolution
}

// FeedConfig controls the price feed.
type FeedConfig struct {
	Source              string             `yaml:"source"` // sim | binance
	PollIntervalSeconds int                `yaml:"poll_interval_seconds"`
	BinanceWSBase       string             `yaml:"binance_ws_base"`
	SeedSamples         int                `yaml:"seed_samples"`
	StartPrices         map[string]float64 `yaml:"start_prices"`
	Floors              map[string]float64 `yaml:"floors"`
}

// OracleConfig selects the resolution oracle.
type OracleConfig struct {
	Kind    string  `yaml:"kind"`     // random | price
	WinRate float64 `yaml:"win_rate"` // random oracle only
}

// RiskConfig controls exposure limits. Zero disables a limit.
type RiskConfig struct {
	MaxPerAsset float64 `yaml:"max_per_asset"`
	MaxInvested float64 `yaml:"max_invested"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads configuration from the YAML file at path (optional — empty
// path uses defaults only) and the .env file if present. Environment
// variables override both.
func Load(path string) (*Config, error) {
	// Load .env if present (silences the error when there is none).
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SweepInterval returns the sweep cadence as a time.Duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Engine.SweepIntervalSeconds) * time.Second
}

// Maturity returns the maturity threshold as a time.Duration.
func (c *Config) Maturity() time.Duration {
	return time.Duration(c.Engine.MaturitySeconds) * time.Second
}

// PollInterval returns the feed poll cadence as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Feed.PollIntervalSeconds) * time.Second
}

// CacheTTL returns the redis cache TTL as a time.Duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Storage.CacheTTLSeconds) * time.Second
}

// StartingBalance returns the starting SHM grant as a decimal.
func (c *Config) StartingBalance() decimal.Decimal {
	return decimal.NewFromFloat(c.Engine.StartingBalance)
}

// StartPrices returns the per-asset anchor prices as decimals.
func (c *Config) StartPrices() map[asset.Symbol]decimal.Decimal {
	return toDecimalMap(c.Feed.StartPrices)
}

// Floors returns the per-asset price floors as decimals.
func (c *Config) Floors() map[asset.Symbol]decimal.Decimal {
	return toDecimalMap(c.Feed.Floors)
}

func toDecimalMap(in map[string]float64) map[asset.Symbol]decimal.Decimal {
	out := make(map[asset.Symbol]decimal.Decimal, len(in))
	for k, v := range in {
		if sym, err := asset.ParseSymbol(k); err == nil {
			out[sym] = decimal.NewFromFloat(v)
		}
	}
	return out
}

// applyEnvOverrides overrides values from environment variables when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.HTTP.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Storage.RedisURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults ensures required values have sensible defaults.
func setDefaults(cfg *Config) {
	if cfg.HTTP.Port == "" {
		cfg.HTTP.Port = "8080"
	}
	if cfg.Storage.CacheTTLSeconds <= 0 {
		cfg.Storage.CacheTTLSeconds = 30
	}
	if cfg.Engine.StartingBalance <= 0 {
		cfg.Engine.StartingBalance = 100
	}
	if cfg.Engine.SweepIntervalSeconds <= 0 {
		cfg.Engine.SweepIntervalSeconds = 30
	}
	if cfg.Engine.MaturitySeconds <= 0 {
		cfg.Engine.MaturitySeconds = 360 // 6 minutes, demo scale
	}
	if cfg.Feed.Source == "" {
		cfg.Feed.Source = "sim"
	}
	if cfg.Feed.PollIntervalSeconds <= 0 {
		cfg.Feed.PollIntervalSeconds = 30
	}
	if cfg.Feed.SeedSamples < 0 {
		cfg.Feed.SeedSamples = 0
	} else if cfg.Feed.SeedSamples == 0 {
		cfg.Feed.SeedSamples = 24
	}
	if len(cfg.Feed.StartPrices) == 0 {
		cfg.Feed.StartPrices = map[string]float64{
			"BTC": 43250,
			"ETH": 2640,
		}
	}
	if len(cfg.Feed.Floors) == 0 {
		cfg.Feed.Floors = map[string]float64{
			"BTC": 30000,
			"ETH": 1500,
		}
	}
	if cfg.Oracle.Kind == "" {
		cfg.Oracle.Kind = "random"
	}
	if cfg.Oracle.WinRate <= 0 || cfg.Oracle.WinRate > 1 {
		cfg.Oracle.WinRate = 0.6
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
