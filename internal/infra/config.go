package infra

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting of the application. Secrets can be
// overridden through environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		WSURL   string   `yaml:"ws_url"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"feed"`

	Engine struct {
		EvalIntervalSec  int    `yaml:"eval_interval_sec"` // trigger evaluation cadence
		CooldownSec      int    `yaml:"cooldown_sec"`      // default per (rule,symbol) cooldown
		TradeWindow      int    `yaml:"trade_window"`      // trade ring capacity per symbol
		ContextWindow    int    `yaml:"context_window"`    // context ring capacity per symbol
		MomentumLookback int    `yaml:"momentum_lookback"` // trades back for momentum_bps
		OIDeltaLookback  int    `yaml:"oi_delta_lookback"` // snapshots back for oi_delta_pct
		MinTrades        int    `yaml:"min_trades"`        // floor before cvd/buy_ratio report OK
		RulesPath        string `yaml:"rules_path"`
	} `yaml:"engine"`

	Execution struct {
		RestURL         string          `yaml:"rest_url"`
		AccessKey       string          `yaml:"access_key"`
		SecretKey       string          `yaml:"secret_key"`
		Passphrase      string          `yaml:"passphrase"`
		AccountSizeUSD  decimal.Decimal `yaml:"account_size_usd"` // reference size, not a live balance
		SizeFraction    decimal.Decimal `yaml:"size_fraction"`    // default order size as fraction of account
		OrderTimeoutSec int             `yaml:"order_timeout_sec"`
		RatePerSec      float64         `yaml:"rate_per_sec"` // REST request budget
		DryRun          bool            `yaml:"dry_run"`      // route orders to the in-process paper venue
	} `yaml:"execution"`

	Analysis struct {
		URL        string `yaml:"url"`
		TimeoutSec int    `yaml:"timeout_sec"`
		OnTimeout  string `yaml:"on_timeout"` // "leave" or "cancel"
	} `yaml:"analysis"`

	Journal struct {
		Path string `yaml:"path"` // sqlite file holding the trigger audit trail
	} `yaml:"journal"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Secrets come from the environment when present
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity. Any failure here is fatal at boot.
func (c *Config) Validate() error {
	if c.Feed.WSURL == "" || (!hasPrefix(c.Feed.WSURL, "ws://") && !hasPrefix(c.Feed.WSURL, "wss://")) {
		return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("at least one feed symbol is required")
	}

	if c.Engine.EvalIntervalSec <= 0 {
		return fmt.Errorf("eval interval must be positive")
	}
	if c.Engine.CooldownSec <= 0 {
		return fmt.Errorf("cooldown must be positive")
	}
	if c.Engine.TradeWindow <= 1 || c.Engine.ContextWindow <= 1 {
		return fmt.Errorf("window capacities must be greater than 1")
	}
	if c.Engine.MomentumLookback <= 0 || c.Engine.MomentumLookback >= c.Engine.TradeWindow {
		return fmt.Errorf("momentum lookback must be in [1, trade_window)")
	}
	if c.Engine.OIDeltaLookback <= 0 || c.Engine.OIDeltaLookback >= c.Engine.ContextWindow {
		return fmt.Errorf("oi delta lookback must be in [1, context_window)")
	}
	if c.Engine.MinTrades <= 0 || c.Engine.MinTrades > c.Engine.TradeWindow {
		return fmt.Errorf("min trades must be in [1, trade_window]")
	}
	if c.Engine.RulesPath == "" {
		return fmt.Errorf("rules path is required")
	}

	if !c.Execution.DryRun && c.Execution.RestURL == "" {
		return fmt.Errorf("execution rest_url is required unless dry_run is set")
	}
	if c.Execution.AccountSizeUSD.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("account size must be positive")
	}
	if c.Execution.SizeFraction.LessThanOrEqual(decimal.Zero) || c.Execution.SizeFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("size fraction must be in (0, 1]")
	}
	if c.Execution.OrderTimeoutSec <= 0 || c.Execution.OrderTimeoutSec > 10 {
		return fmt.Errorf("order timeout must be in [1, 10] seconds")
	}
	if c.Execution.RatePerSec <= 0 {
		return fmt.Errorf("execution rate budget must be positive")
	}

	if c.Analysis.URL == "" {
		return fmt.Errorf("analysis URL is required")
	}
	if c.Analysis.TimeoutSec <= 0 || c.Analysis.TimeoutSec > 60 {
		return fmt.Errorf("analysis timeout must be in [1, 60] seconds")
	}
	if c.Analysis.OnTimeout != "leave" && c.Analysis.OnTimeout != "cancel" {
		return fmt.Errorf("analysis on_timeout must be \"leave\" or \"cancel\", got %q", c.Analysis.OnTimeout)
	}

	if c.Journal.Path == "" {
		return fmt.Errorf("journal path is required")
	}

	return nil
}

// EvalInterval returns the trigger evaluation cadence.
func (c *Config) EvalInterval() time.Duration {
	return time.Duration(c.Engine.EvalIntervalSec) * time.Second
}

// Cooldown returns the default per (rule,symbol) cooldown.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Engine.CooldownSec) * time.Second
}

// OrderTimeout returns the protective-order placement deadline.
func (c *Config) OrderTimeout() time.Duration {
	return time.Duration(c.Execution.OrderTimeoutSec) * time.Second
}

// AnalysisTimeout returns the hard deadline for one analysis round trip.
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.Analysis.TimeoutSec) * time.Second
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv replaces settings with environment values when present.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("SENTINEL_EXEC_KEY"); key != "" {
		cfg.Execution.AccessKey = key
	}
	if secret := os.Getenv("SENTINEL_EXEC_SECRET"); secret != "" {
		cfg.Execution.SecretKey = secret
	}
	if pass := os.Getenv("SENTINEL_EXEC_PASSPHRASE"); pass != "" {
		cfg.Execution.Passphrase = pass
	}
	if url := os.Getenv("SENTINEL_ANALYSIS_URL"); url != "" {
		cfg.Analysis.URL = url
	}
}
