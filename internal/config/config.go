// Package config defines the top-level configuration for the pump bot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/pumpbot/internal/domain"
	"github.com/alanyoungcy/pumpbot/internal/strategy"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PUMPBOT_* environment variables.
type Config struct {
	Mode         string             `toml:"mode"`
	LogLevel     string             `toml:"log_level"`
	DryRun       bool               `toml:"dry_run"`
	Wallet       WalletConfig       `toml:"wallet"`
	PumpPortal   PumpPortalConfig   `toml:"pumpportal"`
	Trading      TradingConfig      `toml:"trading"`
	Strategies   []strategy.Config  `toml:"strategies"`
	PriceHistory PriceHistoryConfig `toml:"price_history"`
	Monitoring   MonitoringConfig   `toml:"monitoring"`
	State        StateConfig        `toml:"state"`
	Supabase     SupabaseConfig     `toml:"supabase"`
	Redis        RedisConfig        `toml:"redis"`
	S3           S3Config           `toml:"s3"`
	Server       ServerConfig       `toml:"server"`
	Notify       NotifyConfig       `toml:"notify"`
}

// WalletConfig holds the Solana RPC endpoint and key material.
type WalletConfig struct {
	RPCURL           string `toml:"rpc_url"`
	Commitment       string `toml:"commitment"`
	PrivateKey       string `toml:"private_key"`
	KeygenPath       string `toml:"keygen_path"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	// GenerateIfMissing creates a fresh keypair at KeygenPath when the file
	// does not exist.
	GenerateIfMissing bool `toml:"generate_if_missing"`
	// PaperBalance is the lamport balance reported in paper mode.
	PaperBalance uint64 `toml:"paper_balance"`
}

// PumpPortalConfig holds the market-data endpoint and discovery filter.
type PumpPortalConfig struct {
	APIURL          string   `toml:"api_url"`
	APIKey          string   `toml:"api_key"`
	Feed            string   `toml:"feed"`
	RefreshInterval duration `toml:"refresh_interval"`
	Timeout         duration `toml:"timeout"`
	MinMarketCap    uint64   `toml:"min_market_cap"`
	MaxMarketCap    uint64   `toml:"max_market_cap"`
	MinHolders      uint32   `toml:"min_holders"`
	MaxAgeHours     uint32   `toml:"max_age_hours"`
}

// TradingConfig holds the risk limits of the trading engine.
type TradingConfig struct {
	MaxPositions        int      `toml:"max_positions"`
	MaxBuyAmount        uint64   `toml:"max_buy_amount"`
	MaxSellAmount       uint64   `toml:"max_sell_amount"`
	CapSells            bool     `toml:"cap_sells"`
	ProfitTargetPercent float64  `toml:"profit_target_percent"`
	StopLossPercent     float64  `toml:"stop_loss_percent"`
	Cooldown            duration `toml:"cooldown"`
	MinConfidence       float64  `toml:"min_confidence"`
}

// PriceHistoryConfig bounds the rolling per-asset price history.
type PriceHistoryConfig struct {
	Window    duration `toml:"window"`
	MaxPoints int      `toml:"max_points"`
}

// MonitoringConfig holds alerting parameters.
type MonitoringConfig struct {
	SaveTrades      bool            `toml:"save_trades"`
	WebhookURL      string          `toml:"webhook_url"`
	WebhookSecret   string          `toml:"webhook_secret"`
	StatusInterval  duration        `toml:"status_interval"`
	AlertThresholds AlertThresholds `toml:"alert_thresholds"`
}

// AlertThresholds are the monitoring alert limits.
type AlertThresholds struct {
	MaxDrawdownPercent    float64 `toml:"max_drawdown_percent"`
	MinDailyProfitPercent float64 `toml:"min_daily_profit_percent"`
	MaxDailyLossPercent   float64 `toml:"max_daily_loss_percent"`
}

// StateConfig controls local state snapshots.
type StateConfig struct {
	MetricsPath      string   `toml:"metrics_path"`
	ConfigBackupPath string   `toml:"config_backup_path"`
	SaveInterval     duration `toml:"save_interval"`
	// ArchiveAfter is the trade age at which trades are archived to S3.
	ArchiveAfter duration `toml:"archive_after"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	KeyPrefix  string   `toml:"key_prefix"`
	PriceTTL   duration `toml:"price_ttl"`
	LockTTL    duration `toml:"lock_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit caps requests per client per minute. It needs redis; zero
	// disables limiting.
	RateLimit int `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with the bot's default values.
// Strategies is left empty; Load fills it with strategy.DefaultConfigs when
// the file configures none.
func Defaults() Config {
	return Config{
		Mode:     ModePaper,
		LogLevel: "info",
		Wallet: WalletConfig{
			RPCURL:            "https://api.mainnet-beta.solana.com",
			Commitment:        "confirmed",
			KeygenPath:        "wallet.json",
			GenerateIfMissing: true,
			PaperBalance:      10_000_000_000,
		},
		PumpPortal: PumpPortalConfig{
			APIURL:          "https://api.pumpportal.fun",
			Feed:            "new",
			RefreshInterval: duration{5 * time.Second},
			Timeout:         duration{10 * time.Second},
			MinMarketCap:    1_000_000,
			MaxMarketCap:    10_000_000,
			MinHolders:      100,
			MaxAgeHours:     24,
		},
		Trading: TradingConfig{
			MaxPositions:        5,
			MaxBuyAmount:        1_000_000_000,
			MaxSellAmount:       1_000_000_000,
			ProfitTargetPercent: 20,
			StopLossPercent:     10,
			Cooldown:            duration{60 * time.Second},
			MinConfidence:       0.5,
		},
		PriceHistory: PriceHistoryConfig{
			Window:    duration{24 * time.Hour},
			MaxPoints: 1000,
		},
		Monitoring: MonitoringConfig{
			SaveTrades:     true,
			StatusInterval: duration{60 * time.Second},
			AlertThresholds: AlertThresholds{
				MaxDrawdownPercent:    20,
				MinDailyProfitPercent: 5,
				MaxDailyLossPercent:   15,
			},
		},
		State: StateConfig{
			MetricsPath:      "metrics.json",
			ConfigBackupPath: "config_backup.toml",
			SaveInterval:     duration{5 * time.Minute},
			ArchiveAfter:     duration{30 * 24 * time.Hour},
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "pumpbot",
			PriceTTL:   duration{10 * time.Minute},
			LockTTL:    duration{30 * time.Second},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "pumpbot-data",
			Prefix:         "pumpbot",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"trade", "alert", "status"},
		},
	}
}

// Run modes.
const (
	ModeTrade   = "trade"
	ModePaper   = "paper"
	ModeMonitor = "monitor"
)

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	ModeTrade:   true,
	ModePaper:   true,
	ModeMonitor: true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validFeeds = map[string]bool{
	"new":      true,
	"trending": true,
	"both":     true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, paper, monitor)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet: live trading signs transactions, so a key source is required.
	if strings.ToLower(c.Mode) == ModeTrade && !c.DryRun {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" && c.Wallet.KeygenPath == "" {
			errs = append(errs, "wallet: one of private_key, encrypted_key_path or keygen_path must be set for mode trade")
		}
		if c.Wallet.RPCURL == "" {
			errs = append(errs, "wallet: rpc_url must not be empty for mode trade")
		}
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// PumpPortal
	if c.PumpPortal.APIURL == "" {
		errs = append(errs, "pumpportal: api_url must not be empty")
	}
	if !validFeeds[strings.ToLower(c.PumpPortal.Feed)] {
		errs = append(errs, fmt.Sprintf("pumpportal: unknown feed %q (valid: new, trending, both)", c.PumpPortal.Feed))
	}
	if c.PumpPortal.RefreshInterval.Duration <= 0 {
		errs = append(errs, "pumpportal: refresh_interval must be > 0")
	}
	if c.PumpPortal.MinMarketCap > c.PumpPortal.MaxMarketCap {
		errs = append(errs, "pumpportal: min_market_cap must not exceed max_market_cap")
	}

	// Trading
	if c.Trading.MaxPositions < 1 {
		errs = append(errs, "trading: max_positions must be >= 1")
	}
	if c.Trading.MaxBuyAmount == 0 {
		errs = append(errs, "trading: max_buy_amount must be > 0")
	}
	if c.Trading.ProfitTargetPercent <= 0 {
		errs = append(errs, "trading: profit_target_percent must be > 0")
	}
	if c.Trading.StopLossPercent <= 0 {
		errs = append(errs, "trading: stop_loss_percent must be > 0")
	}
	if c.Trading.Cooldown.Duration < 0 {
		errs = append(errs, "trading: cooldown must be >= 0")
	}
	if c.Trading.MinConfidence < 0 || c.Trading.MinConfidence > 1 {
		errs = append(errs, "trading: min_confidence must be within [0, 1]")
	}

	// Strategies
	for i, s := range c.Strategies {
		if !s.Kind.Valid() {
			errs = append(errs, fmt.Sprintf("strategies[%d]: kind must be one of %s", i, kindNames()))
		}
	}

	// Price history
	if c.PriceHistory.MaxPoints < 1 {
		errs = append(errs, "price_history: max_points must be >= 1")
	}
	if c.PriceHistory.Window.Duration <= 0 {
		errs = append(errs, "price_history: window must be > 0")
	}

	// Monitoring
	th := c.Monitoring.AlertThresholds
	if th.MaxDrawdownPercent < 0 || th.MinDailyProfitPercent < 0 || th.MaxDailyLossPercent < 0 {
		errs = append(errs, "monitoring: alert thresholds must be >= 0")
	}

	// Supabase
	if c.Supabase.Enabled {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns < 0 {
			errs = append(errs, "supabase: pool_min_conns must be >= 0")
		}
		if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LockTTL.Duration <= 0 {
			errs = append(errs, "redis: lock_ttl must be > 0")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must not be negative")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: config validation failed:\n  - %s", domain.ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

func kindNames() string {
	kinds := strategy.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}
