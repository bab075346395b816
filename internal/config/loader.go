package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/alanyoungcy/pumpbot/internal/strategy"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PUMPBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	fillStrategies(&cfg)

	return &cfg, nil
}

// Decode parses TOML from r on top of the defaults without consulting the
// environment.
func Decode(r io.Reader) (*Config, error) {
	cfg := Defaults()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, err
	}
	fillStrategies(&cfg)
	return &cfg, nil
}

// Encode writes cfg as TOML with secrets redacted.
func Encode(w io.Writer, cfg *Config) error {
	out := RedactedConfig(cfg)
	if err := toml.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}

// Marshal returns the redacted TOML encoding of cfg.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the redacted TOML encoding of cfg to path, creating parent
// directories as needed.
func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create dir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func fillStrategies(cfg *Config) {
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = strategy.DefaultConfigs()
	}
}

// applyEnvOverrides reads well-known PUMPBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.RPCURL, "PUMPBOT_WALLET_RPC_URL")
	setStr(&cfg.Wallet.Commitment, "PUMPBOT_WALLET_COMMITMENT")
	setStr(&cfg.Wallet.PrivateKey, "PUMPBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.KeygenPath, "PUMPBOT_WALLET_KEYGEN_PATH")
	setStr(&cfg.Wallet.EncryptedKeyPath, "PUMPBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "PUMPBOT_WALLET_KEY_PASSWORD")
	setBool(&cfg.Wallet.GenerateIfMissing, "PUMPBOT_WALLET_GENERATE_IF_MISSING")

	// ── PumpPortal ──
	setStr(&cfg.PumpPortal.APIURL, "PUMPBOT_PUMPPORTAL_API_URL")
	setStr(&cfg.PumpPortal.APIKey, "PUMPBOT_PUMPPORTAL_API_KEY")
	setStr(&cfg.PumpPortal.Feed, "PUMPBOT_PUMPPORTAL_FEED")
	setDuration(&cfg.PumpPortal.RefreshInterval, "PUMPBOT_PUMPPORTAL_REFRESH_INTERVAL")
	setDuration(&cfg.PumpPortal.Timeout, "PUMPBOT_PUMPPORTAL_TIMEOUT")
	setUint64(&cfg.PumpPortal.MinMarketCap, "PUMPBOT_PUMPPORTAL_MIN_MARKET_CAP")
	setUint64(&cfg.PumpPortal.MaxMarketCap, "PUMPBOT_PUMPPORTAL_MAX_MARKET_CAP")
	setUint32(&cfg.PumpPortal.MinHolders, "PUMPBOT_PUMPPORTAL_MIN_HOLDERS")
	setUint32(&cfg.PumpPortal.MaxAgeHours, "PUMPBOT_PUMPPORTAL_MAX_AGE_HOURS")

	// ── Trading ──
	setInt(&cfg.Trading.MaxPositions, "PUMPBOT_TRADING_MAX_POSITIONS")
	setUint64(&cfg.Trading.MaxBuyAmount, "PUMPBOT_TRADING_MAX_BUY_AMOUNT")
	setUint64(&cfg.Trading.MaxSellAmount, "PUMPBOT_TRADING_MAX_SELL_AMOUNT")
	setBool(&cfg.Trading.CapSells, "PUMPBOT_TRADING_CAP_SELLS")
	setFloat64(&cfg.Trading.ProfitTargetPercent, "PUMPBOT_TRADING_PROFIT_TARGET_PERCENT")
	setFloat64(&cfg.Trading.StopLossPercent, "PUMPBOT_TRADING_STOP_LOSS_PERCENT")
	setDuration(&cfg.Trading.Cooldown, "PUMPBOT_TRADING_COOLDOWN")
	setFloat64(&cfg.Trading.MinConfidence, "PUMPBOT_TRADING_MIN_CONFIDENCE")

	// ── Monitoring ──
	setStr(&cfg.Monitoring.WebhookURL, "PUMPBOT_MONITORING_WEBHOOK_URL")
	setStr(&cfg.Monitoring.WebhookSecret, "PUMPBOT_MONITORING_WEBHOOK_SECRET")
	setDuration(&cfg.Monitoring.StatusInterval, "PUMPBOT_MONITORING_STATUS_INTERVAL")

	// ── Supabase ──
	setBool(&cfg.Supabase.Enabled, "PUMPBOT_SUPABASE_ENABLED")
	setStr(&cfg.Supabase.DSN, "PUMPBOT_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "PUMPBOT_DATABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "PUMPBOT_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "PUMPBOT_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "PUMPBOT_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "PUMPBOT_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "PUMPBOT_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "PUMPBOT_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "PUMPBOT_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "PUMPBOT_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "PUMPBOT_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PUMPBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PUMPBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PUMPBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PUMPBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PUMPBOT_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "PUMPBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "PUMPBOT_REDIS_KEY_PREFIX")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PUMPBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PUMPBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PUMPBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "PUMPBOT_S3_BUCKET")
	setStr(&cfg.S3.Prefix, "PUMPBOT_S3_PREFIX")
	setStr(&cfg.S3.AccessKey, "PUMPBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PUMPBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PUMPBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PUMPBOT_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PUMPBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PUMPBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PUMPBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "PUMPBOT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "PUMPBOT_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PUMPBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PUMPBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PUMPBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PUMPBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PUMPBOT_MODE")
	setStr(&cfg.LogLevel, "PUMPBOT_LOG_LEVEL")
	setBool(&cfg.DryRun, "PUMPBOT_DRY_RUN")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint32(dst *uint32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			*dst = uint32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
