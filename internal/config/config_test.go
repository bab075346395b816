package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pumpbot/internal/domain"
	"github.com/alanyoungcy/pumpbot/internal/strategy"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Strategies = strategy.DefaultConfigs()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5*time.Second, cfg.PumpPortal.RefreshInterval.Duration)
	assert.Equal(t, 60*time.Second, cfg.Trading.Cooldown.Duration)
	assert.Equal(t, uint64(1_000_000_000), cfg.Trading.MaxBuyAmount)
	assert.Equal(t, 0.5, cfg.Trading.MinConfidence)
	assert.Equal(t, 15.0, cfg.Monitoring.AlertThresholds.MaxDailyLossPercent)
}

func TestDecodeOverridesDefaults(t *testing.T) {
	src := `
mode = "trade"
dry_run = true

[pumpportal]
refresh_interval = "2s"
min_market_cap = 500000

[trading]
max_positions = 3
cooldown = "90s"

[[strategies]]
kind = "breakout"
enabled = true
[strategies.params]
min_volume_ratio = 3

[[strategies]]
kind = "MeanReversion"
enabled = false
`
	cfg, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "trade", cfg.Mode)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, 2*time.Second, cfg.PumpPortal.RefreshInterval.Duration)
	assert.Equal(t, uint64(500000), cfg.PumpPortal.MinMarketCap)
	assert.Equal(t, uint64(10_000_000), cfg.PumpPortal.MaxMarketCap)
	assert.Equal(t, 3, cfg.Trading.MaxPositions)
	assert.Equal(t, 90*time.Second, cfg.Trading.Cooldown.Duration)

	require.Len(t, cfg.Strategies, 2)
	assert.Equal(t, strategy.KindBreakout, cfg.Strategies[0].Kind)
	assert.Equal(t, 3.0, cfg.Strategies[0].Params.Get("min_volume_ratio", 0))
	assert.Equal(t, strategy.KindMeanReversion, cfg.Strategies[1].Kind)
	assert.False(t, cfg.Strategies[1].Enabled)

	// Dry-run trade mode needs no key.
	require.NoError(t, cfg.Validate())
}

func TestDecodeFillsDefaultStrategies(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`log_level = "debug"`))
	require.NoError(t, err)
	assert.Equal(t, strategy.DefaultConfigs(), cfg.Strategies)
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode(strings.NewReader("[[strategies]]\nkind = \"martingale\"\n"))
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "yolo"
	cfg.Trading.MaxPositions = 0
	cfg.Trading.MinConfidence = 1.5
	cfg.PumpPortal.MinMarketCap = 20_000_000
	cfg.Strategies = []strategy.Config{{Enabled: true}}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "yolo"`)
	assert.Contains(t, msg, "max_positions")
	assert.Contains(t, msg, "min_confidence")
	assert.Contains(t, msg, "min_market_cap")
	assert.Contains(t, msg, "strategies[0]")
}

func TestValidateTradeModeNeedsKey(t *testing.T) {
	cfg := Defaults()
	cfg.Strategies = strategy.DefaultConfigs()
	cfg.Mode = "trade"
	cfg.Wallet.KeygenPath = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "wallet:")

	cfg.Wallet.EncryptedKeyPath = "key.json"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PUMPBOT_MODE", "monitor")
	t.Setenv("PUMPBOT_TRADING_MAX_BUY_AMOUNT", "2500")
	t.Setenv("PUMPBOT_TRADING_COOLDOWN", "5m")
	t.Setenv("PUMPBOT_NOTIFY_EVENTS", "trade, alert ,")
	t.Setenv("PUMPBOT_REDIS_ENABLED", "true")
	t.Setenv("PUMPBOT_SERVER_PORT", "not-a-number")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, uint64(2500), cfg.Trading.MaxBuyAmount)
	assert.Equal(t, 5*time.Minute, cfg.Trading.Cooldown.Duration)
	assert.Equal(t, []string{"trade", "alert"}, cfg.Notify.Events)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"monitor\"\n[server]\nport = 9100\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Len(t, cfg.Strategies, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestSaveRoundTripRedacts(t *testing.T) {
	cfg := Defaults()
	cfg.Strategies = strategy.DefaultConfigs()
	cfg.Wallet.PrivateKey = "super-secret"
	cfg.Monitoring.WebhookURL = "https://hooks.example.com/abc"
	cfg.Trading.MaxPositions = 7

	path := filepath.Join(t.TempDir(), "state", "config_backup.toml")
	require.NoError(t, Save(path, &cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "super-secret")
	assert.NotContains(t, string(data), "hooks.example.com")

	back, err := Decode(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, 7, back.Trading.MaxPositions)
	assert.Equal(t, redacted, back.Wallet.PrivateKey)
	assert.Equal(t, cfg.Trading.Cooldown, back.Trading.Cooldown)
	require.Len(t, back.Strategies, 3)
	assert.Equal(t, strategy.KindHolderGrowth, back.Strategies[2].Kind)

	// The original is untouched.
	assert.Equal(t, "super-secret", cfg.Wallet.PrivateKey)
}

func TestRedactedConfigCopiesCollections(t *testing.T) {
	cfg := Defaults()
	cfg.Strategies = []strategy.Config{{Kind: strategy.KindMomentum, Enabled: true, Params: strategy.Params{"a": 1}}}

	out := RedactedConfig(&cfg)
	out.Strategies[0].Params["a"] = 2
	out.Notify.Events[0] = "changed"

	assert.Equal(t, 1.0, cfg.Strategies[0].Params["a"])
	assert.Equal(t, "trade", cfg.Notify.Events[0])
}
