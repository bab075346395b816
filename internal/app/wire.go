package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/pumpbot/internal/blob/s3"
	"github.com/alanyoungcy/pumpbot/internal/cache/redis"
	"github.com/alanyoungcy/pumpbot/internal/config"
	"github.com/alanyoungcy/pumpbot/internal/domain"
	"github.com/alanyoungcy/pumpbot/internal/notify"
	"github.com/alanyoungcy/pumpbot/internal/server/handler"
	"github.com/alanyoungcy/pumpbot/internal/store/postgres"
)

// Dependencies bundles the optional backends. A nil field means the backend
// is not configured and the bot runs without it.
type Dependencies struct {
	// Stores
	TradeStore    domain.TradeStore
	PositionStore domain.PositionStore
	AlertStore    domain.AlertStore
	AuditStore    domain.AuditStore
	StratCfgStore domain.StrategyConfigStore

	// Caches
	PriceCache  *redis.PriceCache
	EventBus    domain.EventBus
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter

	// Blob storage
	Backup     *s3blob.Backup
	BlobReader domain.BlobReader

	// Notifications
	Notifier *notify.Notifier

	// HealthChecks probes every connected backend for /api/health.
	HealthChecks map[string]handler.HealthCheck
}

// Wire constructs the configured backends and returns them together with a
// cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{HealthChecks: map[string]handler.HealthCheck{}}

	// --- PostgreSQL ---
	if cfg.Supabase.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Supabase.DSN,
			Host:     cfg.Supabase.Host,
			Port:     cfg.Supabase.Port,
			Database: cfg.Supabase.Database,
			User:     cfg.Supabase.User,
			Password: cfg.Supabase.Password,
			SSLMode:  cfg.Supabase.SSLMode,
			MaxConns: cfg.Supabase.PoolMaxConns,
			MinConns: cfg.Supabase.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Supabase.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.PositionStore = postgres.NewPositionStore(pool)
		deps.AlertStore = postgres.NewAlertStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.StratCfgStore = postgres.NewStrategyConfigStore(pool)
		deps.HealthChecks["postgres"] = pool.Ping
		logger.InfoContext(ctx, "postgres connected")
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Redis.PriceTTL.Duration)
		deps.EventBus = redis.NewEventBus(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.HealthChecks["redis"] = redisClient.Ping
		logger.InfoContext(ctx, "redis connected", slog.String("addr", cfg.Redis.Addr))
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Backup = s3blob.NewBackup(s3blob.NewWriter(s3Client), deps.AuditStore, cfg.S3.Prefix)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.HealthChecks["s3"] = s3Client.Health
		logger.InfoContext(ctx, "s3 configured", slog.String("bucket", cfg.S3.Bucket))
	}

	// --- Notifications ---
	deps.Notifier = notify.NewNotifier(buildSenders(cfg), cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

func buildSenders(cfg *config.Config) []notify.Sender {
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if cfg.Monitoring.WebhookURL != "" {
		senders = append(senders, notify.NewWebhookSender(
			cfg.Monitoring.WebhookURL,
			cfg.Monitoring.WebhookSecret,
		))
	}
	return senders
}
