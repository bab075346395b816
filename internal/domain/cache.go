package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest observed price per asset.
type PriceCache interface {
	SetPrice(ctx context.Context, assetID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, assetID string) (float64, time.Time, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
	Refresh(ctx context.Context, key string, ttl time.Duration) error
}

// EventBus publishes bot events to subscribers and a durable stream.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// EventSubscriber streams the payloads published on an event channel.
type EventSubscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter counts requests per key within a time window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
