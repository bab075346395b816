package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time

	// Event restricts audit queries to one event name.
	Event string
}

// TradeStore journals executed trades.
type TradeStore interface {
	Insert(ctx context.Context, trade Trade) error
	List(ctx context.Context, opts ListOpts) ([]Trade, error)
	Count(ctx context.Context) (int64, error)
}

// PositionStore persists the open position set keyed by asset.
type PositionStore interface {
	Upsert(ctx context.Context, pos Position) error
	Delete(ctx context.Context, assetID string) error
	ListOpen(ctx context.Context) ([]Position, error)
}

// AlertStore journals raised alerts and their acknowledgement.
type AlertStore interface {
	Insert(ctx context.Context, alert Alert) error
	Acknowledge(ctx context.Context, id string) error
	ListRecent(ctx context.Context, limit int) ([]Alert, error)
}

// StrategyConfig is one persisted entry of the ordered strategy list.
type StrategyConfig struct {
	Position  int
	Kind      string
	Enabled   bool
	Params    map[string]float64
	UpdatedAt time.Time
}

// StrategyConfigStore persists the strategy list so operators can tune it
// without redeploying.
type StrategyConfigStore interface {
	List(ctx context.Context) ([]StrategyConfig, error)
	ReplaceAll(ctx context.Context, cfgs []StrategyConfig) error
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only log of lifecycle events.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
