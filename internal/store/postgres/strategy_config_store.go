package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

var _ domain.StrategyConfigStore = (*StrategyConfigStore)(nil)

// StrategyConfigStore persists the ordered strategy list.
type StrategyConfigStore struct {
	pool *pgxpool.Pool
}

// NewStrategyConfigStore creates a StrategyConfigStore backed by pool.
func NewStrategyConfigStore(pool *pgxpool.Pool) *StrategyConfigStore {
	return &StrategyConfigStore{pool: pool}
}

// List returns the strategy list in evaluation order.
func (s *StrategyConfigStore) List(ctx context.Context) ([]domain.StrategyConfig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT position, kind, enabled, params, updated_at FROM strategy_configs ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list strategy configs: %w", err)
	}
	defer rows.Close()

	var out []domain.StrategyConfig
	for rows.Next() {
		var cfg domain.StrategyConfig
		var paramsJSON []byte
		if err := rows.Scan(&cfg.Position, &cfg.Kind, &cfg.Enabled, &paramsJSON, &cfg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan strategy config: %w", err)
		}
		if len(paramsJSON) > 0 {
			if err := json.Unmarshal(paramsJSON, &cfg.Params); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal params for %s: %w", cfg.Kind, err)
			}
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list strategy configs rows: %w", err)
	}
	return out, nil
}

// ReplaceAll swaps the stored list for cfgs in one transaction.
func (s *StrategyConfigStore) ReplaceAll(ctx context.Context, cfgs []domain.StrategyConfig) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin replace strategy configs: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM strategy_configs`); err != nil {
		return fmt.Errorf("postgres: clear strategy configs: %w", err)
	}

	batch := &pgx.Batch{}
	for i, cfg := range cfgs {
		params := cfg.Params
		if params == nil {
			params = map[string]float64{}
		}
		paramsJSON, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("postgres: marshal params for %s: %w", cfg.Kind, err)
		}
		batch.Queue(`INSERT INTO strategy_configs (position, kind, enabled, params, updated_at)
			VALUES ($1, $2, $3, $4, NOW())`, i, cfg.Kind, cfg.Enabled, paramsJSON)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: insert strategy configs: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit strategy configs: %w", err)
	}
	return nil
}
