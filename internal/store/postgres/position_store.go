package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

var _ domain.PositionStore = (*PositionStore)(nil)

// PositionStore mirrors the engine's open position set.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a PositionStore backed by pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Upsert writes the current state of a position.
func (s *PositionStore) Upsert(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (asset_id, symbol, holding_account, amount, entry_price, entry_time, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (asset_id) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			holding_account = EXCLUDED.holding_account,
			amount = EXCLUDED.amount,
			entry_price = EXCLUDED.entry_price,
			entry_time = EXCLUDED.entry_time,
			updated_at = NOW()`
	_, err := s.pool.Exec(ctx, query,
		p.AssetID, p.Symbol, p.HoldingAccount, int64(p.Amount), p.EntryPrice, p.EntryTime)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s: %w", p.AssetID, err)
	}
	return nil
}

// Delete removes a closed position. Deleting a missing position returns
// domain.ErrNotFound.
func (s *PositionStore) Delete(ctx context.Context, assetID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE asset_id = $1`, assetID)
	if err != nil {
		return fmt.Errorf("postgres: delete position %s: %w", assetID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListOpen returns every open position ordered by entry time.
func (s *PositionStore) ListOpen(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT asset_id, symbol, holding_account, amount, entry_price, entry_time
		FROM positions ORDER BY entry_time ASC, asset_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var amount int64
		if err := rows.Scan(&p.AssetID, &p.Symbol, &p.HoldingAccount, &amount, &p.EntryPrice, &p.EntryTime); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		p.Amount = uint64(amount)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list positions rows: %w", err)
	}
	return out, nil
}
