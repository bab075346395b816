package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

var _ domain.TradeStore = (*TradeStore)(nil)

// TradeStore journals executed trades.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, asset_id, symbol, action, amount, price, executed_at,
	receipt, profit_loss, source, reason`

const tradeInsert = `
	INSERT INTO trades (
		id, asset_id, symbol, action, amount, price, executed_at,
		receipt, profit_loss, source, reason
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO NOTHING`

func tradeArgs(t domain.Trade) []any {
	return []any{
		t.ID, t.AssetID, t.Symbol, string(t.Action), int64(t.Amount), t.Price, t.Timestamp,
		t.Receipt, t.ProfitLoss, t.Source, t.Reason,
	}
}

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var action string
		var amount int64
		if err := rows.Scan(
			&t.ID, &t.AssetID, &t.Symbol, &action, &amount, &t.Price, &t.Timestamp,
			&t.Receipt, &t.ProfitLoss, &t.Source, &t.Reason,
		); err != nil {
			return nil, err
		}
		t.Action = domain.Action(action)
		t.Amount = uint64(amount)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert journals one trade. Re-inserting the same ID is a no-op.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	if _, err := s.pool.Exec(ctx, tradeInsert, tradeArgs(t)...); err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.ID, err)
	}
	return nil
}

// List returns trades in execution order, optionally paged and filtered by
// a start time.
func (s *TradeStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + ` FROM trades WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND executed_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	query += " ORDER BY seq ASC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades: %w", err)
	}
	return trades, nil
}

// Count returns the number of journaled trades.
func (s *TradeStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM trades").Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count trades: %w", err)
	}
	return n, nil
}
