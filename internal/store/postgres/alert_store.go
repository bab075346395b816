package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

var _ domain.AlertStore = (*AlertStore)(nil)

// AlertStore journals raised alerts.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates an AlertStore backed by pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Insert records a raised alert.
func (s *AlertStore) Insert(ctx context.Context, a domain.Alert) error {
	const query = `
		INSERT INTO alerts (id, level, message, raised_at, acknowledged)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, a.ID, a.Level.String(), a.Message, a.Timestamp, a.Acknowledged); err != nil {
		return fmt.Errorf("postgres: insert alert %s: %w", a.ID, err)
	}
	return nil
}

// Acknowledge flags the alert with id. A missing alert returns
// domain.ErrNotFound.
func (s *AlertStore) Acknowledge(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE alerts SET acknowledged = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: acknowledge alert %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListRecent returns up to limit alerts, newest first.
func (s *AlertStore) ListRecent(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, level, message, raised_at, acknowledged
		FROM alerts ORDER BY raised_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var level string
		if err := rows.Scan(&a.ID, &level, &a.Message, &a.Timestamp, &a.Acknowledged); err != nil {
			return nil, fmt.Errorf("postgres: scan alert: %w", err)
		}
		if err := a.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("postgres: alert %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list alerts rows: %w", err)
	}
	return out, nil
}
