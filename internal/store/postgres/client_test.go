package postgres

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

func TestDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/bot?sslmode=disable",
		DSN(ClientConfig{User: "u", Password: "p", Host: "db", Database: "bot"}))
	assert.Equal(t, "postgres://u:p@db:6543/bot?sslmode=require",
		DSN(ClientConfig{User: "u", Password: "p", Host: "db", Port: 6543, Database: "bot", SSLMode: "require"}))
	assert.Equal(t, "postgres://explicit", DSN(ClientConfig{DSN: "postgres://explicit", Host: "ignored"}))
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	data, err := migrationsFS.ReadFile("migrations/" + entries[0].Name())
	require.NoError(t, err)
	sql := string(data)
	for _, table := range []string{"trades", "positions", "alerts", "strategy_configs", "audit_log"} {
		assert.True(t, strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table), table)
	}
}

func TestAuditListQuery(t *testing.T) {
	q, args := auditListQuery(domain.ListOpts{})
	assert.Equal(t, "SELECT id, event, detail, created_at FROM audit_log ORDER BY created_at DESC, id DESC", q)
	assert.Empty(t, args)

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args = auditListQuery(domain.ListOpts{Event: "archive.trades", Since: &since, Limit: 1, Offset: 5})
	assert.Equal(t, "SELECT id, event, detail, created_at FROM audit_log"+
		" WHERE event = $1 AND created_at >= $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4", q)
	assert.Equal(t, []any{"archive.trades", since, 1, 5}, args)
}
