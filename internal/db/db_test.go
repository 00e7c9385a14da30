package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guidewisey/guidewise/internal/config"
)

func TestSQLiteMigrationsApply(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "test.db")}
	conn, err := Open(cfg)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, conn, cfg.Driver))
	// idempotent
	require.NoError(t, ApplyMigrations(ctx, conn, cfg.Driver))

	for _, table := range []string{"users", "sessions", "documents", "messages", "question_limits"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestQuestionLimitRequiresOneIdentity(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "test.db")}
	conn, err := Open(cfg)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.NoError(t, ApplyMigrations(context.Background(), conn, cfg.Driver))

	_, err = conn.Exec(`INSERT INTO documents (source_key, content, ctime) VALUES ('k', 'c', 1)`)
	require.NoError(t, err)
	_, err = conn.Exec(`INSERT INTO question_limits (document_id, question_count, ctime, mtime) VALUES (1, 0, 1, 1)`)
	require.Error(t, err)
}
