package testutil

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guidewisey/guidewise/internal/config"
	"github.com/guidewisey/guidewise/internal/db"
)

// NewDB returns a migrated database. It uses Postgres when TEST_DB_HOST is
// set and a throwaway SQLite file otherwise.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := dbConfig(t)
	conn, err := db.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	if cfg.Driver == config.DriverPostgres {
		resetPostgres(t, conn)
	}
	require.NoError(t, db.ApplyMigrations(context.Background(), conn, cfg.Driver))
	return conn
}

func dbConfig(t *testing.T) config.DatabaseConfig {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		return config.DatabaseConfig{
			Driver: config.DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "guidewise.db"),
		}
	}
	port := 5432
	if v := os.Getenv("TEST_DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	return config.DatabaseConfig{
		Driver:   config.DriverPostgres,
		Host:     host,
		Port:     port,
		User:     getenv("TEST_DB_USER", "postgres"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   getenv("TEST_DB_NAME", "guidewise_test"),
	}
}

func resetPostgres(t *testing.T, conn *sql.DB) {
	t.Helper()
	stmts := []string{
		"DROP TABLE IF EXISTS question_limits",
		"DROP TABLE IF EXISTS messages",
		"DROP TABLE IF EXISTS documents",
		"DROP TABLE IF EXISTS sessions",
		"DROP TABLE IF EXISTS users",
		"DROP TABLE IF EXISTS goose_db_version",
	}
	for _, stmt := range stmts {
		_, err := conn.Exec(stmt)
		require.NoError(t, err)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
