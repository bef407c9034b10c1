package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv_entries (
	entry_key   VARCHAR(128) PRIMARY KEY,
	entry_value TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQL keeps keys in a kv_entries table on Postgres (pgx) or SQLite.
type SQL struct {
	db *sqlx.DB
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, connString string) (*SQL, error) {
	db, err := sqlx.Open("pgx", connString)
	if err != nil {
		return nil, errors.Wrap(err, "store.sql.open(pgx)")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return newSQL(ctx, db)
}

// OpenSQLite opens (or creates) a local SQLite file.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "store.sql.mkdir")
	}
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "store.sql.open(sqlite3)")
	}
	db.SetMaxOpenConns(1)
	return newSQL(ctx, db)
}

func newSQL(ctx context.Context, db *sqlx.DB) (*SQL, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store.sql.ping")
	}
	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store.sql.migrate")
	}
	return &SQL{db: db}, nil
}

func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind(`SELECT entry_value FROM kv_entries WHERE entry_key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "store.sql.get(%s)", key)
	}
	return value, true, nil
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	query := s.db.Rebind(`
		INSERT INTO kv_entries (entry_key, entry_value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (entry_key) DO UPDATE
		SET entry_value = excluded.entry_value, updated_at = excluded.updated_at`)
	_, err := s.db.ExecContext(ctx, query, key, value)
	return errors.Wrapf(err, "store.sql.set(%s)", key)
}

// Healthy pings the database.
func (s *SQL) Healthy(ctx context.Context) bool {
	return s != nil && s.db != nil && s.db.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
