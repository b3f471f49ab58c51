package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type dialect struct {
	driver string
	schema string
	get    string
	set    string
}

var (
	sqliteDialect = dialect{
		driver: "sqlite3",
		schema: `
		CREATE TABLE IF NOT EXISTS kv_slots (
			slot       TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		get: `SELECT value FROM kv_slots WHERE slot = ?`,
		set: `
		INSERT INTO kv_slots (slot, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (slot) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
	}

	postgresDialect = dialect{
		driver: "pgx",
		schema: `
		CREATE TABLE IF NOT EXISTS kv_slots (
			slot       TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		get: `SELECT value FROM kv_slots WHERE slot = $1`,
		set: `
		INSERT INTO kv_slots (slot, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (slot) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
	}
)

// DB keeps slots in a kv_slots table, on sqlite or Postgres.
type DB struct {
	Client  *sql.DB
	dialect dialect
}

// NewSQLite opens (and creates if needed) a local sqlite database file.
func NewSQLite(ctx context.Context, path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open(sqliteDialect.driver, path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps sqlite free of SQLITE_BUSY under the HTTP server
	db.SetMaxOpenConns(1)
	return newDB(ctx, db, sqliteDialect)
}

// NewPostgres creates a Postgres connection with sane defaults.
func NewPostgres(ctx context.Context, connString string) (*DB, error) {
	db, err := sql.Open(postgresDialect.driver, connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return newDB(ctx, db, postgresDialect)
}

func newDB(ctx context.Context, db *sql.DB, d dialect) (*DB, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.driver, err)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", d.driver, err)
	}
	return &DB{Client: db, dialect: d}, nil
}

// Get returns the value stored in slot.
func (d *DB) Get(ctx context.Context, slot Slot) (string, bool, error) {
	var value string
	err := d.Client.QueryRowContext(ctx, d.dialect.get, string(slot)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, value != "", nil
}

// Set upserts value into slot.
func (d *DB) Set(ctx context.Context, slot Slot, value string) error {
	_, err := d.Client.ExecContext(ctx, d.dialect.set, string(slot), value)
	return err
}

// Healthy verifies database connectivity.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
