package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// ErrHoldingNotFound is returned when no holding of the chat has the given id.
var ErrHoldingNotFound = errors.New("holding not found")

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PingContext(ctx context.Context) error
	Close() error
}

type Store struct{ db DB }

// OpenSQLite opens dsn with a single connection so in-memory databases are
// shared by every query. The parent directory of a file path is created.
func OpenSQLite(dsn string) (DB, error) {
	if path := strings.TrimPrefix(dsn, "file:"); !strings.Contains(dsn, "memory") && path != "" {
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitSchema(ctx context.Context, db DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS holdings(
			id TEXT PRIMARY KEY,
			chat_id INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			quantity REAL NOT NULL,
			purchase_price REAL NOT NULL,
			current_price REAL NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_holdings_chat ON holdings(chat_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS series_cache(
			symbol TEXT NOT NULL,
			rng TEXT NOT NULL,
			points BLOB NOT NULL,
			saved_at INTEGER NOT NULL,
			PRIMARY KEY(symbol, rng)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func NewStore(db DB) *Store { return &Store{db: db} }

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
