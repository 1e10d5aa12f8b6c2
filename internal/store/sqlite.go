package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/uidkeeper/uidkeeper/internal/expiry"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS uids (
	uid        TEXT PRIMARY KEY,
	expires_at TEXT NOT NULL
)`

// SQLite stores records in a single table, one row per UID. The expires_at
// column holds the same strings as the JSON file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: connect %q: %w", path, err)
	}
	// One writer at a time; the Store lock already serializes callers.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout = 5000", sqliteSchema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite store: exec %q: %w", stmt, err)
		}
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Name() string { return "sqlite" }

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load reads every row. A row with an unparseable expires_at fails the load.
func (s *SQLite) Load(ctx context.Context) (Records, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uid, expires_at FROM uids`)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: query: %w", err)
	}
	defer rows.Close()

	recs := Records{}
	for rows.Next() {
		var uid, raw string
		if err := rows.Scan(&uid, &raw); err != nil {
			return nil, fmt.Errorf("sqlite store: scan: %w", err)
		}
		exp, err := expiry.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: uid %q: %w", uid, err)
		}
		recs[uid] = exp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: rows: %w", err)
	}
	return recs, nil
}

// Save replaces the table contents with recs in one transaction.
func (s *SQLite) Save(ctx context.Context, recs Records) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM uids`); err != nil {
		return fmt.Errorf("sqlite store: clear: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO uids (uid, expires_at) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite store: prepare: %w", err)
	}
	defer stmt.Close()

	for uid, exp := range recs {
		if _, err := stmt.ExecContext(ctx, uid, exp.String()); err != nil {
			return fmt.Errorf("sqlite store: insert %q: %w", uid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite store: commit: %w", err)
	}
	return nil
}
