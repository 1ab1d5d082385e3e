package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/seenimoa/tickerlens/pkg/models"
)

// SQLiteStore persists history to a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
// path may be ":memory:".
func OpenSQLite(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	// One connection: ":memory:" databases are per-connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}

	logger.Debug().Str("path", path).Msg("history store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS search_history (
			position       INTEGER PRIMARY KEY,
			symbol         TEXT    NOT NULL,
			name           TEXT    NOT NULL DEFAULT '',
			recommendation TEXT    NOT NULL DEFAULT '',
			searched_at    INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load returns the stored list in position order.
func (s *SQLiteStore) Load(ctx context.Context) (models.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, name, recommendation, searched_at FROM search_history ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("history: load: %w", err)
	}
	defer rows.Close()

	h := models.History{}
	for rows.Next() {
		var (
			e   models.HistoryEntry
			rec string
			ts  int64
		)
		if err := rows.Scan(&e.Symbol, &e.Name, &rec, &ts); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Recommendation = models.Recommendation(rec)
		e.Timestamp = time.UnixMilli(ts).UTC()
		h = append(h, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return h, nil
}

// Save replaces the stored list with h in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, h models.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM search_history`); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO search_history (position, symbol, name, recommendation, searched_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("history: prepare: %w", err)
	}
	defer stmt.Close()

	for i, e := range h {
		if _, err := stmt.ExecContext(ctx, i, e.Symbol, e.Name, string(e.Recommendation), e.Timestamp.UnixMilli()); err != nil {
			return fmt.Errorf("history: insert %s: %w", e.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
