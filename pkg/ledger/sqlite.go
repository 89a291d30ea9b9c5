package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists the ledger in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// It enables WAL mode for concurrency and durability.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite allows a single writer; one connection serializes ledger writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *SQLiteStore) migrate() error {
	// seq gives listing order; an upsert keeps the row and therefore its seq.
	query := `
	CREATE TABLE IF NOT EXISTS appliances (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		hours INTEGER NOT NULL CHECK (hours BETWEEN 0 AND 24),
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledger_events (
		event_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		name TEXT NOT NULL,
		hours INTEGER NOT NULL,
		ts_event DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_events_ts ON ledger_events(ts_event);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create ledger tables: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, hours FROM appliances ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query appliances: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Hours); err != nil {
			return nil, fmt.Errorf("failed to scan appliance: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Put(ctx context.Context, entry Entry, evt Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO appliances (name, hours, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET hours = excluded.hours, updated_at = excluded.updated_at
	`, entry.Name, entry.Hours, evt.TsEvent); err != nil {
		return fmt.Errorf("failed to upsert appliance: %w", err)
	}

	if err := insertEvent(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, name string, evt Event) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM appliances WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete appliance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := insertEvent(ctx, tx, evt); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_type, name, hours, ts_event
		FROM ledger_events
		ORDER BY ts_event DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.EventID, &evt.EventType, &evt.Name, &evt.Hours, &evt.TsEvent); err != nil {
			return nil, fmt.Errorf("failed to scan ledger event: %w", err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

func insertEvent(ctx context.Context, tx *sql.Tx, evt Event) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_events (event_id, event_type, name, hours, ts_event)
		VALUES (?, ?, ?, ?, ?)
	`, evt.EventID, evt.EventType, evt.Name, evt.Hours, evt.TsEvent); err != nil {
		return fmt.Errorf("failed to append ledger event: %w", err)
	}
	return nil
}
