// Package journal keeps a SQLite history of dispatch outcomes.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/focusflow/focusflow/internal/notify"
)

// fixed width so stored timestamps sort as text
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS alert_event (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	alert_id TEXT NOT NULL DEFAULT '',
	tag TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alert_event_at ON alert_event(at);
`

// Entry is one stored outcome.
type Entry struct {
	ID      int64     `json:"id"`
	AlertID string    `json:"alert_id,omitempty"`
	Tag     string    `json:"tag,omitempty"`
	Title   string    `json:"title,omitempty"`
	Outcome string    `json:"outcome"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// Store implements notify.Recorder on a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at path. ":memory:" gives a
// private in-memory journal.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal unreachable: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// Record appends an outcome.
func (s *Store) Record(ctx context.Context, e notify.Event) error {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_event (alert_id, tag, title, outcome, reason, at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.AlertID, e.Tag, e.Title, e.Outcome, e.Reason, at.UTC().Format(dateLayout))
	if err != nil {
		return fmt.Errorf("record %s event: %w", e.Outcome, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, alert_id, tag, title, outcome, reason, at FROM alert_event ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &e.AlertID, &e.Tag, &e.Title, &e.Outcome, &e.Reason, &at); err != nil {
			return nil, err
		}
		if e.At, err = time.Parse(dateLayout, at); err != nil {
			return nil, fmt.Errorf("journal entry %d: bad timestamp %q: %w", e.ID, at, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries recorded before cutoff and reports how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alert_event WHERE at < ?`, cutoff.UTC().Format(dateLayout))
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
